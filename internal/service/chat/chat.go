// Package chat 小秘书：汇总当前状况作为上下文，调用文本生成并记录对话
package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/shanesun1208/LifeAdventure/internal/llm"
	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
)

// DefaultHistoryLimit 带入对话的历史条数
const DefaultHistoryLimit = 5

// FallbackReply 生成失败时的回复
const FallbackReply = "小秘書暫時聯絡不上總部，請稍後再試。"

const persona = "你是主人的專屬小秘書，語氣親切、簡潔，使用繁體中文回答。" +
	"回答時參考下方的即時情報，金額單位為 G。"

// loadingSeparator Loading_Messages 中各条文案的分隔符
const loadingSeparator = "|"

// DefaultLoadingMessages 生成失败时使用
var DefaultLoadingMessages = []string{
	"正在整理冒險者公會的帳本...",
	"小秘書正在翻閱任務看板...",
	"正在確認今日的天氣...",
}

// Weather 天气简报
type Weather interface {
	Summary(ctx context.Context, city string) string
}

// Options 可选参数
type Options struct {
	HistoryLimit int
	Now          func() time.Time
}

// Service 小秘书
type Service struct {
	sheets   *sheets.Service
	settings *settings.Service
	ledger   *ledger.Service
	quests   *quest.Service
	weather  Weather
	gen      llm.Generator

	historyLimit int
	now          func() time.Time
}

// New 创建小秘书；gen 可以为 nil，此时所有回复都是兜底文案
func New(svc *sheets.Service, st *settings.Service, led *ledger.Service, qs *quest.Service, w Weather, gen llm.Generator, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		sheets:       svc,
		settings:     st,
		ledger:       led,
		quests:       qs,
		weather:      w,
		gen:          gen,
		historyLimit: opts.HistoryLimit,
		now:          opts.Now,
	}
}

// Briefing 给生成接口的即时情报，也用于首页
type Briefing struct {
	Time            string `json:"time"`
	Weather         string `json:"weather"`
	LifeGoal        string `json:"lifeGoal"`
	Income          int64  `json:"income"`
	Spent           int64  `json:"spent"`
	FreeCash        int64  `json:"freeCash"`
	BudgetRemaining int64  `json:"budgetRemaining"`
	ActiveQuests    int    `json:"activeQuests"`
	PendingQuests   int    `json:"pendingQuests"`
}

// Text 拼成多行文本
func (b Briefing) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "現在時間: %s\n", b.Time)
	fmt.Fprintf(&sb, "所在城市天氣: %s\n", b.Weather)
	fmt.Fprintf(&sb, "人生目標: %s\n", b.LifeGoal)
	fmt.Fprintf(&sb, "本月收入: %d G，本月支出: %d G，可自由運用: %d G\n", b.Income, b.Spent, b.FreeCash)
	fmt.Fprintf(&sb, "主人預算總剩餘: %d G\n", b.BudgetRemaining)
	fmt.Fprintf(&sb, "進行中任務數: %d 個，待接取任務數: %d 個", b.ActiveQuests, b.PendingQuests)
	return sb.String()
}

// Briefing 汇总天气、本月财务和任务状况；单项失败时该项留空，不影响其它
func (s *Service) Briefing(ctx context.Context) Briefing {
	now := s.now()
	b := Briefing{Time: now.Format("2006-01-02 15:04")}

	all, err := s.settings.All(ctx)
	if err != nil {
		log.Printf("[chat] load settings failed: %v", err)
	}
	b.LifeGoal = all[settings.KeyLifeGoal]
	b.Weather = "📍 " + all[settings.KeyLocation]
	if s.weather != nil {
		b.Weather = s.weather.Summary(ctx, all[settings.KeyLocation])
	}

	if m, err := s.ledger.Summary(ctx, parser.MonthKey(now)); err != nil {
		log.Printf("[chat] load finance failed: %v", err)
	} else {
		d := m.Display()
		b.Income = d.TotalIncome
		b.Spent = d.TotalActualSpent
		b.FreeCash = d.FreeCash
		for _, line := range d.Budgets {
			b.BudgetRemaining += line.Remaining
		}
	}

	if pending, active, err := s.quests.Counts(ctx); err != nil {
		log.Printf("[chat] load quests failed: %v", err)
	} else {
		b.PendingQuests, b.ActiveQuests = pending, active
	}
	return b
}

// History 最近 n 条对话，按时间顺序；n <= 0 时返回全部
func (s *Service) History(ctx context.Context, n int) ([]model.ChatMessage, error) {
	t, err := s.sheets.Table(ctx, model.SheetChatHistory)
	if err != nil {
		return nil, err
	}
	recs := t.Records
	if n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	out := make([]model.ChatMessage, 0, len(recs))
	for _, r := range recs {
		m := model.ChatMessageFromRecord(r)
		if m.Message == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) generator() llm.Generator {
	return llm.Safe{Gen: s.gen, Fallback: FallbackReply}
}

// Reply 回复主人的一句话，并把双方的发言追加到 ChatHistory
// 写入失败时仍返回回复内容
func (s *Service) Reply(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, fmt.Errorf("empty message")
	}

	history, err := s.History(ctx, s.historyLimit)
	if err != nil {
		log.Printf("[chat] load history failed: %v", err)
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: persona + "\n\n【即時情報】\n" + s.Briefing(ctx).Text()}}
	for _, h := range history {
		role := llm.RoleAssistant
		if h.Role == model.RoleUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Message})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	answer, _ := s.generator().Generate(ctx, msgs)

	now := s.now()
	user := model.NewChatMessage(now, model.RoleUser, text)
	reply := model.NewChatMessage(now, model.RoleAssistant, answer)
	for _, m := range []model.ChatMessage{user, reply} {
		if err := s.sheets.Append(ctx, model.ChatHistorySchema, m.Record()); err != nil {
			return reply, fmt.Errorf("save chat log: %w", err)
		}
	}
	return reply, nil
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•・]|\d+[.)、])\s*`)

// parseLines 生成结果按行拆开，去掉列表符号
func parseLines(s string, max int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		line = strings.ReplaceAll(line, loadingSeparator, "")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}

// LoadingMessages 载入画面的文案，每天生成一次并存在设置表里
func (s *Service) LoadingMessages(ctx context.Context) []string {
	today := s.now().Format(model.DateLayout)
	all, err := s.settings.All(ctx)
	if err == nil && all[settings.KeyLoadingDate] == today {
		if cached := strings.Split(all[settings.KeyLoadingMessages], loadingSeparator); len(cached) > 0 && cached[0] != "" {
			return cached
		}
	}
	if s.gen == nil {
		return DefaultLoadingMessages
	}

	out, err := s.gen.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: persona},
		{Role: llm.RoleUser, Content: "請寫 5 句奇幻冒險風格的載入提示語，每句一行，每句不超過 20 字，不要編號。"},
	})
	if err != nil {
		log.Printf("[chat] generate loading messages failed: %v", err)
		return DefaultLoadingMessages
	}
	lines := parseLines(out, 5)
	if len(lines) == 0 {
		return DefaultLoadingMessages
	}

	if err := s.settings.Upsert(ctx, settings.KeyLoadingMessages, strings.Join(lines, loadingSeparator)); err != nil {
		log.Printf("[chat] save loading messages failed: %v", err)
		return lines
	}
	if err := s.settings.Upsert(ctx, settings.KeyLoadingDate, today); err != nil {
		log.Printf("[chat] save loading date failed: %v", err)
	}
	return lines
}
