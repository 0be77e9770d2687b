package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shanesun1208/LifeAdventure/internal/llm"
	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
	"github.com/shanesun1208/LifeAdventure/internal/sheet/sheettest"
)

var fixedNow = time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC)

type recorder struct {
	reply string
	err   error
	calls [][]llm.Message
}

func (r *recorder) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	r.calls = append(r.calls, msgs)
	return r.reply, r.err
}

type staticWeather string

func (w staticWeather) Summary(context.Context, string) string { return string(w) }

func newChat(t *testing.T, gen llm.Generator, history ...[]string) (*Service, *sheettest.Spreadsheet) {
	t.Helper()
	doc := sheettest.New("LifeAdventure")
	for _, s := range model.Schemas() {
		if s.Sheet == model.SheetChatHistory {
			doc.Add(s.Sheet, s.Header, history...)
			continue
		}
		doc.Add(s.Sheet, s.Header)
	}
	ctx := context.Background()
	doc.Sheet(model.SheetIncome).AppendRow(ctx, []any{"2025-06-05", "薪資", "40000", "薪資", ""})
	doc.Sheet(model.SheetFinance).AppendRow(ctx, []any{"2025-06-06", "23", "午餐", "150", "飲食", "午餐"})
	doc.Sheet(model.SheetBudget).AppendRow(ctx, []any{"飲食", "3000"})
	doc.Sheet(model.SheetQuestBoard).AppendRow(ctx, []any{"A", "", "工作", "進行中", "無", "無"})
	doc.Sheet(model.SheetQuestBoard).AppendRow(ctx, []any{"B", "", "工作", "待接取", "無", "無"})
	doc.Sheet(model.SheetQuestBoard).AppendRow(ctx, []any{"C", "", "工作", "待接取", "無", "無"})

	now := func() time.Time { return fixedNow }
	sh := sheets.New(doc, nil, sheets.Options{})
	st := settings.New(sh)
	reg := category.New(st)
	svc := New(sh, st, ledger.New(sh, st, reg, now), quest.New(sh, st, reg, now),
		staticWeather("📍 Taipei,TW | 🌡️ 30.0°C"), gen, Options{HistoryLimit: 2, Now: now})
	return svc, doc
}

func TestBriefing(t *testing.T) {
	svc, _ := newChat(t, nil)
	b := svc.Briefing(context.Background())

	require.Equal(t, "2025-06-18 09:30", b.Time)
	require.Equal(t, "📍 Taipei,TW | 🌡️ 30.0°C", b.Weather)
	require.Equal(t, int64(40000), b.Income)
	require.Equal(t, int64(150), b.Spent)
	require.Equal(t, int64(2850), b.BudgetRemaining)
	require.Equal(t, 1, b.ActiveQuests)
	require.Equal(t, 2, b.PendingQuests)
	require.Contains(t, b.Text(), "進行中任務數: 1 個")
}

func TestReply_UsesRecentHistoryAndLogs(t *testing.T) {
	gen := &recorder{reply: "遵命，主人。"}
	svc, doc := newChat(t, gen,
		[]string{"2025-06-17 20:00:00", "user", "第一句"},
		[]string{"2025-06-17 20:00:01", "model", "第二句"},
		[]string{"2025-06-17 20:00:02", "user", "第三句"},
	)

	reply, err := svc.Reply(context.Background(), "幫我看看財務狀況?")
	require.NoError(t, err)
	require.Equal(t, "遵命，主人。", reply.Message)
	require.Equal(t, model.RoleAssistant, reply.Role)

	require.Len(t, gen.calls, 1)
	msgs := gen.calls[0]
	require.Len(t, msgs, 4)
	require.Equal(t, llm.RoleSystem, msgs[0].Role)
	require.True(t, strings.Contains(msgs[0].Content, "主人預算總剩餘: 2850 G"))
	require.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "第二句"}, msgs[1])
	require.Equal(t, llm.Message{Role: llm.RoleUser, Content: "第三句"}, msgs[2])
	require.Equal(t, "幫我看看財務狀況?", msgs[3].Content)

	appends := doc.Sheet(model.SheetChatHistory).CallsOf(sheettest.OpAppend)
	require.Len(t, appends, 2)
	require.Equal(t, []string{"2025-06-18 09:30:00", "user", "幫我看看財務狀況?"}, appends[0].Values)
	require.Equal(t, []string{"2025-06-18 09:30:00", "assistant", "遵命，主人。"}, appends[1].Values)
}

func TestReply_FallbackOnFailure(t *testing.T) {
	svc, _ := newChat(t, &recorder{err: errors.New("quota exceeded")})

	reply, err := svc.Reply(context.Background(), "在嗎")
	require.NoError(t, err)
	require.Equal(t, FallbackReply, reply.Message)

	_, err = svc.Reply(context.Background(), "   ")
	require.Error(t, err)
}

func TestLoadingMessages_DailyCache(t *testing.T) {
	gen := &recorder{reply: "1. 正在磨亮長劍...\n- 正在清點金幣 | 銀幣\n\n• 正在召喚小秘書"}
	svc, doc := newChat(t, gen)
	ctx := context.Background()

	lines := svc.LoadingMessages(ctx)
	require.Equal(t, []string{"正在磨亮長劍...", "正在清點金幣  銀幣", "正在召喚小秘書"}, lines)
	require.Equal(t, lines, svc.LoadingMessages(ctx))
	require.Len(t, gen.calls, 1)

	rows := doc.Sheet(model.SheetSetting).Rows()
	require.Equal(t, []string{settings.KeyLoadingDate, "2025-06-18"}, rows[2])
}

func TestLoadingMessages_Defaults(t *testing.T) {
	svc, _ := newChat(t, nil)
	require.Equal(t, DefaultLoadingMessages, svc.LoadingMessages(context.Background()))

	svc, _ = newChat(t, &recorder{err: errors.New("down")})
	require.Equal(t, DefaultLoadingMessages, svc.LoadingMessages(context.Background()))
}
