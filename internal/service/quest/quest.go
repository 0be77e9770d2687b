// Package quest 任务看板与冒险日志
package quest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
)

var (
	ErrInvalidTransition = errors.New("invalid quest transition")
	ErrNotFound          = errors.New("row not found")
	ErrEmptyName         = errors.New("name is required")
)

// DefaultDeadline 未指定期限时的默认期限
const DefaultDeadline = 7 * 24 * time.Hour

// Service 任务与冒险
type Service struct {
	sheets   *sheets.Service
	settings *settings.Service
	registry *category.Registry
	now      func() time.Time
}

// New 创建服务；now 为 nil 时使用 time.Now
func New(svc *sheets.Service, st *settings.Service, reg *category.Registry, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{sheets: svc, settings: st, registry: reg, now: now}
}

// PostInput 张贴委托
type PostInput struct {
	Name       string
	Content    string
	Type       category.Selection
	Deadline   time.Time // 零值时为当前时间 + DefaultDeadline
	NoDeadline bool
	Reward     string // 为空时写入 "無"
}

// Board 按状态分组的任务
type Board struct {
	Unclaimed  []model.Quest `json:"unclaimed"`
	InProgress []model.Quest `json:"inProgress"`
	Done       []model.Quest `json:"done"`
}

// List 全部任务（表内顺序）
func (s *Service) List(ctx context.Context) ([]model.Quest, error) {
	t, err := s.sheets.Table(ctx, model.SheetQuestBoard)
	if err != nil {
		return nil, err
	}
	out := make([]model.Quest, 0, t.Len())
	for i, r := range t.Records {
		if r.Get(model.ColName) == "" && r.Get(model.ColStatus) == "" {
			continue
		}
		out = append(out, model.QuestFromRecord(i, r))
	}
	return out, nil
}

// Board 看板视图；状态不在已知范围内的任务不展示
func (s *Service) Board(ctx context.Context) (*Board, error) {
	qs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	b := &Board{Unclaimed: []model.Quest{}, InProgress: []model.Quest{}, Done: []model.Quest{}}
	for _, q := range qs {
		switch q.Status {
		case model.QuestUnclaimed:
			b.Unclaimed = append(b.Unclaimed, q)
		case model.QuestInProgress:
			b.InProgress = append(b.InProgress, q)
		case model.QuestDone:
			b.Done = append(b.Done, q)
		}
	}
	return b, nil
}

// Post 张贴新委托，状态为待接取
func (s *Service) Post(ctx context.Context, in PostInput) (model.Quest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Quest{}, ErrEmptyName
	}

	existing, err := s.settings.Options(ctx, settings.KeyQuestTypes)
	if err != nil {
		log.Printf("[quest] load quest types failed: %v", err)
	}
	typ, err := s.registry.Resolve(ctx, category.FieldQuest, in.Type, existing)
	if err != nil {
		log.Printf("[quest] %v", err)
	}

	q := model.Quest{
		Name:     name,
		Content:  strings.TrimSpace(in.Content),
		Type:     typ,
		Status:   model.QuestUnclaimed,
		Deadline: model.NoDeadline,
		Reward:   strings.TrimSpace(in.Reward),
	}
	if !in.NoDeadline {
		d := in.Deadline
		if d.IsZero() {
			d = s.now().Add(DefaultDeadline)
		}
		q.Deadline = d.Format(model.DateLayout)
	}
	if q.Reward == "" {
		q.Reward = model.NoReward
	}

	t, err := s.sheets.Table(ctx, model.SheetQuestBoard)
	if err != nil {
		return model.Quest{}, err
	}
	if err := s.sheets.Append(ctx, model.QuestSchema, q.Record()); err != nil {
		return model.Quest{}, err
	}
	q.Index = t.Len()
	q.Row = model.RowNumber(q.Index)
	return q, nil
}

// quest 读取某一行的任务
func (s *Service) quest(ctx context.Context, row int) (model.Quest, error) {
	t, err := s.sheets.Table(ctx, model.SheetQuestBoard)
	if err != nil {
		return model.Quest{}, err
	}
	idx := model.RecordIndex(row)
	if idx < 0 || idx >= t.Len() {
		return model.Quest{}, fmt.Errorf("%s row %d: %w", model.SheetQuestBoard, row, ErrNotFound)
	}
	return model.QuestFromRecord(idx, t.Records[idx]), nil
}

// transition 以当前快照校验状态后改写 Status 列
func (s *Service) transition(ctx context.Context, row int, from, to model.QuestStatus) (model.Quest, error) {
	q, err := s.quest(ctx, row)
	if err != nil {
		return model.Quest{}, err
	}
	if q.Status != from {
		return model.Quest{}, fmt.Errorf("%w: %q is %s, want %s", ErrInvalidTransition, q.Name, q.Status, from)
	}
	if err := s.sheets.UpdateField(ctx, model.QuestSchema, row, model.ColStatus, string(to)); err != nil {
		return model.Quest{}, err
	}
	q.Status = to
	return q, nil
}

// Claim 接取：待接取 -> 進行中
func (s *Service) Claim(ctx context.Context, row int) (model.Quest, error) {
	return s.transition(ctx, row, model.QuestUnclaimed, model.QuestInProgress)
}

// Complete 完成：進行中 -> 已完成
func (s *Service) Complete(ctx context.Context, row int) (model.Quest, error) {
	return s.transition(ctx, row, model.QuestInProgress, model.QuestDone)
}

// Abandon 放弃：進行中 -> 待接取
func (s *Service) Abandon(ctx context.Context, row int) (model.Quest, error) {
	return s.transition(ctx, row, model.QuestInProgress, model.QuestUnclaimed)
}

// Remove 撤下委托，只允许撤下尚未接取的
func (s *Service) Remove(ctx context.Context, row int) error {
	q, err := s.quest(ctx, row)
	if err != nil {
		return err
	}
	if q.Status != model.QuestUnclaimed {
		return fmt.Errorf("%w: %q is %s, only unclaimed quests can be removed", ErrInvalidTransition, q.Name, q.Status)
	}
	return s.sheets.DeleteRow(ctx, model.SheetQuestBoard, row)
}

// Counts 各状态的任务数
func (s *Service) Counts(ctx context.Context) (unclaimed, inProgress int, err error) {
	b, err := s.Board(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(b.Unclaimed), len(b.InProgress), nil
}
