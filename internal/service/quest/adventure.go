package quest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// ErrInvalidStatus 未知的冒险状态
var ErrInvalidStatus = errors.New("invalid adventure status")

// AdventureInput 新篇章
type AdventureInput struct {
	Name        string
	Description string
	Kind        string // 含 "持續" 或 "Continuous" 视为持续型
	StartDate   time.Time
}

// Adventures 按类型分组的冒险，新的在前
type Adventures struct {
	Sheet      string            `json:"sheet"`
	Continuous []model.Adventure `json:"continuous"`
	Instance   []model.Adventure `json:"instance"`
}

// KindFromLabel 表单上的类型文字转为冒险类型
func KindFromLabel(label string) model.AdventureKind {
	if strings.Contains(label, "持續") {
		return model.AdventureContinuous
	}
	return model.ParseAdventureKind(label)
}

// adventureSchema 冒险日志所在的工作表；旧版工作簿在 Sheet1
func (s *Service) adventureSchema(ctx context.Context) (model.Schema, error) {
	name, err := s.sheets.Resolve(ctx, model.SheetAdventures, model.SheetLegacyAdventures)
	if err != nil {
		return model.Schema{}, err
	}
	schema := model.AdventureSchema
	schema.Sheet = name
	return schema, nil
}

// ListAdventures 全部冒险，按持续型和副本型分组
func (s *Service) ListAdventures(ctx context.Context) (*Adventures, error) {
	out := &Adventures{Continuous: []model.Adventure{}, Instance: []model.Adventure{}}
	schema, err := s.adventureSchema(ctx)
	if errors.Is(err, sheet.ErrWorksheetNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Sheet = schema.Sheet

	t, err := s.sheets.Table(ctx, schema.Sheet)
	if err != nil {
		return nil, err
	}
	for i := t.Len() - 1; i >= 0; i-- {
		a := model.AdventureFromRecord(i, t.Records[i])
		if a.Name == "" {
			continue
		}
		if a.Kind == model.AdventureContinuous {
			out.Continuous = append(out.Continuous, a)
		} else {
			out.Instance = append(out.Instance, a)
		}
	}
	return out, nil
}

// CreateAdventure 展开新冒险，状态为進行中，链接留空
func (s *Service) CreateAdventure(ctx context.Context, in AdventureInput) (model.Adventure, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Adventure{}, ErrEmptyName
	}
	schema, err := s.adventureSchema(ctx)
	if err != nil {
		return model.Adventure{}, err
	}
	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}
	a := model.Adventure{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Status:      model.AdventureActive,
		StartDate:   start.Format(model.DateLayout),
		Kind:        KindFromLabel(in.Kind),
	}

	t, err := s.sheets.Table(ctx, schema.Sheet)
	if err != nil {
		return model.Adventure{}, err
	}
	if err := s.sheets.Append(ctx, schema, a.Record()); err != nil {
		return model.Adventure{}, err
	}
	a.Index = t.Len()
	a.Row = model.RowNumber(a.Index)
	return a, nil
}

func (s *Service) adventure(ctx context.Context, row int) (model.Schema, model.Adventure, error) {
	schema, err := s.adventureSchema(ctx)
	if err != nil {
		return model.Schema{}, model.Adventure{}, err
	}
	t, err := s.sheets.Table(ctx, schema.Sheet)
	if err != nil {
		return model.Schema{}, model.Adventure{}, err
	}
	idx := model.RecordIndex(row)
	if idx < 0 || idx >= t.Len() {
		return model.Schema{}, model.Adventure{}, fmt.Errorf("%s row %d: %w", schema.Sheet, row, ErrNotFound)
	}
	return schema, model.AdventureFromRecord(idx, t.Records[idx]), nil
}

// AttachLink 挂上或修正外部链接
func (s *Service) AttachLink(ctx context.Context, row int, link string) (model.Adventure, error) {
	schema, a, err := s.adventure(ctx, row)
	if err != nil {
		return model.Adventure{}, err
	}
	a.Link = strings.TrimSpace(link)
	if err := s.sheets.UpdateField(ctx, schema, row, model.ColNotionLink, a.Link); err != nil {
		return model.Adventure{}, err
	}
	return a, nil
}

// SetAdventureStatus 修改冒险状态
func (s *Service) SetAdventureStatus(ctx context.Context, row int, status model.AdventureStatus) (model.Adventure, error) {
	if !status.Valid() {
		return model.Adventure{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	schema, a, err := s.adventure(ctx, row)
	if err != nil {
		return model.Adventure{}, err
	}
	a.Status = status
	if err := s.sheets.UpdateField(ctx, schema, row, model.ColStatus, string(status)); err != nil {
		return model.Adventure{}, err
	}
	return a, nil
}

// DeleteAdventure 删除冒险
func (s *Service) DeleteAdventure(ctx context.Context, row int) error {
	schema, _, err := s.adventure(ctx, row)
	if err != nil {
		return err
	}
	return s.sheets.DeleteRow(ctx, schema.Sheet, row)
}
