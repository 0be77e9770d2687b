// Package settings 设置表（Item / Value 两列）的读取与写入
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// 设置项
const (
	KeyLifeGoal        = "LifeGoal"
	KeyLocation        = "Location"
	KeyType1Options    = "Type1_Options"
	KeyType2Options    = "Type2_Options"
	KeyIncomeTypes     = "Income_Types"
	KeyFixedTypes      = "Fixed_Types"
	KeyQuestTypes      = "Quest_Types"
	KeyPaymentMethods  = "Payment_Methods"
	KeyLoadingMessages = "Loading_Messages"
	KeyLoadingDate     = "Loading_Date"
)

// CityOptions 天气可选城市
var CityOptions = []string{
	"Taipei,TW",
	"New Taipei,TW",
	"Taichung,TW",
	"Kaohsiung,TW",
	"Tokyo,JP",
	"New York,US",
	"London,GB",
}

// ErrNoSettingSheet 文档里没有 Setting 工作表，只能读默认值，无法写入
var ErrNoSettingSheet = errors.New("Setting worksheet missing")

// Defaults 表中缺失时使用的默认值
func Defaults() map[string]string {
	return map[string]string{
		KeyLifeGoal:       "未設定",
		KeyLocation:       "Taipei,TW",
		KeyType1Options:   "飲食,交通,娛樂,固定開銷,其他",
		KeyType2Options:   "早餐,午餐,晚餐,捷運,計程車,房租",
		KeyIncomeTypes:    "薪資,獎金,投資,兼職,其他",
		KeyFixedTypes:     "訂閱,房租,保險,分期付款,孝親費,網路費,其他",
		KeyQuestTypes:     "工作,採購,禪行,其他",
		KeyPaymentMethods: "現金,信用卡",
	}
}

// Service 设置存储
type Service struct {
	sheets *sheets.Service
}

// New 创建设置存储
func New(svc *sheets.Service) *Service {
	return &Service{sheets: svc}
}

// All 表中的设置覆盖默认值；读取失败时退回默认值
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	out := Defaults()
	t, err := s.sheets.Table(ctx, model.SheetSetting)
	if err != nil {
		return out, err
	}
	for _, r := range t.Records {
		key := r.Get(model.ColItem)
		if key == "" {
			continue
		}
		out[key] = r.Get(model.ColValue)
	}
	return out, nil
}

// Get 单个设置项
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	all, err := s.All(ctx)
	return all[key], err
}

// Options 逗号分隔的选项列表
func (s *Service) Options(ctx context.Context, key string) ([]string, error) {
	v, err := s.Get(ctx, key)
	return parser.SplitList(v), err
}

// Upsert 找到 key 所在行就更新 Value，否则追加一行
func (s *Service) Upsert(ctx context.Context, key, value string) error {
	t, err := s.sheets.Table(ctx, model.SheetSetting)
	if err != nil {
		return err
	}
	itemCol, _ := model.SettingSchema.ColumnIn(t, model.ColItem)

	cell, err := s.sheets.Find(ctx, model.SheetSetting, key)
	switch {
	case err == nil && cell.Col == itemCol && cell.Row > model.HeaderRows:
		return s.sheets.UpdateField(ctx, model.SettingSchema, cell.Row, model.ColValue, value)
	case errors.Is(err, sheet.ErrWorksheetNotFound):
		return fmt.Errorf("save setting %s: %w", key, ErrNoSettingSheet)
	case err == nil, errors.Is(err, sheet.ErrCellNotFound):
		// 没找到，或者命中的是 Value 列里的同名文本
		if row, ok := rowOf(t, key); ok {
			return s.sheets.UpdateField(ctx, model.SettingSchema, row, model.ColValue, value)
		}
		return s.sheets.Append(ctx, model.SettingSchema, model.Record{model.ColItem: key, model.ColValue: value})
	default:
		return fmt.Errorf("find setting %s: %w", key, err)
	}
}

func rowOf(t *model.Table, key string) (int, bool) {
	for i, r := range t.Records {
		if r.Get(model.ColItem) == key {
			return model.RowNumber(i), true
		}
	}
	return 0, false
}

// UpsertMany 依次写入多个设置项
func (s *Service) UpsertMany(ctx context.Context, kv map[string]string, order ...string) error {
	for _, k := range order {
		v, ok := kv[k]
		if !ok {
			continue
		}
		if err := s.Upsert(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
