// Package category 录入时动态新增分类，并把新分类写回设置表
package category

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
)

// AddNewPrefix 下拉框里“新增”选项的前缀，如 "➕ 新增類別..."
const AddNewPrefix = "➕ 新增"

// AddNewLabel 默认的“新增”选项
const AddNewLabel = "➕ 新增類別..."

// IsSentinel 是否选中了“新增”选项
func IsSentinel(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), AddNewPrefix)
}

// Field 一个可动态扩展的分类字段
type Field struct {
	Key      string // 设置表中保存选项列表的键
	Fallback string // 选了“新增”却没填内容时使用
}

var (
	FieldType1   = Field{Key: settings.KeyType1Options, Fallback: model.CategoryUncategorized}
	FieldType2   = Field{Key: settings.KeyType2Options, Fallback: model.CategoryUncategorized}
	FieldIncome  = Field{Key: settings.KeyIncomeTypes, Fallback: model.CategoryUncategorized}
	FieldFixed   = Field{Key: settings.KeyFixedTypes, Fallback: model.CategoryUncategorized}
	FieldPayment = Field{Key: settings.KeyPaymentMethods, Fallback: model.CategoryUncategorized}
	FieldQuest   = Field{Key: settings.KeyQuestTypes, Fallback: model.QuestTypeFallback}
)

// Selection 表单上的选择：选中的值 + “新增”时填写的文本
type Selection struct {
	Value   string `json:"value"`
	NewText string `json:"newText,omitempty"`
}

// Store 选项列表的持久化
type Store interface {
	Options(ctx context.Context, key string) ([]string, error)
	Upsert(ctx context.Context, key, value string) error
}

// Registry 分类登记
type Registry struct {
	store Store
	// 进程内串行化，同一个新分类只会写入一次
	mu sync.Mutex
}

// New 创建分类登记
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Resolve 把表单选择解析为最终的分类值；结果永远非空
// 选择“新增”且填写了列表中没有的文本时，把它追加到设置表；
// 写回失败时仍返回解析出的值，同时返回错误
func (r *Registry) Resolve(ctx context.Context, f Field, sel Selection, existing []string) (string, error) {
	if !IsSentinel(sel.Value) {
		v := strings.TrimSpace(sel.Value)
		if v == "" {
			return f.Fallback, nil
		}
		return v, nil
	}

	text := strings.TrimSpace(sel.NewText)
	if text == "" || IsSentinel(text) {
		return f.Fallback, nil
	}
	if contains(existing, text) {
		return text, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	persisted, err := r.store.Options(ctx, f.Key)
	if err != nil {
		return text, fmt.Errorf("load %s: %w", f.Key, err)
	}
	if contains(persisted, text) {
		return text, nil
	}
	if err := r.store.Upsert(ctx, f.Key, parser.JoinList(append(persisted, text))); err != nil {
		return text, fmt.Errorf("register %s into %s: %w", text, f.Key, err)
	}
	return text, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
