// Package reconcile 批量编辑：快照 -> 编辑 -> 对比 -> 回写
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
)

// dateColumns 对比前需要统一格式的日期列
var dateColumns = map[string]bool{
	model.ColDate:      true,
	model.ColStartDate: true,
	model.ColDeadline:  true,
}

// amountColumns 金额列，回写前必须是非负数字
var amountColumns = map[string]bool{
	model.ColPrice:  true,
	model.ColAmount: true,
	model.ColBudget: true,
}

// requiredDateColumns 回写前必须能解析的日期列；Deadline 允许填 "無"
var requiredDateColumns = map[string]bool{
	model.ColDate:      true,
	model.ColStartDate: true,
}

// ErrInvalidCell 编辑后的单元格不合法，整批不回写
var ErrInvalidCell = errors.New("invalid cell value")

// Baseline 渲染编辑界面时的原始快照（只读）
type Baseline struct {
	Table   string   `json:"table"`
	Header  []string `json:"header"`  // 快照时的完整表头顺序
	Visible []string `json:"visible"` // 可编辑列
	Hidden  []string `json:"hidden"`  // 不展示但回写时需要原样保留的列
	Rows    []Row    `json:"rows"`
}

// Row 快照中的一行，Index 为在整张表中的记录下标
type Row struct {
	Index  int          `json:"index"`
	Record model.Record `json:"record"`
}

// GridRow 编辑界面上的一行：只含可编辑列，外加删除标记
type GridRow struct {
	Index  int               `json:"index"`
	Delete bool              `json:"delete"`
	Values map[string]string `json:"values"`
}

// NewBaseline 对表中指定下标的行拍快照；indices 为 nil 时取全部行
// hidden 中的列不出现在编辑界面上
func NewBaseline(t *model.Table, indices []int, hidden ...string) (*Baseline, error) {
	b := &Baseline{
		Table:  t.Name,
		Header: append([]string(nil), t.Header...),
	}
	hide := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		hide[h] = true
	}
	for _, h := range t.Header {
		if h == "" {
			continue
		}
		if hide[h] {
			b.Hidden = append(b.Hidden, h)
		} else {
			b.Visible = append(b.Visible, h)
		}
	}

	if indices == nil {
		indices = make([]int, t.Len())
		for i := range indices {
			indices[i] = i
		}
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= t.Len() {
			return nil, fmt.Errorf("%s: record index %d out of range", t.Name, idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%s: duplicate record index %d", t.Name, idx)
		}
		seen[idx] = true
		b.Rows = append(b.Rows, Row{Index: idx, Record: t.Records[idx].Clone()})
	}
	return b, nil
}

// Grid 编辑界面的初始数据，删除标记默认 false
func (b *Baseline) Grid() []GridRow {
	out := make([]GridRow, 0, len(b.Rows))
	for _, r := range b.Rows {
		values := make(map[string]string, len(b.Visible))
		for _, col := range b.Visible {
			values[col] = r.Record[col]
		}
		out = append(out, GridRow{Index: r.Index, Values: values})
	}
	return out
}

// Update 一次整行回写
type Update struct {
	Index       int   `json:"index"`
	OriginalRow int   `json:"originalRow"` // 快照时的行号
	Row         int   `json:"row"`         // 删除执行之后的实际行号
	Values      []any `json:"values"`
}

// Plan 需要执行的远端修改
type Plan struct {
	Table string `json:"table"`
	// Deletes 待删除的行号，已按从大到小排序
	Deletes []int    `json:"deletes"`
	Updates []Update `json:"updates"`
}

// Empty 没有任何修改
func (p *Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Updates) == 0
}

// Diff 对比编辑结果与快照，生成最小修改集
// 未出现在 edited 中的行视为未修改
func (b *Baseline) Diff(edited []GridRow) (*Plan, error) {
	byIndex := make(map[int]Row, len(b.Rows))
	for _, r := range b.Rows {
		byIndex[r.Index] = r
	}

	plan := &Plan{Table: b.Table, Deletes: []int{}, Updates: []Update{}}
	seen := make(map[int]bool, len(edited))
	var changed []Row

	for _, e := range edited {
		base, ok := byIndex[e.Index]
		if !ok {
			return nil, fmt.Errorf("%s: row index %d is not part of the snapshot", b.Table, e.Index)
		}
		if seen[e.Index] {
			return nil, fmt.Errorf("%s: row index %d edited twice", b.Table, e.Index)
		}
		seen[e.Index] = true

		if e.Delete {
			plan.Deletes = append(plan.Deletes, model.RowNumber(e.Index))
			continue
		}
		rec, ok, err := b.merge(base, e)
		if err != nil {
			return nil, err
		}
		if ok {
			changed = append(changed, Row{Index: e.Index, Record: rec})
		}
	}

	// 从下往上删，避免行号在批次中途错位
	sort.Sort(sort.Reverse(sort.IntSlice(plan.Deletes)))

	sort.Slice(changed, func(i, j int) bool { return changed[i].Index < changed[j].Index })
	for _, c := range changed {
		orig := model.RowNumber(c.Index)
		plan.Updates = append(plan.Updates, Update{
			Index:       c.Index,
			OriginalRow: orig,
			Row:         orig - deletedAbove(plan.Deletes, orig),
			Values:      b.values(c.Record),
		})
	}
	return plan, nil
}

// merge 把编辑后的可见列覆盖到快照行上；返回是否有变化
// 只校验改动过的格子，原表里已有的脏数据不拦
func (b *Baseline) merge(base Row, e GridRow) (model.Record, bool, error) {
	rec := base.Record.Clone()
	changed := false
	for _, col := range b.Visible {
		v, ok := e.Values[col]
		if !ok {
			continue
		}
		if equalCell(col, base.Record[col], v) {
			continue
		}
		if err := checkCell(col, v); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", b.Table, model.RowNumber(e.Index), err)
		}
		if dateColumns[col] {
			v = parser.NormalizeDate(v)
		}
		rec[col] = v
		changed = true
	}
	return rec, changed, nil
}

func checkCell(col, v string) error {
	if amountColumns[col] {
		d, ok := parser.ParseAmountStrict(v)
		if !ok {
			return fmt.Errorf("%w: %s %q is not a number", ErrInvalidCell, col, v)
		}
		if d.IsNegative() {
			return fmt.Errorf("%w: %s %q is negative", ErrInvalidCell, col, v)
		}
	}
	if requiredDateColumns[col] {
		if _, ok := parser.ParseDate(v); !ok {
			return fmt.Errorf("%w: %s %q is not a date", ErrInvalidCell, col, v)
		}
	}
	return nil
}

// values 按快照表头顺序序列化（隐藏列保留原值）
func (b *Baseline) values(rec model.Record) []any {
	out := make([]any, len(b.Header))
	for i, h := range b.Header {
		out[i] = rec[h]
	}
	return out
}

func equalCell(col, a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if dateColumns[col] {
		return parser.NormalizeDate(a) == parser.NormalizeDate(b)
	}
	return a == b
}

// deletedAbove 行号小于 row 的删除数量
func deletedAbove(deletes []int, row int) int {
	n := 0
	for _, d := range deletes {
		if d < row {
			n++
		}
	}
	return n
}
