// Package sheettest 内存版表格文档，记录每一次远端调用
package sheettest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// 调用类型
const (
	OpValues     = "values"
	OpAppend     = "append"
	OpUpdateCell = "update_cell"
	OpUpdateRow  = "update_row"
	OpUpdateRows = "update_rows"
	OpDelete     = "delete"
	OpFind       = "find"
)

// Call 一次调用记录
type Call struct {
	Op     string
	Row    int
	Col    int
	Values []string
	Rows   []sheet.RowUpdate
}

// FailFunc 返回非 nil 时该次调用失败（调用仍会被记录）
type FailFunc func(c Call) error

// Spreadsheet 内存表格文档
type Spreadsheet struct {
	title string

	mu     sync.Mutex
	sheets map[string]*Worksheet
}

// New 创建空文档
func New(title string) *Spreadsheet {
	return &Spreadsheet{title: title, sheets: make(map[string]*Worksheet)}
}

func (s *Spreadsheet) Title() string { return s.title }

// Worksheet 实现 sheet.Spreadsheet
func (s *Spreadsheet) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, sheet.ErrWorksheetNotFound)
	}
	return ws, nil
}

// Add 添加工作表：header 为第 1 行，rows 为数据行
func (s *Spreadsheet) Add(name string, header []string, rows ...[]string) *Worksheet {
	ws := &Worksheet{name: name}
	ws.rows = append(ws.rows, append([]string(nil), header...))
	for _, r := range rows {
		ws.rows = append(ws.rows, append([]string(nil), r...))
	}
	s.mu.Lock()
	s.sheets[name] = ws
	s.mu.Unlock()
	return ws
}

// Remove 删掉工作表，模拟旧版或被手动改过的文档
func (s *Spreadsheet) Remove(name string) {
	s.mu.Lock()
	delete(s.sheets, name)
	s.mu.Unlock()
}

// Sheet 取出已添加的工作表（测试断言用）
func (s *Spreadsheet) Sheet(name string) *Worksheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheets[name]
}

// Worksheet 内存工作表
type Worksheet struct {
	name string

	mu    sync.Mutex
	rows  [][]string
	calls []Call
	fail  FailFunc
}

var _ sheet.Worksheet = (*Worksheet)(nil)

func (w *Worksheet) Name() string { return w.name }

// FailWith 设置失败注入
func (w *Worksheet) FailWith(f FailFunc) {
	w.mu.Lock()
	w.fail = f
	w.mu.Unlock()
}

// Calls 全部调用记录（按发生顺序）
func (w *Worksheet) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Call(nil), w.calls...)
}

// CallsOf 某类调用记录
func (w *Worksheet) CallsOf(op string) []Call {
	var out []Call
	for _, c := range w.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Writes 除读取以外的调用
func (w *Worksheet) Writes() []Call {
	var out []Call
	for _, c := range w.Calls() {
		if c.Op != OpValues && c.Op != OpFind {
			out = append(out, c)
		}
	}
	return out
}

// Rows 当前全部行（含表头）
func (w *Worksheet) Rows() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// record 记录调用并执行失败注入，需持有锁
func (w *Worksheet) record(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.calls = append(w.calls, c)
	if w.fail != nil {
		return w.fail(c)
	}
	return nil
}

func (w *Worksheet) Values(ctx context.Context) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(ctx, Call{Op: OpValues}); err != nil {
		return nil, err
	}
	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (w *Worksheet) AppendRow(ctx context.Context, values []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	row := sheet.FormatRow(values)
	if err := w.record(ctx, Call{Op: OpAppend, Row: len(w.rows) + 1, Values: row}); err != nil {
		return err
	}
	w.rows = append(w.rows, row)
	return nil
}

func (w *Worksheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := sheet.FormatValue(value)
	if err := w.record(ctx, Call{Op: OpUpdateCell, Row: row, Col: col, Values: []string{v}}); err != nil {
		return err
	}
	w.grow(row, col)
	w.rows[row-1][col-1] = v
	return nil
}

func (w *Worksheet) UpdateRow(ctx context.Context, row int, values []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	vals := sheet.FormatRow(values)
	if err := w.record(ctx, Call{Op: OpUpdateRow, Row: row, Values: vals}); err != nil {
		return err
	}
	w.setRow(row, vals)
	return nil
}

func (w *Worksheet) DeleteRow(ctx context.Context, row int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(ctx, Call{Op: OpDelete, Row: row}); err != nil {
		return err
	}
	if row < 1 || row > len(w.rows) {
		return fmt.Errorf("delete row %d: out of range (rows=%d)", row, len(w.rows))
	}
	w.rows = append(w.rows[:row-1], w.rows[row:]...)
	return nil
}

func (w *Worksheet) Find(ctx context.Context, text string) (sheet.Cell, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(ctx, Call{Op: OpFind, Values: []string{text}}); err != nil {
		return sheet.Cell{}, err
	}
	for i, r := range w.rows {
		for j, v := range r {
			if strings.TrimSpace(v) == text {
				return sheet.Cell{Row: i + 1, Col: j + 1, Value: v}, nil
			}
		}
	}
	return sheet.Cell{}, fmt.Errorf("%s in %s: %w", text, w.name, sheet.ErrCellNotFound)
}

func (w *Worksheet) grow(row, col int) {
	for len(w.rows) < row {
		w.rows = append(w.rows, nil)
	}
	for len(w.rows[row-1]) < col {
		w.rows[row-1] = append(w.rows[row-1], "")
	}
}

func (w *Worksheet) setRow(row int, vals []string) {
	w.grow(row, len(vals))
	copy(w.rows[row-1], vals)
}

// Batch 返回支持批量写入的视图（共享同一份数据与调用记录）
func (w *Worksheet) Batch() *BatchWorksheet {
	return &BatchWorksheet{Worksheet: w}
}

// BatchWorksheet 额外实现 sheet.BatchUpdater
type BatchWorksheet struct {
	*Worksheet
}

var _ sheet.BatchUpdater = (*BatchWorksheet)(nil)

func (b *BatchWorksheet) UpdateRows(ctx context.Context, updates []sheet.RowUpdate) error {
	w := b.Worksheet
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(ctx, Call{Op: OpUpdateRows, Rows: append([]sheet.RowUpdate(nil), updates...)}); err != nil {
		return err
	}
	for _, u := range updates {
		w.setRow(u.Row, sheet.FormatRow(u.Values))
	}
	return nil
}

// BatchSpreadsheet 打开的工作表都带批量写入能力
type BatchSpreadsheet struct {
	*Spreadsheet
}

func (s BatchSpreadsheet) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	ws, err := s.Spreadsheet.Worksheet(ctx, name)
	if err != nil {
		return nil, err
	}
	return ws.(*Worksheet).Batch(), nil
}
