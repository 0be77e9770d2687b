// Package sheet 定义表格文档的访问接口
// 后端：本地工作簿（xlsx）与 Google Sheets（gsheets），测试使用 sheettest
package sheet

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrWorksheetNotFound 工作表不存在
	ErrWorksheetNotFound = errors.New("worksheet not found")
	// ErrCellNotFound Find 未找到匹配的单元格
	ErrCellNotFound = errors.New("cell not found")
)

// Spreadsheet 一个表格文档
type Spreadsheet interface {
	Title() string
	// Worksheet 按名称打开工作表，不存在时返回 ErrWorksheetNotFound
	Worksheet(ctx context.Context, name string) (Worksheet, error)
}

// Worksheet 一个工作表；行号、列号均从 1 开始，第 1 行为表头
type Worksheet interface {
	Name() string
	// Values 返回全部单元格文本（含表头行）
	Values(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, values []any) error
	UpdateCell(ctx context.Context, row, col int, value any) error
	// UpdateRow 从第 1 列开始覆盖整行
	UpdateRow(ctx context.Context, row int, values []any) error
	DeleteRow(ctx context.Context, row int) error
	// Find 返回第一个文本完全相同的单元格，没有时返回 ErrCellNotFound
	Find(ctx context.Context, text string) (Cell, error)
}

// RowUpdate 批量写入中的一行
type RowUpdate struct {
	Row    int
	Values []any
}

// BatchUpdater 可选能力：一次请求写入多行
type BatchUpdater interface {
	UpdateRows(ctx context.Context, updates []RowUpdate) error
}

// Cell 单元格位置
type Cell struct {
	Row   int
	Col   int
	Value string
}

// RateLimitError 远端配额限流
type RateLimitError struct {
	Op  string
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: rate limited", e.Op)
	}
	return fmt.Sprintf("%s: rate limited: %v", e.Op, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited 是否为限流类错误（可重试）
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// FormatValue 单元格值转文本
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatRow 一行值转文本
func FormatRow(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = FormatValue(v)
	}
	return out
}
