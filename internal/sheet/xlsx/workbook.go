// Package xlsx 基于本地 xlsx 工作簿的表格文档后端
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// Workbook 本地工作簿；每次写入后立即落盘
type Workbook struct {
	path string

	mu sync.Mutex
	f  *excelize.File
}

var _ sheet.Spreadsheet = (*Workbook)(nil)

// Open 打开（或创建）工作簿，并补齐缺失的工作表与表头
func Open(path string, schemas []model.Schema) (*Workbook, error) {
	var (
		f       *excelize.File
		err     error
		created bool
	)
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create workbook dir: %w", err)
		}
		f = excelize.NewFile()
		created = true
	} else {
		return nil, fmt.Errorf("stat workbook %s: %w", path, statErr)
	}

	wb := &Workbook{path: path, f: f}
	changed, err := wb.bootstrap(schemas, created)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if changed {
		if err := f.SaveAs(path); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("save workbook %s: %w", path, err)
		}
	}
	return wb, nil
}

func (wb *Workbook) bootstrap(schemas []model.Schema, created bool) (bool, error) {
	changed := created
	for i, s := range schemas {
		idx, err := wb.f.GetSheetIndex(s.Sheet)
		if err != nil {
			return false, fmt.Errorf("lookup sheet %s: %w", s.Sheet, err)
		}
		if idx >= 0 {
			continue
		}
		// 新建工作簿自带的默认工作表直接改名复用
		if created && i == 0 {
			if err := wb.f.SetSheetName(wb.f.GetSheetName(0), s.Sheet); err != nil {
				return false, fmt.Errorf("rename default sheet: %w", err)
			}
		} else if _, err := wb.f.NewSheet(s.Sheet); err != nil {
			return false, fmt.Errorf("create sheet %s: %w", s.Sheet, err)
		}
		header := make([]any, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := wb.f.SetSheetRow(s.Sheet, "A1", &header); err != nil {
			return false, fmt.Errorf("write header %s: %w", s.Sheet, err)
		}
		changed = true
	}
	return changed, nil
}

// Title 文件名（不含扩展名）
func (wb *Workbook) Title() string {
	base := filepath.Base(wb.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Path 工作簿路径
func (wb *Workbook) Path() string {
	return wb.path
}

// Close 关闭工作簿
func (wb *Workbook) Close() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return wb.f.Close()
}

// Worksheet 实现 sheet.Spreadsheet
func (wb *Workbook) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()
	idx, err := wb.f.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("lookup sheet %s: %w", name, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w", name, sheet.ErrWorksheetNotFound)
	}
	return &worksheet{wb: wb, name: name}, nil
}

// withWrite 加锁执行修改并落盘
func (wb *Workbook) withWrite(fn func(f *excelize.File) error) error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if err := fn(wb.f); err != nil {
		return err
	}
	if err := wb.f.SaveAs(wb.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", wb.path, err)
	}
	return nil
}

type worksheet struct {
	wb   *Workbook
	name string
}

var (
	_ sheet.Worksheet    = (*worksheet)(nil)
	_ sheet.BatchUpdater = (*worksheet)(nil)
)

func (w *worksheet) Name() string { return w.name }

func (w *worksheet) Values(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.wb.mu.Lock()
	defer w.wb.mu.Unlock()
	rows, err := w.wb.f.GetRows(w.name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.name, err)
	}
	return rows, nil
}

func (w *worksheet) AppendRow(ctx context.Context, values []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.wb.withWrite(func(f *excelize.File) error {
		rows, err := f.GetRows(w.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", w.name, err)
		}
		return setRow(f, w.name, len(rows)+1, values)
	})
}

func (w *worksheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.wb.withWrite(func(f *excelize.File) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return fmt.Errorf("cell (%d,%d): %w", row, col, err)
		}
		if err := f.SetCellValue(w.name, cell, sheet.FormatValue(value)); err != nil {
			return fmt.Errorf("update %s!%s: %w", w.name, cell, err)
		}
		return nil
	})
}

func (w *worksheet) UpdateRow(ctx context.Context, row int, values []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.wb.withWrite(func(f *excelize.File) error {
		return setRow(f, w.name, row, values)
	})
}

// UpdateRows 多行修改只落盘一次
func (w *worksheet) UpdateRows(ctx context.Context, updates []sheet.RowUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.wb.withWrite(func(f *excelize.File) error {
		for _, u := range updates {
			if err := setRow(f, w.name, u.Row, u.Values); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *worksheet) DeleteRow(ctx context.Context, row int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.wb.withWrite(func(f *excelize.File) error {
		if err := f.RemoveRow(w.name, row); err != nil {
			return fmt.Errorf("delete %s row %d: %w", w.name, row, err)
		}
		return nil
	})
}

func (w *worksheet) Find(ctx context.Context, text string) (sheet.Cell, error) {
	rows, err := w.Values(ctx)
	if err != nil {
		return sheet.Cell{}, err
	}
	for i, r := range rows {
		for j, v := range r {
			if strings.TrimSpace(v) == text {
				return sheet.Cell{Row: i + 1, Col: j + 1, Value: v}, nil
			}
		}
	}
	return sheet.Cell{}, fmt.Errorf("%s in %s: %w", text, w.name, sheet.ErrCellNotFound)
}

func setRow(f *excelize.File, name string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = sheet.FormatValue(v)
	}
	if err := f.SetSheetRow(name, cell, &vals); err != nil {
		return fmt.Errorf("write %s!%s: %w", name, cell, err)
	}
	return nil
}
