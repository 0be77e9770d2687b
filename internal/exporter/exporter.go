package exporter

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/calculator"
)

// 报表中的工作表
const (
	SheetSummary  = "月度摘要"
	SheetCategory = "分類統計"
	SheetExpenses = "支出明細"
	SheetIncome   = "收入明細"
)

// budgetHeaderRow 摘要页中预算表的表头行
const budgetHeaderRow = 13

// ExportOptions 导出选项
type ExportOptions struct {
	Month    string
	Metrics  *calculator.Metrics
	Tables   map[string]*model.Table // 至少包含 Finance、Income
	Progress func(ProgressEvent)
}

// MonthReport 生成月度报表：摘要、分类统计、当月支出和收入明细
func MonthReport(opts ExportOptions) (*excelize.File, error) {
	if opts.Metrics == nil {
		return nil, fmt.Errorf("导出 %s 缺少指标", opts.Month)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &writer{f: f}
	if err := w.init(); err != nil {
		_ = f.Close()
		return nil, err
	}

	steps := []struct {
		stage string
		run   func() error
	}{
		{"写入摘要", func() error { return w.summary(opts.Month, opts.Metrics) }},
		{"写入分类统计", func() error { return w.categories(opts.Metrics) }},
		{"写入支出明细", func() error {
			return w.ledger(SheetExpenses, opts.Tables[model.SheetFinance], opts.Month,
				[]string{model.ColDate, model.ColItem, model.ColPrice, model.ColType1, model.ColType2}, model.ColPrice)
		}},
		{"写入收入明细", func() error {
			return w.ledger(SheetIncome, opts.Tables[model.SheetIncome], opts.Month,
				[]string{model.ColDate, model.ColItem, model.ColAmount, model.ColType, model.ColNote}, model.ColAmount)
		}},
	}
	for i, s := range steps {
		reportProgress(opts.Progress, i*100/len(steps), s.stage)
		if err := s.run(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%s失败: %w", s.stage, err)
		}
	}
	reportProgress(opts.Progress, 100, "完成")

	f.SetActiveSheet(0)
	return f, nil
}

type writer struct {
	f      *excelize.File
	bold   int
	money  int
	header int
	pct    int
}

func (w *writer) init() error {
	var err error
	if w.bold, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return err
	}
	if w.header, err = w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFE699"}},
	}); err != nil {
		return err
	}
	// 3 = #,##0
	if w.money, err = w.f.NewStyle(&excelize.Style{NumFmt: 3}); err != nil {
		return err
	}
	// 10 = 0.00%
	if w.pct, err = w.f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return err
	}
	return nil
}

func (w *writer) setRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *writer) styleRow(sheet string, row, cols, style int) error {
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, from, to, style)
}

func (w *writer) styleCol(sheet string, col, fromRow, toRow, style int) error {
	if toRow < fromRow {
		return nil
	}
	from, err := excelize.CoordinatesToCellName(col, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col, toRow)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, from, to, style)
}

func money(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

func (w *writer) summary(month string, m *calculator.Metrics) error {
	sheet := SheetSummary
	if err := w.f.SetCellValue(sheet, "A1", fmt.Sprintf("%s 月度報表", month)); err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheet, "A1", "A1", w.bold); err != nil {
		return err
	}
	if err := w.f.SetCellValue(sheet, "A2", "產生時間: "+time.Now().Format("2006-01-02 15:04")); err != nil {
		return err
	}

	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{"本月收入", m.TotalIncome},
		{"固定開銷(月均計畫)", m.TotalFixedPlan},
		{"本月實際支出", m.TotalActualSpent},
		{"已入帳固定開銷", m.ActualFixedSpent},
		{"尚未入帳固定開銷", m.RemainingUnpaidFixed},
		{"預備金目標", m.ReserveGoal},
		{"預備金餘額", m.CurrentReserveBalance},
		{"可自由運用", m.FreeCash},
	}
	const first = 4
	for i, l := range lines {
		if err := w.setRow(sheet, first+i, []any{l.label, money(l.value)}); err != nil {
			return err
		}
	}
	if err := w.styleCol(sheet, 2, first, first+len(lines)-1, w.money); err != nil {
		return err
	}

	header := []any{"項目", "預算", "已花費", "剩餘", "使用率", "超支"}
	if err := w.setRow(sheet, budgetHeaderRow, header); err != nil {
		return err
	}
	if err := w.styleRow(sheet, budgetHeaderRow, len(header), w.header); err != nil {
		return err
	}
	row := budgetHeaderRow + 1
	for _, b := range m.Budgets {
		if err := w.setRow(sheet, row, []any{b.Item, money(b.Target), money(b.Spent), money(b.Remaining), b.Ratio, money(b.Overspend)}); err != nil {
			return err
		}
		row++
	}
	if m.Reserve.Item != "" {
		r := m.Reserve
		if err := w.setRow(sheet, row, []any{r.Item, money(r.Goal), money(r.Deposited), money(r.Goal.Sub(r.Deposited)), r.Ratio, 0}); err != nil {
			return err
		}
		row++
	}
	for col := 2; col <= 6; col++ {
		style := w.money
		if col == 5 {
			style = w.pct
		}
		if err := w.styleCol(sheet, col, budgetHeaderRow+1, row-1, style); err != nil {
			return err
		}
	}
	return w.f.SetColWidth(sheet, "A", "A", 22)
}

func (w *writer) categories(m *calculator.Metrics) error {
	sheet := SheetCategory
	if _, err := w.f.NewSheet(sheet); err != nil {
		return err
	}
	type kv struct {
		k string
		v decimal.Decimal
	}
	list := make([]kv, 0, len(m.SpentByCategory))
	for k, v := range m.SpentByCategory {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].v.Equal(list[j].v) {
			return list[i].v.GreaterThan(list[j].v)
		}
		return list[i].k < list[j].k
	})

	if err := w.setRow(sheet, 1, []any{"分類", "金額", "佔比"}); err != nil {
		return err
	}
	if err := w.styleRow(sheet, 1, 3, w.header); err != nil {
		return err
	}
	for i, e := range list {
		share := 0.0
		if m.TotalActualSpent.IsPositive() {
			share = e.v.Div(m.TotalActualSpent).InexactFloat64()
		}
		if err := w.setRow(sheet, i+2, []any{e.k, money(e.v), share}); err != nil {
			return err
		}
	}
	if err := w.styleCol(sheet, 2, 2, len(list)+1, w.money); err != nil {
		return err
	}
	return w.styleCol(sheet, 3, 2, len(list)+1, w.pct)
}

// ledger 写入当月流水，按日期升序；金额列写成数字
func (w *writer) ledger(sheet string, t *model.Table, month string, cols []string, amountCol string) error {
	if _, err := w.f.NewSheet(sheet); err != nil {
		return err
	}
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := w.setRow(sheet, 1, header); err != nil {
		return err
	}
	if err := w.styleRow(sheet, 1, len(cols), w.header); err != nil {
		return err
	}
	if t == nil {
		return nil
	}

	var recs []model.Record
	for _, r := range t.Records {
		if parser.InMonth(r.Get(model.ColDate), month) {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		di, _ := parser.ParseDate(recs[i].Get(model.ColDate))
		dj, _ := parser.ParseDate(recs[j].Get(model.ColDate))
		return di.Before(dj)
	})

	amountIdx := -1
	for i, r := range recs {
		row := make([]any, len(cols))
		for j, c := range cols {
			switch c {
			case amountCol:
				amountIdx = j
				row[j] = parser.ParseAmount(r.Get(c)).InexactFloat64()
			case model.ColDate:
				row[j] = parser.NormalizeDate(r.Get(c))
			default:
				row[j] = r.Get(c)
			}
		}
		if err := w.setRow(sheet, i+2, row); err != nil {
			return err
		}
	}
	if amountIdx >= 0 {
		if err := w.styleCol(sheet, amountIdx+1, 2, len(recs)+1, w.money); err != nil {
			return err
		}
	}
	return w.f.SetColWidth(sheet, "A", "A", 12)
}
