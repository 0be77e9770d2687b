package exporter

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/calculator"
)

func reportTables() map[string]*model.Table {
	return map[string]*model.Table{
		model.SheetFinance: model.NewTable(model.SheetFinance, [][]string{
			model.FinanceSchema.Header,
			{"2025-06-10", "24", "電影", "300", "娛樂", ""},
			{"2025/6/2", "23", "午餐", "120", "飲食", "午餐"},
			{"2025-05-31", "22", "上月", "999", "飲食", ""},
		}),
		model.SheetIncome: model.NewTable(model.SheetIncome, [][]string{
			model.IncomeSchema.Header,
			{"2025-06-05", "薪資", "40,000", "薪資", "六月"},
		}),
		model.SheetBudget: model.NewTable(model.SheetBudget, [][]string{
			model.BudgetSchema.Header,
			{"飲食", "3000"},
			{"預備金", "5000"},
		}),
	}
}

func TestMonthReport_Sheets(t *testing.T) {
	tables := reportTables()
	m := calculator.Calculate("2025-06", calculator.InputFrom(tables))

	var stages []string
	f, err := MonthReport(ExportOptions{
		Month:    "2025-06",
		Metrics:  m,
		Tables:   tables,
		Progress: func(e ProgressEvent) { stages = append(stages, e.Stage) },
	})
	if err != nil {
		t.Fatalf("MonthReport: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 4 || got[0] != SheetSummary {
		t.Fatalf("unexpected sheets: %v", got)
	}
	if len(stages) != 5 || stages[4] != "完成" {
		t.Fatalf("unexpected progress: %v", stages)
	}

	income, _ := f.GetCellValue(SheetSummary, "B4", excelize.Options{RawCellValue: true})
	if income != "40000" {
		t.Fatalf("income cell = %q", income)
	}
	item, _ := f.GetCellValue(SheetSummary, "A14")
	if item != "飲食" {
		t.Fatalf("first budget line = %q", item)
	}

	rows, err := f.GetRows(SheetExpenses)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows of June, got %v", rows)
	}
	if rows[1][0] != "2025-06-02" || rows[2][1] != "電影" {
		t.Fatalf("expense rows not sorted by date: %v", rows)
	}

	cats, _ := f.GetRows(SheetCategory)
	if len(cats) != 3 || cats[1][0] != "娛樂" {
		t.Fatalf("categories should be sorted by amount: %v", cats)
	}
}

func TestMonthReport_RequiresMetrics(t *testing.T) {
	if _, err := MonthReport(ExportOptions{Month: "2025-06"}); err == nil {
		t.Fatalf("expected error without metrics")
	}
}
