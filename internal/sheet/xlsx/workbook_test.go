package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

func openTemp(t *testing.T) *Workbook {
	t.Helper()
	path := filepath.Join(t.TempDir(), "LifeAdventure.xlsx")
	wb, err := Open(path, model.Schemas())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func TestOpen_BootstrapsHeaders(t *testing.T) {
	wb := openTemp(t)
	ctx := context.Background()

	if wb.Title() != "LifeAdventure" {
		t.Fatalf("title = %q", wb.Title())
	}
	for _, s := range model.Schemas() {
		ws, err := wb.Worksheet(ctx, s.Sheet)
		if err != nil {
			t.Fatalf("worksheet %s: %v", s.Sheet, err)
		}
		rows, err := ws.Values(ctx)
		if err != nil {
			t.Fatalf("values %s: %v", s.Sheet, err)
		}
		if len(rows) != 1 || len(rows[0]) != len(s.Header) || rows[0][0] != s.Header[0] {
			t.Fatalf("%s header = %#v", s.Sheet, rows)
		}
	}

	if _, err := wb.Worksheet(ctx, "Nope"); !errors.Is(err, sheet.ErrWorksheetNotFound) {
		t.Fatalf("expected ErrWorksheetNotFound, got %v", err)
	}
}

func TestWorksheet_RoundTrip(t *testing.T) {
	wb := openTemp(t)
	ctx := context.Background()

	ws, err := wb.Worksheet(ctx, model.SheetBudget)
	if err != nil {
		t.Fatalf("worksheet: %v", err)
	}
	for _, row := range [][]any{{"飲食", "5000"}, {"交通", "1500"}, {"預備金", "3000"}} {
		if err := ws.AppendRow(ctx, row); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	cell, err := ws.Find(ctx, "交通")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cell.Row != 3 || cell.Col != 1 {
		t.Fatalf("find = %+v", cell)
	}
	if err := ws.UpdateCell(ctx, cell.Row, 2, "1800"); err != nil {
		t.Fatalf("update cell: %v", err)
	}
	if err := ws.DeleteRow(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ws.(sheet.BatchUpdater).UpdateRows(ctx, []sheet.RowUpdate{{Row: 3, Values: []any{"預備金", "3500"}}}); err != nil {
		t.Fatalf("update rows: %v", err)
	}

	// 重新打开，确认已落盘
	again, err := Open(wb.Path(), model.Schemas())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	ws2, _ := again.Worksheet(ctx, model.SheetBudget)
	rows, err := ws2.Values(ctx)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	want := [][]string{{"Item", "Budget"}, {"交通", "1800"}, {"預備金", "3500"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %#v", rows)
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Fatalf("rows[%d][%d] want=%q got=%q", i, j, want[i][j], rows[i][j])
			}
		}
	}

	if _, err := ws2.Find(ctx, "娛樂"); !errors.Is(err, sheet.ErrCellNotFound) {
		t.Fatalf("expected ErrCellNotFound, got %v", err)
	}
}
