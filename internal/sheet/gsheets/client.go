// Package gsheets 基于 Google Sheets v4 API 的表格文档后端
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

const valueInputOption = "USER_ENTERED"

// Options 连接参数
type Options struct {
	SpreadsheetID   string
	CredentialsFile string // service account json 文件
	CredentialsJSON []byte // 优先于 CredentialsFile
}

// Document 一个远端表格文档
type Document struct {
	svc *gsheet.Service
	id  string

	mu     sync.Mutex
	title  string
	sheets map[string]int64 // 工作表名 -> sheetId
}

var _ sheet.Spreadsheet = (*Document)(nil)

// Open 使用 service account 凭据打开文档；读取元数据失败即返回错误
func Open(ctx context.Context, opts Options) (*Document, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds := opts.CredentialsJSON
	if len(creds) == 0 {
		if opts.CredentialsFile == "" {
			return nil, errors.New("missing service account credentials")
		}
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = b
	}

	cfg, err := google.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("service account config: %w", err)
	}
	svc, err := gsheet.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(ctx, svc, opts.SpreadsheetID)
}

// NewWithService 使用已有的 Service（测试可指向本地 endpoint）
func NewWithService(ctx context.Context, svc *gsheet.Service, spreadsheetID string) (*Document, error) {
	d := &Document{svc: svc, id: spreadsheetID}
	if err := d.refresh(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) refresh(ctx context.Context) error {
	resp, err := d.svc.Spreadsheets.Get(d.id).
		Fields("properties.title", "sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return classify("open spreadsheet", err)
	}
	sheets := make(map[string]int64, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		sheets[s.Properties.Title] = s.Properties.SheetId
	}
	d.mu.Lock()
	if resp.Properties != nil {
		d.title = resp.Properties.Title
	}
	d.sheets = sheets
	d.mu.Unlock()
	return nil
}

func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

// Worksheet 实现 sheet.Spreadsheet；本地元数据里没有时刷新一次
func (d *Document) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	if id, ok := d.lookup(name); ok {
		return &worksheet{doc: d, name: name, sheetID: id}, nil
	}
	if err := d.refresh(ctx); err != nil {
		return nil, err
	}
	if id, ok := d.lookup(name); ok {
		return &worksheet{doc: d, name: name, sheetID: id}, nil
	}
	return nil, fmt.Errorf("%s: %w", name, sheet.ErrWorksheetNotFound)
}

func (d *Document) lookup(name string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.sheets[name]
	return id, ok
}

type worksheet struct {
	doc     *Document
	name    string
	sheetID int64
}

var (
	_ sheet.Worksheet    = (*worksheet)(nil)
	_ sheet.BatchUpdater = (*worksheet)(nil)
)

func (w *worksheet) Name() string { return w.name }

// a1 带工作表名的 A1 区域；cell 为空时表示整张表
func (w *worksheet) a1(cell string) string {
	quoted := "'" + strings.ReplaceAll(w.name, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

func rowRange(row, width int) (string, error) {
	if width < 1 {
		width = 1
	}
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return "", err
	}
	end, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return "", err
	}
	return start + ":" + end, nil
}

func (w *worksheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := w.doc.svc.Spreadsheets.Values.Get(w.doc.id, w.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, classify("read "+w.name, err)
	}
	out := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		out[i] = sheet.FormatRow(r)
	}
	return out, nil
}

func (w *worksheet) AppendRow(ctx context.Context, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := w.doc.svc.Spreadsheets.Values.Append(w.doc.id, w.a1("A1"), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classify("append "+w.name, err)
	}
	return nil
}

func (w *worksheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell (%d,%d): %w", row, col, err)
	}
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}
	_, err = w.doc.svc.Spreadsheets.Values.Update(w.doc.id, w.a1(cell), vr).
		ValueInputOption(valueInputOption).
		Context(ctx).Do()
	if err != nil {
		return classify("update "+w.a1(cell), err)
	}
	return nil
}

func (w *worksheet) UpdateRow(ctx context.Context, row int, values []any) error {
	rng, err := rowRange(row, len(values))
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = w.doc.svc.Spreadsheets.Values.Update(w.doc.id, w.a1(rng), vr).
		ValueInputOption(valueInputOption).
		Context(ctx).Do()
	if err != nil {
		return classify("update "+w.a1(rng), err)
	}
	return nil
}

// UpdateRows 一次 values:batchUpdate 写入多行，只消耗一次写配额
func (w *worksheet) UpdateRows(ctx context.Context, updates []sheet.RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: valueInputOption}
	for _, u := range updates {
		rng, err := rowRange(u.Row, len(u.Values))
		if err != nil {
			return fmt.Errorf("row %d: %w", u.Row, err)
		}
		req.Data = append(req.Data, &gsheet.ValueRange{Range: w.a1(rng), Values: [][]any{u.Values}})
	}
	if _, err := w.doc.svc.Spreadsheets.Values.BatchUpdate(w.doc.id, req).Context(ctx).Do(); err != nil {
		return classify("batch update "+w.name, err)
	}
	return nil
}

func (w *worksheet) DeleteRow(ctx context.Context, row int) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    w.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// sheetId 为 0 时也必须发送
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := w.doc.svc.Spreadsheets.BatchUpdate(w.doc.id, req).Context(ctx).Do(); err != nil {
		return classify(fmt.Sprintf("delete %s row %d", w.name, row), err)
	}
	return nil
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

// classify 把配额类错误包装成 *sheet.RateLimitError
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			return &sheet.RateLimitError{Op: op, Err: err}
		}
		if gerr.Code == http.StatusForbidden {
			for _, item := range gerr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return &sheet.RateLimitError{Op: op, Err: err}
				}
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
