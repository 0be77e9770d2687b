package gsheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	limited  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	limited := f.limited
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case limited && r.Method != http.MethodGet:
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded","errors":[{"reason":"rateLimitExceeded"}]}}`)
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  "Budget!A1:B3",
			"values": [][]any{{"Item", "Budget"}, {"飲食", "5000"}, {"預備金", 3000}},
		})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"properties": map[string]any{"title": "LifeAdventure"},
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 0, "title": "Finance"}},
				map[string]any{"properties": map[string]any{"sheetId": 42, "title": "Budget"}},
			},
		})
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func newTestDocument(t *testing.T, api *fakeAPI) *Document {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	doc, err := NewWithService(ctx, svc, "sheet-id")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return doc
}

func TestDocument_ReadAndMissingWorksheet(t *testing.T) {
	api := &fakeAPI{}
	doc := newTestDocument(t, api)
	ctx := context.Background()

	if doc.Title() != "LifeAdventure" {
		t.Fatalf("title = %q", doc.Title())
	}
	ws, err := doc.Worksheet(ctx, "Budget")
	if err != nil {
		t.Fatalf("worksheet: %v", err)
	}
	rows, err := ws.Values(ctx)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(rows) != 3 || rows[2][1] != "3000" {
		t.Fatalf("rows = %#v", rows)
	}
	cell, err := ws.Find(ctx, "預備金")
	if err != nil || cell.Row != 3 || cell.Col != 1 {
		t.Fatalf("find = %+v %v", cell, err)
	}

	if _, err := doc.Worksheet(ctx, "QuestBoard"); err == nil || !strings.Contains(err.Error(), sheet.ErrWorksheetNotFound.Error()) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDocument_WritesAndRateLimit(t *testing.T) {
	api := &fakeAPI{}
	doc := newTestDocument(t, api)
	ctx := context.Background()

	ws, err := doc.Worksheet(ctx, "Finance")
	if err != nil {
		t.Fatalf("worksheet: %v", err)
	}
	if err := ws.DeleteRow(ctx, 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	api.mu.Lock()
	last := api.bodies[len(api.bodies)-1]
	api.mu.Unlock()
	// sheetId 为 0 也要出现在请求里
	if !strings.Contains(last, `"sheetId":0`) || !strings.Contains(last, `"startIndex":"3"`) && !strings.Contains(last, `"startIndex":3`) {
		t.Fatalf("unexpected delete body: %s", last)
	}

	if err := ws.(sheet.BatchUpdater).UpdateRows(ctx, []sheet.RowUpdate{{Row: 2, Values: []any{"2025-06-01", "22", "午餐", "120", "飲食", "午餐"}}}); err != nil {
		t.Fatalf("batch update: %v", err)
	}
	api.mu.Lock()
	last = api.bodies[len(api.bodies)-1]
	api.mu.Unlock()
	if !strings.Contains(last, `'Finance'!A2:F2`) {
		t.Fatalf("unexpected batch body: %s", last)
	}

	api.mu.Lock()
	api.limited = true
	api.mu.Unlock()
	err = ws.AppendRow(ctx, []any{"x"})
	if !sheet.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}
