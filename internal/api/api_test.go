package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/shanesun1208/LifeAdventure/internal/exporter"
	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/chat"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/reconcile"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
	"github.com/shanesun1208/LifeAdventure/internal/sheet/sheettest"
	"github.com/shanesun1208/LifeAdventure/internal/store"
)

var fixedNow = time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	doc    *sheettest.Spreadsheet
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	doc := sheettest.New("LifeAdventure")
	for _, s := range model.Schemas() {
		doc.Add(s.Sheet, s.Header)
	}
	doc.Sheet(model.SheetSetting).AppendRow(context.Background(), []any{settings.KeyType1Options, "飲食,交通"})

	journal, err := store.New(filepath.Join(t.TempDir(), "lifeadventure.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	now := func() time.Time { return fixedNow }
	sh := sheets.New(doc, nil, sheets.Options{})
	st := settings.New(sh)
	reg := category.New(st)
	led := ledger.New(sh, st, reg, now)
	qs := quest.New(sh, st, reg, now)

	h := NewHandler(Deps{
		Sheets:    sh,
		Settings:  st,
		Ledger:    led,
		Quests:    qs,
		Chat:      chat.New(sh, st, led, qs, nil, nil, chat.Options{Now: now}),
		Editor:    reconcile.NewEditor(reconcile.Options{Journal: journal, Invalidator: sh, Now: now}),
		Journal:   journal,
		ExportDir: t.TempDir(),
		Now:       now,
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return &testEnv{doc: doc, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func expense(date, item string, price int, type1, type2 string) map[string]any {
	return map[string]any{
		"date":  date,
		"item":  item,
		"price": price,
		"type1": map[string]string{"value": type1},
		"type2": map[string]string{"value": type2},
	}
}

func TestStatusAndHome(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/status", nil)
	expectStatus(t, w, http.StatusOK)
	status := decode[StatusResponse](t, w)
	if status.Document != "LifeAdventure" {
		t.Fatalf("document = %q", status.Document)
	}
	if status.LastSyncAt != "" {
		t.Fatalf("lastSyncAt = %q, want empty before any edit", status.LastSyncAt)
	}

	env.do(t, http.MethodPost, "/api/quests", map[string]any{"name": "晨跑"})
	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/2/claim", nil), http.StatusOK)

	w = env.do(t, http.MethodGet, "/api/home", nil)
	expectStatus(t, w, http.StatusOK)
	home := decode[HomeResponse](t, w)
	if home.Briefing.Time != "2025-06-18 09:30" {
		t.Fatalf("briefing time = %q", home.Briefing.Time)
	}
	if home.Location != "Taipei,TW" {
		t.Fatalf("location = %q", home.Location)
	}
	if len(home.Tracking) != 1 || home.Tracking[0].Name != "晨跑" {
		t.Fatalf("tracking = %+v", home.Tracking)
	}
}

func TestFinance_AddExpenseAndSummary(t *testing.T) {
	env := newTestEnv(t)

	body := expense("2025-06-02", "晚餐", 180, "飲食", category.AddNewLabel)
	body["type2"] = map[string]string{"value": category.AddNewLabel, "newText": "宵夜"}
	w := env.do(t, http.MethodPost, "/api/finance/expenses", body)
	expectStatus(t, w, http.StatusCreated)

	appends := env.doc.Sheet(model.SheetFinance).CallsOf(sheettest.OpAppend)
	if len(appends) != 1 || strings.Join(appends[0].Values, ",") != "2025-06-02,23,晚餐,180,飲食,宵夜" {
		t.Fatalf("appends = %+v", appends)
	}

	w = env.do(t, http.MethodPost, "/api/finance/income", map[string]any{
		"date": "2025/6/5", "item": "薪資", "amount": "40000", "type": map[string]string{"value": "薪資"},
	})
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodGet, "/api/finance/summary?month=2025-06", nil)
	expectStatus(t, w, http.StatusOK)
	sum := decode[map[string]any](t, w)
	if sum["totalActualSpent"] != float64(180) || sum["totalIncome"] != float64(40000) {
		t.Fatalf("summary = %v", sum)
	}

	w = env.do(t, http.MethodGet, "/api/finance/options", nil)
	expectStatus(t, w, http.StatusOK)
	opts := decode[FinanceOptions](t, w)
	if !contains(opts.Type2, "宵夜") {
		t.Fatalf("type2 options = %v, want the new category", opts.Type2)
	}
	if !contains(opts.BudgetItems, model.ReserveItem) {
		t.Fatalf("budget items = %v", opts.BudgetItems)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func TestFinance_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/finance/expenses", expense("不是日期", "x", 1, "飲食", "午餐"))
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-01", "x", -5, "飲食", "午餐"))
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodDelete, "/api/finance/fixed/abc", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodDelete, "/api/finance/fixed/9", nil)
	expectStatus(t, w, http.StatusNotFound)

	if n := len(env.doc.Sheet(model.SheetFinance).Writes()); n != 0 {
		t.Fatalf("writes = %d, want none after rejected input", n)
	}
}

func TestFinance_Budget(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/finance/budget", map[string]any{"item": "旅遊", "amount": 100})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPut, "/api/finance/budget", map[string]any{"item": "飲食", "amount": 5000})
	expectStatus(t, w, http.StatusOK)

	path := "/api/finance/budget/" + url.PathEscape("飲食")
	expectStatus(t, env.do(t, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodDelete, path, nil), http.StatusNotFound)
}

func TestFinance_FixedAndReserve(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/finance/fixed", map[string]any{
		"item": "房租", "type": map[string]string{"value": "房租"}, "amount": 12000,
		"paidBy": map[string]string{"value": "現金"}, "cycle": "月繳", "cycleDetail": "5",
	})
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodPost, "/api/finance/reserve", map[string]any{"amount": 3000, "note": "年終"})
	expectStatus(t, w, http.StatusCreated)
	rows := env.doc.Sheet(model.SheetReserveFund).Rows()
	if got := strings.Join(rows[1], ","); got != "2025-06-18,存入,3000,年終" {
		t.Fatalf("reserve row = %s", got)
	}

	w = env.do(t, http.MethodGet, "/api/finance/fixed", nil)
	expectStatus(t, w, http.StatusOK)
	fixed := decode[map[string]any](t, w)
	if items, _ := fixed["items"].([]any); len(items) != 1 {
		t.Fatalf("fixed = %v", fixed)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/finance/fixed/2", nil), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/sync", nil), http.StatusOK)
}

func TestQuests_Transitions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/quests", map[string]any{"name": ""})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/quests", map[string]any{
		"name": "整理書櫃", "content": "丟掉舊雜誌", "type": map[string]string{"value": "家務"},
	})
	expectStatus(t, w, http.StatusCreated)
	q := decode[model.Quest](t, w)
	if q.Row != 2 || q.Deadline != "2025-06-25" || q.Reward != model.NoReward {
		t.Fatalf("quest = %+v", q)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/2/complete", nil), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/2/claim", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/2/claim", nil), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/quests/2", nil), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/2/abandon", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/api/quests/3/claim", nil), http.StatusNotFound)

	w = env.do(t, http.MethodGet, "/api/quests", nil)
	expectStatus(t, w, http.StatusOK)
	board := decode[quest.Board](t, w)
	if len(board.Unclaimed) != 1 || len(board.InProgress) != 0 {
		t.Fatalf("board = %+v", board)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/quests/2", nil), http.StatusNoContent)
}

func TestAdventures(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/adventures", map[string]any{"name": "學吉他", "kind": "持續修練", "startDate": "2025-06-01"})
	expectStatus(t, w, http.StatusCreated)
	a := decode[model.Adventure](t, w)
	if a.Row != 2 || a.Kind != model.AdventureContinuous {
		t.Fatalf("adventure = %+v", a)
	}

	expectStatus(t, env.do(t, http.MethodPatch, "/api/adventures/2", map[string]any{}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPatch, "/api/adventures/2", map[string]any{"status": "睡覺"}), http.StatusBadRequest)

	w = env.do(t, http.MethodPatch, "/api/adventures/2", map[string]any{"link": " https://notion.so/guitar ", "status": "暫停"})
	expectStatus(t, w, http.StatusOK)
	a = decode[model.Adventure](t, w)
	if a.Status != model.AdventurePaused || a.Link != "https://notion.so/guitar" {
		t.Fatalf("adventure = %+v", a)
	}

	w = env.do(t, http.MethodGet, "/api/adventures", nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[quest.Adventures](t, w)
	if len(list.Continuous) != 1 || len(list.Instance) != 0 {
		t.Fatalf("adventures = %+v", list)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/adventures/2", nil), http.StatusNoContent)
}

func TestEditor_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-01", "a", 1, "飲食", "午餐")), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-02", "b", 2, "飲食", "午餐")), http.StatusCreated)

	expectStatus(t, env.do(t, http.MethodGet, "/api/editor/"+model.SheetSetting, nil), http.StatusBadRequest)

	w := env.do(t, http.MethodGet, "/api/editor/"+model.SheetFinance, nil)
	expectStatus(t, w, http.StatusOK)
	ed := decode[EditorResponse](t, w)
	if len(ed.Rows) != 2 || ed.Rows[0].Index != 1 {
		t.Fatalf("editor rows = %+v", ed.Rows)
	}
	if len(ed.Hidden) != 1 || ed.Hidden[0] != model.ColWeek {
		t.Fatalf("hidden = %v", ed.Hidden)
	}

	ed.Rows[0].Values[model.ColItem] = "b2"
	ed.Rows[1].Delete = true
	save := map[string]any{"token": ed.Token, "rows": ed.Rows}

	w = env.do(t, http.MethodPost, "/api/editor/"+model.SheetFinance, save)
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Changed bool              `json:"changed"`
		Report  *reconcile.Report `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Changed || len(resp.Report.Deleted) != 1 || resp.Report.Deleted[0] != 2 || len(resp.Report.Updated) != 1 || resp.Report.Updated[0] != 3 {
		t.Fatalf("report = %+v", resp.Report)
	}

	rows := env.doc.Sheet(model.SheetFinance).Rows()
	if len(rows) != 2 || strings.Join(rows[1], ",") != "2025-06-02,23,b2,2,飲食,午餐" {
		t.Fatalf("rows = %v", rows)
	}

	// 快照只能提交一次
	expectStatus(t, env.do(t, http.MethodPost, "/api/editor/"+model.SheetFinance, save), http.StatusGone)

	w = env.do(t, http.MethodGet, "/api/editor/history", nil)
	expectStatus(t, w, http.StatusOK)
	var hist struct {
		Batches []*store.SyncBatch `json:"batches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist.Batches) != 1 || len(hist.Batches[0].Ops) != 2 {
		t.Fatalf("history = %+v", hist.Batches)
	}

	status := decode[StatusResponse](t, env.do(t, http.MethodGet, "/api/status", nil))
	if status.LastSyncAt == "" {
		t.Fatal("lastSyncAt should be set after an editor save")
	}
}

func TestEditor_InvalidCellRejectedBeforeWrite(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-01", "a", 1, "飲食", "午餐")), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-02", "b", 2, "飲食", "午餐")), http.StatusCreated)

	ed := decode[EditorResponse](t, env.do(t, http.MethodGet, "/api/editor/"+model.SheetFinance, nil))
	ed.Rows[0].Values[model.ColPrice] = "-500"
	ed.Rows[1].Values[model.ColDate] = "not-a-date"

	w := env.do(t, http.MethodPost, "/api/editor/"+model.SheetFinance, map[string]any{"token": ed.Token, "rows": ed.Rows})
	expectStatus(t, w, http.StatusBadRequest)

	ws := env.doc.Sheet(model.SheetFinance)
	if n := len(ws.CallsOf(sheettest.OpUpdateRow)); n != 0 {
		t.Fatalf("update_row calls = %d, want 0", n)
	}
	if n := len(ws.CallsOf(sheettest.OpDelete)); n != 0 {
		t.Fatalf("delete calls = %d, want 0", n)
	}

	// 校验失败不消耗快照，改正后可以再提交
	ed.Rows[0].Values[model.ColPrice] = "5"
	ed.Rows[1].Values[model.ColDate] = "2025-06-03"
	w = env.do(t, http.MethodPost, "/api/editor/"+model.SheetFinance, map[string]any{"token": ed.Token, "rows": ed.Rows})
	expectStatus(t, w, http.StatusOK)
	if n := len(ws.CallsOf(sheettest.OpUpdateRow)); n != 2 {
		t.Fatalf("update_row calls = %d, want 2", n)
	}
}

func TestEditor_NoChanges(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/income", map[string]any{
		"date": "2025-06-05", "item": "薪資", "amount": 1, "type": map[string]string{"value": "薪資"},
	}), http.StatusCreated)

	ed := decode[EditorResponse](t, env.do(t, http.MethodGet, "/api/editor/"+model.SheetIncome+"?all=true", nil))
	w := env.do(t, http.MethodPost, "/api/editor/"+model.SheetIncome, map[string]any{"token": ed.Token, "rows": ed.Rows})
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["changed"] != false {
		t.Fatalf("resp = %v", got)
	}
	if n := len(env.doc.Sheet(model.SheetIncome).Writes()); n != 1 {
		t.Fatalf("writes = %d, want only the original append", n)
	}

	w = env.do(t, http.MethodPost, "/api/editor/"+model.SheetFinance, map[string]any{"token": "nope", "rows": []any{}})
	expectStatus(t, w, http.StatusGone)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.do(t, http.MethodPatch, "/api/settings", map[string]any{"updates": map[string]string{}}), http.StatusBadRequest)

	w := env.do(t, http.MethodPatch, "/api/settings", map[string]any{"updates": map[string]string{
		settings.KeyLifeGoal: "環島一周",
		settings.KeyLocation: "Tainan,TW",
	}})
	expectStatus(t, w, http.StatusOK)
	all := decode[map[string]string](t, w)
	if all[settings.KeyLifeGoal] != "環島一周" || all[settings.KeyLocation] != "Tainan,TW" {
		t.Fatalf("settings = %v", all)
	}
	if all[settings.KeyType1Options] != "飲食,交通" {
		t.Fatalf("type1 = %q", all[settings.KeyType1Options])
	}
}

func TestSettings_MissingSheet(t *testing.T) {
	env := newTestEnv(t)
	env.doc.Remove(model.SheetSetting)

	w := env.do(t, http.MethodPatch, "/api/settings", map[string]any{"updates": map[string]string{
		settings.KeyLifeGoal: "環島一周",
	}})
	expectStatus(t, w, http.StatusConflict)
	if msg := decode[map[string]string](t, w)["error"]; !strings.Contains(msg, "Setting worksheet missing") {
		t.Fatalf("error = %q", msg)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/settings", nil), http.StatusOK)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": ""}), http.StatusBadRequest)

	w := env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "在嗎"})
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Reply model.ChatMessage `json:"reply"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply.Message != chat.FallbackReply {
		t.Fatalf("reply = %+v", resp.Reply)
	}

	w = env.do(t, http.MethodGet, "/api/chat/history", nil)
	expectStatus(t, w, http.StatusOK)
	var hist struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Role != model.RoleUser {
		t.Fatalf("history = %+v", hist.Messages)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/chat/history?limit=x", nil), http.StatusBadRequest)

	w = env.do(t, http.MethodGet, "/api/chat/loading", nil)
	expectStatus(t, w, http.StatusOK)
	var loading struct {
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loading); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(loading.Messages) != len(chat.DefaultLoadingMessages) {
		t.Fatalf("loading = %v", loading.Messages)
	}
}

func TestExport_Download(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodPost, "/api/finance/expenses", expense("2025-06-02", "晚餐", 180, "飲食", "晚餐")), http.StatusCreated)

	expectStatus(t, env.do(t, http.MethodGet, "/api/finance/export?month=六月", nil), http.StatusBadRequest)

	w := env.do(t, http.MethodGet, "/api/finance/export?month=2025-06", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content-type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "LifeAdventure_2025-06.xlsx") {
		t.Fatalf("content-disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	item, err := f.GetCellValue(exporter.SheetExpenses, "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if item != "晚餐" {
		t.Fatalf("expense item = %q", item)
	}
}

func TestExport_StreamThenDownloadOnce(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/finance/export/stream", nil)
	expectStatus(t, w, http.StatusOK)
	body := w.Body.String()
	if !strings.Contains(body, `"type":"start"`) || !strings.Contains(body, `"type":"done"`) {
		t.Fatalf("events = %s", body)
	}

	m := regexp.MustCompile(`"downloadUrl":"([^"]+)"`).FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no download url in %s", body)
	}
	expectStatus(t, env.do(t, http.MethodGet, m[1], nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, m[1], nil), http.StatusNotFound)
}

func TestBuildExportContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildExportContentDisposition("2025-06")
	want := "attachment; filename=\"LifeAdventure_2025-06.xlsx\"; filename*=UTF-8''LifeAdventure_2025-06.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestTokenStore_Expiry(t *testing.T) {
	t.Parallel()

	s := newTokenStore[string]()
	live := s.put("a", time.Minute)
	dead := s.put("b", -time.Second)

	if v, ok := s.get(live); !ok || v != "a" {
		t.Fatalf("get live = %q, %v", v, ok)
	}
	if _, ok := s.get(dead); ok {
		t.Fatal("expired token should be gone")
	}
	s.delete(live)
	if _, ok := s.get(live); ok {
		t.Fatal("deleted token should be gone")
	}
}
