package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", DefaultFileName))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSyncBatch_SaveAndList(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	first := &SyncBatch{
		ID:         "b1",
		Worksheet:  "Finance",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Ops: []SyncOp{
			{Seq: 1, Kind: OpDelete, Row: 9, OriginalRow: 9, Status: StatusApplied},
			{Seq: 2, Kind: OpDelete, Row: 4, OriginalRow: 4, Status: StatusApplied},
			{Seq: 3, Kind: OpUpdate, Row: 4, OriginalRow: 5, Status: StatusFailed, Error: "rate limited"},
			{Seq: 4, Kind: OpUpdate, Row: 6, OriginalRow: 8, Status: StatusSkipped},
		},
		Error: "rate limited",
	}
	second := &SyncBatch{
		ID:         "b2",
		Worksheet:  "Income",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Second),
	}
	for _, b := range []*SyncBatch{first, second} {
		if err := s.SaveSyncBatch(b); err != nil {
			t.Fatalf("save %s: %v", b.ID, err)
		}
	}

	list, err := s.ListSyncBatches(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b2" || list[1].ID != "b1" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if len(list[0].Ops) != 0 {
		t.Fatalf("b2 should have no ops")
	}

	got, err := s.GetSyncBatch("b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Ops) != 4 || got.Ops[2].OriginalRow != 5 || got.Ops[2].Error != "rate limited" {
		t.Fatalf("unexpected ops: %+v", got.Ops)
	}
	if got.Count(OpDelete, StatusApplied) != 2 || got.Count(OpUpdate, StatusSkipped) != 1 {
		t.Fatalf("unexpected counts")
	}
	if !got.StartedAt.Equal(start) {
		t.Fatalf("startedAt = %v", got.StartedAt)
	}

	if !s.LastSyncAt().Equal(second.FinishedAt) {
		t.Fatalf("last sync = %v", s.LastSyncAt())
	}
	if _, err := s.GetSyncBatch("nope"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMeta(t *testing.T) {
	s := newTestStore(t)

	if !s.LastSyncAt().IsZero() {
		t.Fatalf("fresh store should have no sync time")
	}
	if err := s.SetMeta("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetMeta("k", "v2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.GetMeta("k")
	if err != nil || v != "v2" {
		t.Fatalf("get = %q %v", v, err)
	}
	all, err := s.GetAllMeta()
	if err != nil || len(all) != 1 {
		t.Fatalf("all = %v %v", all, err)
	}
}
