package store

import (
	"database/sql"
	"fmt"
	"time"
)

// 操作类型与结果
const (
	OpDelete = "delete"
	OpUpdate = "update"

	StatusApplied = "applied"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// SyncBatch 一次批量回写
type SyncBatch struct {
	ID         string    `json:"id"`
	Worksheet  string    `json:"worksheet"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Error      string    `json:"error,omitempty"`
	Ops        []SyncOp  `json:"ops"`
}

// SyncOp 批次中的一次远端修改
type SyncOp struct {
	Seq         int    `json:"seq"`
	Kind        string `json:"kind"`
	Row         int    `json:"row"`
	OriginalRow int    `json:"originalRow"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Count 指定类型、指定结果的操作数
func (b *SyncBatch) Count(kind, status string) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == kind && op.Status == status {
			n++
		}
	}
	return n
}

// SaveSyncBatch 保存一次回写记录，并刷新最近回写时间
func (s *Store) SaveSyncBatch(b *SyncBatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sync_batches (id, worksheet, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Worksheet, b.StartedAt.UTC().Format(time.RFC3339Nano), b.FinishedAt.UTC().Format(time.RFC3339Nano), b.Error)
	if err != nil {
		return fmt.Errorf("failed to insert sync batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sync_ops (batch_id, seq, kind, row_number, original_row, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sync op insert: %w", err)
	}
	defer stmt.Close()

	for _, op := range b.Ops {
		if _, err := stmt.Exec(b.ID, op.Seq, op.Kind, op.Row, op.OriginalRow, op.Status, op.Error); err != nil {
			return fmt.Errorf("failed to insert sync op: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, MetaLastSyncAt, b.FinishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}

	return tx.Commit()
}

// ListSyncBatches 最近的回写记录（新的在前）
func (s *Store) ListSyncBatches(limit int) ([]*SyncBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, worksheet, started_at, finished_at, error
		FROM sync_batches
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync batches: %w", err)
	}
	defer rows.Close()

	var batches []*SyncBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range batches {
		if b.Ops, err = s.listSyncOps(b.ID); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

// GetSyncBatch 按 ID 读取回写记录
func (s *Store) GetSyncBatch(id string) (*SyncBatch, error) {
	row := s.db.QueryRow(`
		SELECT id, worksheet, started_at, finished_at, error
		FROM sync_batches WHERE id = ?
	`, id)
	b, err := scanBatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sync batch not found: %s", id)
		}
		return nil, err
	}
	if b.Ops, err = s.listSyncOps(id); err != nil {
		return nil, err
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (*SyncBatch, error) {
	var (
		b                 SyncBatch
		started, finished string
	)
	if err := sc.Scan(&b.ID, &b.Worksheet, &started, &finished, &b.Error); err != nil {
		return nil, err
	}
	b.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	b.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return &b, nil
}

func (s *Store) listSyncOps(batchID string) ([]SyncOp, error) {
	rows, err := s.db.Query(`
		SELECT seq, kind, row_number, original_row, status, error
		FROM sync_ops WHERE batch_id = ?
		ORDER BY seq
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync ops: %w", err)
	}
	defer rows.Close()

	ops := []SyncOp{}
	for rows.Next() {
		var op SyncOp
		if err := rows.Scan(&op.Seq, &op.Kind, &op.Row, &op.OriginalRow, &op.Status, &op.Error); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
