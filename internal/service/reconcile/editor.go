package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shanesun1208/LifeAdventure/internal/retry"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
	"github.com/shanesun1208/LifeAdventure/internal/store"
)

// Journal 回写日志
type Journal interface {
	SaveSyncBatch(b *store.SyncBatch) error
}

// Invalidator 回写后清除读缓存
type Invalidator interface {
	Invalidate(names ...string)
}

// Options 编辑器参数
type Options struct {
	Retry retry.Policy
	// BatchUpdates 工作表支持时，把所有整行更新合并为一次请求
	BatchUpdates bool
	Journal      Journal
	Invalidator  Invalidator
	Now          func() time.Time
}

// Editor 执行 Plan
type Editor struct {
	opts Options
}

// NewEditor 创建编辑器
func NewEditor(opts Options) *Editor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Editor{opts: opts}
}

// Report 回写结果；失败时 Err 非 nil，之前已成功的修改不会回滚
type Report struct {
	ID         string         `json:"id"`
	Table      string         `json:"table"`
	Deleted    []int          `json:"deleted"`
	Updated    []int          `json:"updated"` // 快照时的行号
	Ops        []store.SyncOp `json:"ops"`
	Failed     *store.SyncOp  `json:"failed,omitempty"`
	Err        error          `json:"-"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// OK 全部修改都已执行
func (r *Report) OK() bool {
	return r.Err == nil
}

// Apply 先按从大到小的行号逐行删除，再执行更新
// 每次远端调用都经过重试；某次调用最终失败即停止，剩余操作记为 skipped
func (e *Editor) Apply(ctx context.Context, ws sheet.Worksheet, plan *Plan) *Report {
	r := &Report{
		ID:        uuid.NewString(),
		Table:     plan.Table,
		Deleted:   []int{},
		Updated:   []int{},
		Ops:       make([]store.SyncOp, 0, len(plan.Deletes)+len(plan.Updates)),
		StartedAt: e.opts.Now(),
	}
	defer e.finish(r)

	for _, row := range plan.Deletes {
		r.Ops = append(r.Ops, store.SyncOp{Seq: len(r.Ops) + 1, Kind: store.OpDelete, Row: row, OriginalRow: row, Status: store.StatusSkipped})
	}
	firstUpdate := len(r.Ops)
	for _, u := range plan.Updates {
		r.Ops = append(r.Ops, store.SyncOp{Seq: len(r.Ops) + 1, Kind: store.OpUpdate, Row: u.Row, OriginalRow: u.OriginalRow, Status: store.StatusSkipped})
	}

	for i, row := range plan.Deletes {
		row := row
		if !e.exec(ctx, r, []int{i}, func(ctx context.Context) error {
			return ws.DeleteRow(ctx, row)
		}) {
			return r
		}
	}

	if len(plan.Updates) == 0 {
		return r
	}

	if bu, ok := ws.(sheet.BatchUpdater); ok && e.opts.BatchUpdates {
		rows := make([]sheet.RowUpdate, 0, len(plan.Updates))
		covers := make([]int, 0, len(plan.Updates))
		for i, u := range plan.Updates {
			rows = append(rows, sheet.RowUpdate{Row: u.Row, Values: u.Values})
			covers = append(covers, firstUpdate+i)
		}
		e.exec(ctx, r, covers, func(ctx context.Context) error {
			return bu.UpdateRows(ctx, rows)
		})
		return r
	}

	for i, u := range plan.Updates {
		u := u
		if !e.exec(ctx, r, []int{firstUpdate + i}, func(ctx context.Context) error {
			return ws.UpdateRow(ctx, u.Row, u.Values)
		}) {
			return r
		}
	}
	return r
}

// exec 带重试执行一次远端调用，结果记到 covers 指向的操作上；返回是否成功
func (e *Editor) exec(ctx context.Context, r *Report, covers []int, call func(ctx context.Context) error) bool {
	err := retry.Do(ctx, e.opts.Retry, call)
	if err != nil {
		first := r.Ops[covers[0]]
		r.Err = fmt.Errorf("%s row %d: %w", first.Kind, first.OriginalRow, err)
		for _, j := range covers {
			r.Ops[j].Status = store.StatusFailed
			r.Ops[j].Error = err.Error()
		}
		failed := r.Ops[covers[0]]
		r.Failed = &failed
		return false
	}
	for _, j := range covers {
		r.Ops[j].Status = store.StatusApplied
		switch r.Ops[j].Kind {
		case store.OpDelete:
			r.Deleted = append(r.Deleted, r.Ops[j].OriginalRow)
		case store.OpUpdate:
			r.Updated = append(r.Updated, r.Ops[j].OriginalRow)
		}
	}
	return true
}

// finish 清缓存、写日志
func (e *Editor) finish(r *Report) {
	r.FinishedAt = e.opts.Now()
	if r.Err != nil {
		r.Error = r.Err.Error()
	}

	if e.opts.Invalidator != nil {
		e.opts.Invalidator.Invalidate(r.Table)
	}
	if e.opts.Journal != nil && len(r.Ops) > 0 {
		b := &store.SyncBatch{
			ID:         r.ID,
			Worksheet:  r.Table,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Error:      r.Error,
			Ops:        r.Ops,
		}
		if err := e.opts.Journal.SaveSyncBatch(b); err != nil {
			log.Printf("[reconcile] save sync batch %s failed: %v", r.ID, err)
		}
	}
}

// Opener 按名称打开工作表
type Opener interface {
	Worksheet(ctx context.Context, name string) (sheet.Worksheet, error)
}

// Sync 打开 Plan 对应的工作表并执行；打不开时不产生任何修改
func (e *Editor) Sync(ctx context.Context, opener Opener, plan *Plan) (*Report, error) {
	ws, err := opener.Worksheet(ctx, plan.Table)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", plan.Table, err)
	}
	return e.Apply(ctx, ws, plan), nil
}
