// Package sheets 表格访问层：快照读取、并发拉取、读缓存与带重试的写入
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/retry"
	"github.com/shanesun1208/LifeAdventure/internal/service/cache"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// 默认参数
const (
	DefaultWorkers = 4
	DefaultTimeout = 15 * time.Second
)

// Options 访问层参数
type Options struct {
	Workers int           // 并发拉取的工作协程上限
	Timeout time.Duration // 单次远端调用超时
	Retry   retry.Policy
}

// Service 表格访问层
type Service struct {
	doc   sheet.Spreadsheet
	cache *cache.Cache
	opts  Options
}

// New 创建访问层
func New(doc sheet.Spreadsheet, c *cache.Cache, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if c == nil {
		c = cache.New(cache.DefaultTTLs())
	}
	return &Service{doc: doc, cache: c, opts: opts}
}

// Title 文档标题
func (s *Service) Title() string {
	return s.doc.Title()
}

// Cache 共享缓存
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// RetryPolicy 写入使用的重试策略
func (s *Service) RetryPolicy() retry.Policy {
	return s.opts.Retry
}

func tableKey(name string) string {
	return "table:" + name
}

func bucketFor(name string) cache.Bucket {
	if name == model.SheetSetting {
		return cache.BucketSettings
	}
	return cache.BucketLedger
}

// call 单次远端调用，附带超时
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return fn(ctx)
}

// Worksheet 打开工作表
func (s *Service) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	var ws sheet.Worksheet
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ws, err = s.doc.Worksheet(ctx, name)
		return err
	})
	return ws, err
}

// Table 读取工作表快照（走缓存）；工作表不存在时返回空快照
// 返回值为共享快照，调用方不得修改
func (s *Service) Table(ctx context.Context, name string) (*model.Table, error) {
	return cache.Fetch(s.cache, bucketFor(name), tableKey(name), func() (*model.Table, error) {
		return s.load(ctx, name)
	})
}

func (s *Service) load(ctx context.Context, name string) (*model.Table, error) {
	ws, err := s.Worksheet(ctx, name)
	if errors.Is(err, sheet.ErrWorksheetNotFound) {
		return model.EmptyTable(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	var values [][]string
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		values, err = ws.Values(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return model.NewTable(name, values), nil
}

// Tables 并发读取多张工作表，结果按名称返回
func (s *Service) Tables(ctx context.Context, names ...string) (map[string]*model.Table, error) {
	slots := make([]*model.Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := s.Table(gctx, name)
			if err != nil {
				return err
			}
			slots[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.Table, len(names))
	for i, name := range names {
		out[name] = slots[i]
	}
	return out, nil
}

// Exists 工作表是否存在
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Worksheet(ctx, name)
	if errors.Is(err, sheet.ErrWorksheetNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Resolve 返回候选名称中第一个存在的工作表（兼容旧版文档）
func (s *Service) Resolve(ctx context.Context, names ...string) (string, error) {
	for _, name := range names {
		ok, err := s.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	if len(names) == 0 {
		return "", errors.New("no worksheet candidates")
	}
	return "", fmt.Errorf("%v: %w", names, sheet.ErrWorksheetNotFound)
}

// Invalidate 清除指定工作表的读缓存；不传名称时清空全部
func (s *Service) Invalidate(names ...string) {
	if len(names) == 0 {
		s.cache.Clear(cache.BucketLedger)
		s.cache.Clear(cache.BucketSettings)
		return
	}
	for _, name := range names {
		s.cache.Delete(bucketFor(name), tableKey(name))
	}
}

// write 打开工作表并带重试执行写入，结束后清缓存
func (s *Service) write(ctx context.Context, name string, fn func(ctx context.Context, ws sheet.Worksheet) error) error {
	defer s.Invalidate(name)

	ws, err := s.Worksheet(ctx, name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	return retry.Do(ctx, s.opts.Retry, func(ctx context.Context) error {
		return s.call(ctx, func(ctx context.Context) error {
			return fn(ctx, ws)
		})
	})
}

// Append 追加一行，按实际表头顺序序列化
func (s *Service) Append(ctx context.Context, schema model.Schema, rec model.Record) error {
	t, err := s.Table(ctx, schema.Sheet)
	if err != nil {
		return err
	}
	values := schema.ValuesFor(t, rec)
	err = s.write(ctx, schema.Sheet, func(ctx context.Context, ws sheet.Worksheet) error {
		return ws.AppendRow(ctx, values)
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", schema.Sheet, err)
	}
	return nil
}

// UpdateField 按列名更新单个单元格，列号取自实际表头
func (s *Service) UpdateField(ctx context.Context, schema model.Schema, row int, col, value string) error {
	t, err := s.Table(ctx, schema.Sheet)
	if err != nil {
		return err
	}
	c, ok := schema.ColumnIn(t, col)
	if !ok {
		return fmt.Errorf("%s has no column %q", schema.Sheet, col)
	}
	err = s.write(ctx, schema.Sheet, func(ctx context.Context, ws sheet.Worksheet) error {
		return ws.UpdateCell(ctx, row, c, value)
	})
	if err != nil {
		return fmt.Errorf("update %s row %d %s: %w", schema.Sheet, row, col, err)
	}
	return nil
}

// UpdateRow 整行覆盖
func (s *Service) UpdateRow(ctx context.Context, schema model.Schema, row int, rec model.Record) error {
	t, err := s.Table(ctx, schema.Sheet)
	if err != nil {
		return err
	}
	values := schema.ValuesFor(t, rec)
	err = s.write(ctx, schema.Sheet, func(ctx context.Context, ws sheet.Worksheet) error {
		return ws.UpdateRow(ctx, row, values)
	})
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", schema.Sheet, row, err)
	}
	return nil
}

// DeleteRow 删除一行
func (s *Service) DeleteRow(ctx context.Context, name string, row int) error {
	if row <= model.HeaderRows {
		return fmt.Errorf("delete %s row %d: header rows are protected", name, row)
	}
	err := s.write(ctx, name, func(ctx context.Context, ws sheet.Worksheet) error {
		return ws.DeleteRow(ctx, row)
	})
	if err != nil {
		return fmt.Errorf("delete %s row %d: %w", name, row, err)
	}
	return nil
}

// Find 查找文本所在单元格；找不到返回 sheet.ErrCellNotFound
func (s *Service) Find(ctx context.Context, name, text string) (sheet.Cell, error) {
	ws, err := s.Worksheet(ctx, name)
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("open %s: %w", name, err)
	}
	var cell sheet.Cell
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		cell, err = ws.Find(ctx, text)
		return err
	})
	return cell, err
}
