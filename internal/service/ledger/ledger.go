// Package ledger 商会页面的录入操作：支出、收入、固定开销、预算、预备金
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/calculator"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/reconcile"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
)

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrEmptyItem      = errors.New("item is required")
	ErrBudgetItem     = errors.New("budget item must be a Type1 category or the reserve item")
	ErrNotFound       = errors.New("row not found")
	ErrNotEditable    = errors.New("worksheet is not editable")
)

// RecentRows 编辑界面默认展示的行数
const RecentRows = 5

// EditableSheets 可以批量编辑的工作表及其隐藏列
var EditableSheets = map[string][]string{
	model.SheetFinance:       {model.ColWeek},
	model.SheetIncome:        nil,
	model.SheetFixedExpenses: nil,
	model.SheetReserveFund:   nil,
}

// Service 商会录入
type Service struct {
	sheets   *sheets.Service
	settings *settings.Service
	registry *category.Registry
	now      func() time.Time

	mu      sync.Mutex
	pending map[string][]pendingRow
}

// pendingRow 本进程追加、但读取结果中可能还看不到的行
type pendingRow struct {
	rec  model.Record
	want int // 追加成功后表中至少应有的行数
}

// New 创建录入服务；now 为 nil 时使用 time.Now
func New(svc *sheets.Service, st *settings.Service, reg *category.Registry, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		sheets:   svc,
		settings: st,
		registry: reg,
		now:      now,
		pending:  make(map[string][]pendingRow),
	}
}

// ExpenseInput 新增支出
type ExpenseInput struct {
	Date  time.Time
	Item  string
	Price decimal.Decimal
	Type1 category.Selection
	Type2 category.Selection
}

// IncomeInput 新增收入
type IncomeInput struct {
	Date   time.Time
	Item   string
	Amount decimal.Decimal
	Type   category.Selection
	Note   string
}

// FixedInput 新增固定开销计划
type FixedInput struct {
	Item        string
	Type        category.Selection
	Amount      decimal.Decimal
	PaidBy      category.Selection
	Cycle       model.Cycle
	CycleDetail string
}

// ReserveInput 预备金存取
type ReserveInput struct {
	Date     time.Time
	Withdraw bool
	Amount   decimal.Decimal
	Note     string
}

func (s *Service) date(d time.Time) time.Time {
	if d.IsZero() {
		return s.now()
	}
	return d
}

// resolve 解析分类；新分类写回失败只记日志，不影响录入
func (s *Service) resolve(ctx context.Context, f category.Field, sel category.Selection) string {
	existing, err := s.settings.Options(ctx, f.Key)
	if err != nil {
		log.Printf("[ledger] load %s failed: %v", f.Key, err)
	}
	v, err := s.registry.Resolve(ctx, f, sel, existing)
	if err != nil {
		log.Printf("[ledger] %v", err)
	}
	return v
}

// AddExpense 记一笔支出
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (model.Expense, error) {
	if in.Price.IsNegative() {
		return model.Expense{}, ErrNegativeAmount
	}
	e := model.Expense{
		Date:  s.date(in.Date),
		Item:  strings.TrimSpace(in.Item),
		Price: in.Price,
		Type1: s.resolve(ctx, category.FieldType1, in.Type1),
		Type2: s.resolve(ctx, category.FieldType2, in.Type2),
	}
	if err := s.append(ctx, model.FinanceSchema, e.Record()); err != nil {
		return model.Expense{}, err
	}
	return e, nil
}

// AddIncome 记一笔收入
func (s *Service) AddIncome(ctx context.Context, in IncomeInput) (model.Income, error) {
	if in.Amount.IsNegative() {
		return model.Income{}, ErrNegativeAmount
	}
	inc := model.Income{
		Date:   s.date(in.Date),
		Item:   strings.TrimSpace(in.Item),
		Amount: in.Amount,
		Type:   s.resolve(ctx, category.FieldIncome, in.Type),
		Note:   strings.TrimSpace(in.Note),
	}
	if err := s.append(ctx, model.IncomeSchema, inc.Record()); err != nil {
		return model.Income{}, err
	}
	return inc, nil
}

// AddFixedCost 新增固定开销计划
func (s *Service) AddFixedCost(ctx context.Context, in FixedInput) (model.FixedCost, error) {
	if in.Amount.IsNegative() {
		return model.FixedCost{}, ErrNegativeAmount
	}
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return model.FixedCost{}, ErrEmptyItem
	}
	f := model.FixedCost{
		Item:        item,
		Type:        s.resolve(ctx, category.FieldFixed, in.Type),
		Amount:      in.Amount,
		PaidBy:      s.resolve(ctx, category.FieldPayment, in.PaidBy),
		Cycle:       in.Cycle,
		CycleDetail: strings.TrimSpace(in.CycleDetail),
	}
	if f.Cycle == "" {
		f.Cycle = model.CycleMonthly
	}
	if err := s.append(ctx, model.FixedSchema, f.Record()); err != nil {
		return model.FixedCost{}, err
	}
	return f, nil
}

// DeleteFixedCost 按表格行号删除固定开销计划
func (s *Service) DeleteFixedCost(ctx context.Context, row int) error {
	t, err := s.sheets.Table(ctx, model.SheetFixedExpenses)
	if err != nil {
		return err
	}
	if idx := model.RecordIndex(row); idx < 0 || idx >= t.Len() {
		return fmt.Errorf("%s row %d: %w", model.SheetFixedExpenses, row, ErrNotFound)
	}
	defer s.Discard(model.SheetFixedExpenses)
	return s.sheets.DeleteRow(ctx, model.SheetFixedExpenses, row)
}

// BudgetItems 可以设定预算的项目：Type1 分类 + 预备金
func (s *Service) BudgetItems(ctx context.Context) ([]string, error) {
	opts, err := s.settings.Options(ctx, settings.KeyType1Options)
	if err != nil {
		return nil, err
	}
	return append(opts, model.ReserveItem), nil
}

// SetBudget 设定预算：已有该项目时更新金额，否则追加
func (s *Service) SetBudget(ctx context.Context, item string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	item = strings.TrimSpace(item)
	allowed, err := s.BudgetItems(ctx)
	if err != nil {
		return err
	}
	if !containsString(allowed, item) {
		return fmt.Errorf("%q: %w", item, ErrBudgetItem)
	}

	t, err := s.sheets.Table(ctx, model.SheetBudget)
	if err != nil {
		return err
	}
	target := model.BudgetTarget{Item: item, Budget: amount}
	if row, ok := rowByItem(t, item); ok {
		return s.sheets.UpdateField(ctx, model.BudgetSchema, row, model.ColBudget, amount.String())
	}
	return s.append(ctx, model.BudgetSchema, target.Record())
}

// DeleteBudget 删除某个项目的预算
func (s *Service) DeleteBudget(ctx context.Context, item string) error {
	t, err := s.sheets.Table(ctx, model.SheetBudget)
	if err != nil {
		return err
	}
	row, ok := rowByItem(t, strings.TrimSpace(item))
	if !ok {
		return fmt.Errorf("budget %q: %w", item, ErrNotFound)
	}
	defer s.Discard(model.SheetBudget)
	return s.sheets.DeleteRow(ctx, model.SheetBudget, row)
}

// AddReserve 预备金存入或取出
func (s *Service) AddReserve(ctx context.Context, in ReserveInput) (model.ReserveTxn, error) {
	if in.Amount.IsNegative() {
		return model.ReserveTxn{}, ErrNegativeAmount
	}
	txn := model.ReserveTxn{
		Date:   s.date(in.Date),
		Type:   model.ReserveDeposit,
		Amount: in.Amount,
		Note:   strings.TrimSpace(in.Note),
	}
	if in.Withdraw {
		txn.Type = model.ReserveWithdrawal
	}
	if err := s.append(ctx, model.ReserveSchema, txn.Record()); err != nil {
		return model.ReserveTxn{}, err
	}
	return txn, nil
}

func rowByItem(t *model.Table, item string) (int, bool) {
	for i, r := range t.Records {
		if r.Get(model.ColItem) == item {
			return model.RowNumber(i), true
		}
	}
	return 0, false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// append 追加一行并登记到本地叠加层
func (s *Service) append(ctx context.Context, schema model.Schema, rec model.Record) error {
	t, err := s.sheets.Table(ctx, schema.Sheet)
	if err != nil {
		return err
	}
	want := t.Len() + 1
	if err := s.sheets.Append(ctx, schema, rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.pending[schema.Sheet] = append(s.pending[schema.Sheet], pendingRow{rec: rec.Clone(), want: want})
	s.mu.Unlock()
	return nil
}

// overlay 读取结果还没包含本进程刚追加的行时，把它们补在末尾
// 已经可见的行从叠加层移除
func (s *Service) overlay(tables map[string]*model.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, rows := range s.pending {
		t, ok := tables[name]
		if !ok {
			continue
		}
		n := t.Len()
		var keep []pendingRow
		for _, p := range rows {
			if n >= p.want {
				continue
			}
			keep = append(keep, p)
		}
		if len(keep) == 0 {
			delete(s.pending, name)
			continue
		}
		s.pending[name] = keep
		for _, p := range keep {
			t = t.Append(p.rec)
		}
		tables[name] = t
	}
}

// Load 一次并发读取商会页需要的全部工作表
func (s *Service) Load(ctx context.Context) (map[string]*model.Table, error) {
	tables, err := s.sheets.Tables(ctx, model.FinanceSheets...)
	if err != nil {
		return nil, err
	}
	s.overlay(tables)
	return tables, nil
}

// Refresh 清掉读缓存，下次 Load 直接读表
func (s *Service) Refresh() {
	s.sheets.Invalidate(model.FinanceSheets...)
}

// Discard 丢弃某张表上尚未读到的本地追加行；批量编辑删过行之后行数不再可信
func (s *Service) Discard(name string) {
	s.mu.Lock()
	delete(s.pending, name)
	s.mu.Unlock()
}

// Summary 某月的财务指标；month 为空时取当月
func (s *Service) Summary(ctx context.Context, month string) (*calculator.Metrics, error) {
	if month == "" {
		month = parser.MonthKey(s.now())
	}
	tables, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return calculator.Calculate(month, calculator.InputFrom(tables)), nil
}

// Fixed 固定开销页：入账状态与下一次扣款日
func (s *Service) Fixed(ctx context.Context, month string) (*calculator.FixedSummary, error) {
	now := s.now()
	if month == "" {
		month = parser.MonthKey(now)
	}
	tables, err := s.sheets.Tables(ctx, model.SheetFixedExpenses, model.SheetFinance)
	if err != nil {
		return nil, err
	}
	s.overlay(tables)
	return calculator.FixedCostStatus(month, now, tables[model.SheetFixedExpenses], tables[model.SheetFinance]), nil
}

// Recent 按日期倒序的前 n 条记录下标；n <= 0 时返回全部
// 日期无法解析的行排在最后，同日期按表内顺序倒序
func Recent(t *model.Table, n int) []int {
	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	dates := make([]time.Time, t.Len())
	valid := make([]bool, t.Len())
	for i, r := range t.Records {
		dates[i], valid[i] = parser.ParseDate(r.Get(model.ColDate))
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		if !dates[ia].Equal(dates[ib]) {
			return dates[ia].After(dates[ib])
		}
		return ia > ib
	})
	if n > 0 && len(idx) > n {
		idx = idx[:n]
	}
	return idx
}

// Baseline 编辑界面的快照；all 为 false 时只取最近 RecentRows 条
func (s *Service) Baseline(ctx context.Context, name string, all bool) (*reconcile.Baseline, error) {
	hidden, ok := EditableSheets[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotEditable)
	}
	t, err := s.sheets.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	n := RecentRows
	if all {
		n = 0
	}
	return reconcile.NewBaseline(t, Recent(t, n), hidden...)
}
