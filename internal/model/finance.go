package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 表格中日期的规范写法
const DateLayout = "2006-01-02"

// 财务相关的固定字样（与表格中已有数据保持一致）
const (
	CategoryFixed         = "固定開銷" // 已入账的固定开销分类
	CategoryUncategorized = "未分類"
	ReserveItem           = "預備金" // 预算项目中代表预备金的字样（子串匹配）

	ReserveDeposit    = "存入"
	ReserveWithdrawal = "取出"
)

// Expense 支出流水
type Expense struct {
	Date  time.Time       `json:"date"`
	Item  string          `json:"item"`
	Price decimal.Decimal `json:"price"`
	Type1 string          `json:"type1"`
	Type2 string          `json:"type2"`
}

// Week ISO 周数（派生列，编辑界面不展示）
func (e Expense) Week() int {
	_, wk := e.Date.ISOWeek()
	return wk
}

// Record 转为表格行
func (e Expense) Record() Record {
	return Record{
		ColDate:  e.Date.Format(DateLayout),
		ColWeek:  strconv.Itoa(e.Week()),
		ColItem:  e.Item,
		ColPrice: e.Price.String(),
		ColType1: e.Type1,
		ColType2: e.Type2,
	}
}

// Income 收入流水
type Income struct {
	Date   time.Time       `json:"date"`
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
	Note   string          `json:"note"`
}

// Record 转为表格行
func (i Income) Record() Record {
	return Record{
		ColDate:   i.Date.Format(DateLayout),
		ColItem:   i.Item,
		ColAmount: i.Amount.String(),
		ColType:   i.Type,
		ColNote:   i.Note,
	}
}

// Cycle 固定开销的缴费周期
type Cycle string

const (
	CycleMonthly    Cycle = "monthly"
	CycleSemiannual Cycle = "semiannual"
	CycleAnnual     Cycle = "annual"
)

// Divisor 折算为月均金额时的除数
func (c Cycle) Divisor() int64 {
	switch c {
	case CycleSemiannual:
		return 6
	case CycleAnnual:
		return 12
	default:
		return 1
	}
}

// Months 周期长度（月）
func (c Cycle) Months() int {
	return int(c.Divisor())
}

// ParseCycle 解析表格中的周期写法，无法识别时按月缴处理
func ParseCycle(s string) Cycle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "semiannual", "semi-annual", "半年繳", "每半年", "半年":
		return CycleSemiannual
	case "annual", "yearly", "年繳", "每年", "年":
		return CycleAnnual
	default:
		return CycleMonthly
	}
}

// FixedCost 固定开销计划（计划中的周期性支出，不是实际流水）
type FixedCost struct {
	Item        string          `json:"item"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paidBy"`
	Cycle       Cycle           `json:"cycle"`
	CycleDetail string          `json:"cycleDetail"` // 扣款日/月，如 "15" 或 "3/15"
}

// Record 转为表格行
func (f FixedCost) Record() Record {
	cycle := f.Cycle
	if cycle == "" {
		cycle = CycleMonthly
	}
	return Record{
		ColItem:        f.Item,
		ColType:        f.Type,
		ColAmount:      f.Amount.String(),
		ColPaidBy:      f.PaidBy,
		ColCycle:       string(cycle),
		ColCycleDetail: f.CycleDetail,
	}
}

// BudgetTarget 预算额度
type BudgetTarget struct {
	Item   string          `json:"item"`
	Budget decimal.Decimal `json:"budget"`
}

// Record 转为表格行
func (b BudgetTarget) Record() Record {
	return Record{
		ColItem:   b.Item,
		ColBudget: b.Budget.String(),
	}
}

// ReserveTxn 预备金存取记录
type ReserveTxn struct {
	Date   time.Time       `json:"date"`
	Type   string          `json:"type"` // 存入 / 取出
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Record 转为表格行
func (r ReserveTxn) Record() Record {
	return Record{
		ColDate:   r.Date.Format(DateLayout),
		ColType:   r.Type,
		ColAmount: r.Amount.String(),
		ColNote:   r.Note,
	}
}
