// Package calculator 月度财务指标计算（纯函数，不访问远端）
package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
)

// Input 计算所需的五张表快照；任意一张可为 nil
type Input struct {
	Income   *model.Table
	Fixed    *model.Table
	Expenses *model.Table
	Budget   *model.Table
	Reserve  *model.Table
}

// InputFrom 从 Tables 的结果中取出计算所需的快照
func InputFrom(tables map[string]*model.Table) Input {
	return Input{
		Income:   tables[model.SheetIncome],
		Fixed:    tables[model.SheetFixedExpenses],
		Expenses: tables[model.SheetFinance],
		Budget:   tables[model.SheetBudget],
		Reserve:  tables[model.SheetReserveFund],
	}
}

// Metrics 月度指标
type Metrics struct {
	Month string `json:"month"`

	TotalIncome      decimal.Decimal            `json:"totalIncome"`
	TotalFixedPlan   decimal.Decimal            `json:"totalFixedPlan"`
	TotalActualSpent decimal.Decimal            `json:"totalActualSpent"`
	SpentByCategory  map[string]decimal.Decimal `json:"spentByCategory"`

	ActualFixedSpent     decimal.Decimal `json:"actualFixedSpent"`
	RemainingUnpaidFixed decimal.Decimal `json:"remainingUnpaidFixed"`

	ReserveGoal           decimal.Decimal `json:"reserveGoal"`
	CurrentReserveBalance decimal.Decimal `json:"currentReserveBalance"`

	FreeCash decimal.Decimal `json:"freeCash"`

	Budgets []BudgetLine    `json:"budgets"`
	Reserve ReserveProgress `json:"reserve"`
}

// BudgetLine 单个分类的预算执行情况
type BudgetLine struct {
	Item      string          `json:"item"`
	Target    decimal.Decimal `json:"target"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	// Ratio 花费 / 预算，限制在 [0,1]，仅用于展示
	Ratio      float64         `json:"ratio"`
	OverBudget bool            `json:"overBudget"`
	Overspend  decimal.Decimal `json:"overspend"`
}

// ReserveProgress 预备金：本月存入对比目标
type ReserveProgress struct {
	Item      string          `json:"item"`
	Goal      decimal.Decimal `json:"goal"`
	Deposited decimal.Decimal `json:"deposited"`
	Balance   decimal.Decimal `json:"balance"`
	Ratio     float64         `json:"ratio"`
}

// sums 预聚合结果
type sums struct {
	income     decimal.Decimal
	fixedPlan  decimal.Decimal
	spent      decimal.Decimal
	byCategory map[string]decimal.Decimal
	balance    decimal.Decimal
	deposited  decimal.Decimal
}

// Calculate 计算指定月份（"2006-01"）的全部指标
// 金额无法解析按 0 计；日期无法解析的行不计入月度合计
func Calculate(month string, in Input) *Metrics {
	s := aggregateSums(month, in)

	m := &Metrics{
		Month:                 month,
		TotalIncome:           s.income,
		TotalFixedPlan:        s.fixedPlan,
		TotalActualSpent:      s.spent,
		SpentByCategory:       s.byCategory,
		ActualFixedSpent:      s.byCategory[model.CategoryFixed],
		CurrentReserveBalance: s.balance,
	}

	m.RemainingUnpaidFixed = decimal.Max(decimal.Zero, m.TotalFixedPlan.Sub(m.ActualFixedSpent))

	reserveItem, goal, found := reserveGoal(in.Budget)
	if found {
		m.ReserveGoal = goal
	}

	m.FreeCash = m.TotalIncome.
		Sub(m.TotalActualSpent).
		Sub(m.RemainingUnpaidFixed).
		Sub(m.ReserveGoal)

	m.Budgets = budgetLines(in.Budget, s.byCategory)
	m.Reserve = ReserveProgress{
		Item:      reserveItem,
		Goal:      m.ReserveGoal,
		Deposited: s.deposited,
		Balance:   s.balance,
		Ratio:     clampRatio(s.deposited, m.ReserveGoal),
	}
	return m
}

// aggregateSums 一次遍历各表完成聚合
func aggregateSums(month string, in Input) *sums {
	s := &sums{byCategory: make(map[string]decimal.Decimal)}

	if in.Income != nil {
		for _, r := range in.Income.Records {
			if parser.InMonth(r.Get(model.ColDate), month) {
				s.income = s.income.Add(parser.ParseAmount(r.Get(model.ColAmount)))
			}
		}
	}

	if in.Fixed != nil {
		for _, r := range in.Fixed.Records {
			s.fixedPlan = s.fixedPlan.Add(MonthlyEquivalent(
				parser.ParseAmount(r.Get(model.ColAmount)),
				model.ParseCycle(r.Get(model.ColCycle)),
			))
		}
	}

	if in.Expenses != nil {
		for _, r := range in.Expenses.Records {
			if !parser.InMonth(r.Get(model.ColDate), month) {
				continue
			}
			price := parser.ParseAmount(r.Get(model.ColPrice))
			s.spent = s.spent.Add(price)

			cat := r.Get(model.ColType1)
			if cat == "" {
				cat = model.CategoryUncategorized
			}
			s.byCategory[cat] = s.byCategory[cat].Add(price)
		}
	}

	if in.Reserve != nil {
		s.balance = ReserveBalance(in.Reserve)
		for _, r := range in.Reserve.Records {
			if r.Get(model.ColType) == model.ReserveDeposit && parser.InMonth(r.Get(model.ColDate), month) {
				s.deposited = s.deposited.Add(parser.ParseAmount(r.Get(model.ColAmount)))
			}
		}
	}

	return s
}

// MonthlyEquivalent 折算为月均金额
func MonthlyEquivalent(amount decimal.Decimal, c model.Cycle) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(c.Divisor()))
}

// ReserveBalance 预备金余额 = 全部存入 - 全部取出（不限月份）
func ReserveBalance(t *model.Table) decimal.Decimal {
	balance := decimal.Zero
	if t == nil {
		return balance
	}
	for _, r := range t.Records {
		amount := parser.ParseAmount(r.Get(model.ColAmount))
		switch r.Get(model.ColType) {
		case model.ReserveDeposit:
			balance = balance.Add(amount)
		case model.ReserveWithdrawal:
			balance = balance.Sub(amount)
		}
	}
	return balance
}

// IsReserveItem 预算项目名包含“預備金”即视为预备金目标
// 子串匹配会误伤名字里恰好含有该字样的普通预算项
func IsReserveItem(item string) bool {
	return strings.Contains(item, model.ReserveItem)
}

func reserveGoal(budget *model.Table) (string, decimal.Decimal, bool) {
	if budget == nil {
		return "", decimal.Zero, false
	}
	for _, r := range budget.Records {
		item := r.Get(model.ColItem)
		if IsReserveItem(item) {
			return item, parser.ParseAmount(r.Get(model.ColBudget)), true
		}
	}
	return "", decimal.Zero, false
}

func budgetLines(budget *model.Table, spent map[string]decimal.Decimal) []BudgetLine {
	if budget == nil {
		return []BudgetLine{}
	}
	lines := make([]BudgetLine, 0, budget.Len())
	for _, r := range budget.Records {
		item := r.Get(model.ColItem)
		if item == "" || IsReserveItem(item) {
			continue
		}
		target := parser.ParseAmount(r.Get(model.ColBudget))
		used := spent[item]
		line := BudgetLine{
			Item:       item,
			Target:     target,
			Spent:      used,
			Remaining:  decimal.Max(decimal.Zero, target.Sub(used)),
			Ratio:      clampRatio(used, target),
			OverBudget: used.GreaterThan(target),
		}
		if line.OverBudget {
			line.Overspend = used.Sub(target)
		}
		lines = append(lines, line)
	}
	return lines
}

// clampRatio part/whole 限制在 [0,1]；whole 为 0 时有花费即视为满格
func clampRatio(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		if part.IsPositive() {
			return 1
		}
		return 0
	}
	r := part.Div(whole).InexactFloat64()
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
