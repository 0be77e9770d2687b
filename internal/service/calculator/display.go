package calculator

import "github.com/shopspring/decimal"

// Display 展示用的整数指标（小数部分直接截断）
type Display struct {
	Month                 string           `json:"month"`
	TotalIncome           int64            `json:"totalIncome"`
	TotalFixedPlan        int64            `json:"totalFixedPlan"`
	TotalActualSpent      int64            `json:"totalActualSpent"`
	ActualFixedSpent      int64            `json:"actualFixedSpent"`
	RemainingUnpaidFixed  int64            `json:"remainingUnpaidFixed"`
	ReserveGoal           int64            `json:"reserveGoal"`
	CurrentReserveBalance int64            `json:"currentReserveBalance"`
	FreeCash              int64            `json:"freeCash"`
	SpentByCategory       map[string]int64 `json:"spentByCategory"`
	Budgets               []BudgetDisplay  `json:"budgets"`
	Reserve               ReserveDisplay   `json:"reserve"`
}

type BudgetDisplay struct {
	Item       string  `json:"item"`
	Target     int64   `json:"target"`
	Spent      int64   `json:"spent"`
	Remaining  int64   `json:"remaining"`
	Ratio      float64 `json:"ratio"`
	OverBudget bool    `json:"overBudget"`
	Overspend  int64   `json:"overspend"`
}

type ReserveDisplay struct {
	Item      string  `json:"item"`
	Goal      int64   `json:"goal"`
	Deposited int64   `json:"deposited"`
	Balance   int64   `json:"balance"`
	Ratio     float64 `json:"ratio"`
}

func trunc(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// Display 转为展示用整数
func (m *Metrics) Display() Display {
	out := Display{
		Month:                 m.Month,
		TotalIncome:           trunc(m.TotalIncome),
		TotalFixedPlan:        trunc(m.TotalFixedPlan),
		TotalActualSpent:      trunc(m.TotalActualSpent),
		ActualFixedSpent:      trunc(m.ActualFixedSpent),
		RemainingUnpaidFixed:  trunc(m.RemainingUnpaidFixed),
		ReserveGoal:           trunc(m.ReserveGoal),
		CurrentReserveBalance: trunc(m.CurrentReserveBalance),
		FreeCash:              trunc(m.FreeCash),
		SpentByCategory:       make(map[string]int64, len(m.SpentByCategory)),
		Budgets:               make([]BudgetDisplay, 0, len(m.Budgets)),
		Reserve: ReserveDisplay{
			Item:      m.Reserve.Item,
			Goal:      trunc(m.Reserve.Goal),
			Deposited: trunc(m.Reserve.Deposited),
			Balance:   trunc(m.Reserve.Balance),
			Ratio:     m.Reserve.Ratio,
		},
	}
	for k, v := range m.SpentByCategory {
		out.SpentByCategory[k] = trunc(v)
	}
	for _, b := range m.Budgets {
		out.Budgets = append(out.Budgets, BudgetDisplay{
			Item:       b.Item,
			Target:     trunc(b.Target),
			Spent:      trunc(b.Spent),
			Remaining:  trunc(b.Remaining),
			Ratio:      b.Ratio,
			OverBudget: b.OverBudget,
			Overspend:  trunc(b.Overspend),
		})
	}
	return out
}
