package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
)

// GetFinanceSummary 月度财务指标
// GET /api/finance/summary?month=2025-06
func (h *Handler) GetFinanceSummary(c *gin.Context) {
	m, err := h.ledger.Summary(c.Request.Context(), c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Display())
}

// GetFixedCosts 固定开销的入账状态
// GET /api/finance/fixed?month=2025-06
func (h *Handler) GetFixedCosts(c *gin.Context) {
	fixed, err := h.ledger.Fixed(c.Request.Context(), c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fixed)
}

// FinanceOptions 录入表单的下拉选项
type FinanceOptions struct {
	Type1          []string `json:"type1"`
	Type2          []string `json:"type2"`
	IncomeTypes    []string `json:"incomeTypes"`
	FixedTypes     []string `json:"fixedTypes"`
	PaymentMethods []string `json:"paymentMethods"`
	BudgetItems    []string `json:"budgetItems"`
	AddNew         string   `json:"addNew"`
}

// GetFinanceOptions 表单选项
// GET /api/finance/options
func (h *Handler) GetFinanceOptions(c *gin.Context) {
	ctx := c.Request.Context()
	resp := FinanceOptions{AddNew: category.AddNewLabel}
	for _, f := range []struct {
		key string
		dst *[]string
	}{
		{settings.KeyType1Options, &resp.Type1},
		{settings.KeyType2Options, &resp.Type2},
		{settings.KeyIncomeTypes, &resp.IncomeTypes},
		{settings.KeyFixedTypes, &resp.FixedTypes},
		{settings.KeyPaymentMethods, &resp.PaymentMethods},
	} {
		opts, err := h.settings.Options(ctx, f.key)
		if err != nil {
			fail(c, err)
			return
		}
		*f.dst = opts
	}
	items, err := h.ledger.BudgetItems(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	resp.BudgetItems = items
	c.JSON(http.StatusOK, resp)
}

// ExpenseRequest 记一笔支出
type ExpenseRequest struct {
	Date  string             `json:"date"`
	Item  string             `json:"item"`
	Price decimal.Decimal    `json:"price"`
	Type1 category.Selection `json:"type1"`
	Type2 category.Selection `json:"type2"`
}

// AddExpense 记一笔支出
// POST /api/finance/expenses
func (h *Handler) AddExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	date, err := dateField(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	e, err := h.ledger.AddExpense(c.Request.Context(), ledger.ExpenseInput{
		Date:  date,
		Item:  req.Item,
		Price: req.Price,
		Type1: req.Type1,
		Type2: req.Type2,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// IncomeRequest 记一笔收入
type IncomeRequest struct {
	Date   string             `json:"date"`
	Item   string             `json:"item"`
	Amount decimal.Decimal    `json:"amount"`
	Type   category.Selection `json:"type"`
	Note   string             `json:"note"`
}

// AddIncome 记一笔收入
// POST /api/finance/income
func (h *Handler) AddIncome(c *gin.Context) {
	var req IncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	date, err := dateField(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	inc, err := h.ledger.AddIncome(c.Request.Context(), ledger.IncomeInput{
		Date:   date,
		Item:   req.Item,
		Amount: req.Amount,
		Type:   req.Type,
		Note:   req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inc)
}

// FixedCostRequest 新增固定开销计划
type FixedCostRequest struct {
	Item        string             `json:"item"`
	Type        category.Selection `json:"type"`
	Amount      decimal.Decimal    `json:"amount"`
	PaidBy      category.Selection `json:"paidBy"`
	Cycle       string             `json:"cycle"`
	CycleDetail string             `json:"cycleDetail"`
}

// AddFixedCost 新增固定开销计划
// POST /api/finance/fixed
func (h *Handler) AddFixedCost(c *gin.Context) {
	var req FixedCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	f, err := h.ledger.AddFixedCost(c.Request.Context(), ledger.FixedInput{
		Item:        req.Item,
		Type:        req.Type,
		Amount:      req.Amount,
		PaidBy:      req.PaidBy,
		Cycle:       model.ParseCycle(req.Cycle),
		CycleDetail: req.CycleDetail,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// DeleteFixedCost 删除固定开销计划
// DELETE /api/finance/fixed/:row
func (h *Handler) DeleteFixedCost(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteFixedCost(c.Request.Context(), row); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BudgetRequest 设定预算
type BudgetRequest struct {
	Item   string          `json:"item" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// SetBudget 设定预算（已有则更新）
// PUT /api/finance/budget
func (h *Handler) SetBudget(c *gin.Context) {
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if err := h.ledger.SetBudget(c.Request.Context(), req.Item, req.Amount); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": req.Item, "amount": req.Amount})
}

// DeleteBudget 删除预算项目
// DELETE /api/finance/budget/:item
func (h *Handler) DeleteBudget(c *gin.Context) {
	if err := h.ledger.DeleteBudget(c.Request.Context(), c.Param("item")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReserveRequest 预备金存取
type ReserveRequest struct {
	Date     string          `json:"date"`
	Withdraw bool            `json:"withdraw"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

// AddReserve 预备金存入或取出
// POST /api/finance/reserve
func (h *Handler) AddReserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	date, err := dateField(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	txn, err := h.ledger.AddReserve(c.Request.Context(), ledger.ReserveInput{
		Date:     date,
		Withdraw: req.Withdraw,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// SyncFinance 强制重新读取商会数据
// POST /api/finance/sync
func (h *Handler) SyncFinance(c *gin.Context) {
	h.ledger.Refresh()
	m, err := h.ledger.Summary(c.Request.Context(), c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Display())
}
