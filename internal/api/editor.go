package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shanesun1208/LifeAdventure/internal/service/reconcile"
	"github.com/shanesun1208/LifeAdventure/internal/store"
)

// EditorResponse 编辑界面初始数据
type EditorResponse struct {
	Token   string              `json:"token"` // 保存时原样带回
	Table   string              `json:"table"`
	Visible []string            `json:"visible"`
	Hidden  []string            `json:"hidden"`
	Rows    []reconcile.GridRow `json:"rows"`
}

// OpenEditor 对工作表拍快照，返回可编辑的行
// GET /api/editor/:table?all=true
func (h *Handler) OpenEditor(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	b, err := h.ledger.Baseline(c.Request.Context(), c.Param("table"), all)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, EditorResponse{
		Token:   h.baselines.put(b, baselineTTL),
		Table:   b.Table,
		Visible: b.Visible,
		Hidden:  b.Hidden,
		Rows:    b.Grid(),
	})
}

// SaveEditorRequest 编辑结果
type SaveEditorRequest struct {
	Token string              `json:"token" binding:"required"`
	Rows  []reconcile.GridRow `json:"rows"`
}

// SaveEditor 对比快照并回写；部分失败时返回已执行的部分
// POST /api/editor/:table
func (h *Handler) SaveEditor(c *gin.Context) {
	var req SaveEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	b, ok := h.baselines.get(req.Token)
	if !ok {
		c.JSON(http.StatusGone, gin.H{"error": "编辑快照已过期，请重新打开"})
		return
	}
	if b.Table != c.Param("table") {
		badRequest(c, "快照与工作表不一致")
		return
	}

	plan, err := b.Diff(req.Rows)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if plan.Empty() {
		h.baselines.delete(req.Token)
		c.JSON(http.StatusOK, gin.H{"changed": false, "plan": plan})
		return
	}

	// 快照只能提交一次，失败后需要重新打开
	h.baselines.delete(req.Token)
	report, err := h.editor.Sync(c.Request.Context(), h.sheets, plan)
	if err != nil {
		fail(c, err)
		return
	}
	h.ledger.Discard(b.Table)

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"changed": true, "plan": plan, "report": report})
}

// EditorHistory 最近的批量回写记录
// GET /api/editor/history?limit=20
func (h *Handler) EditorHistory(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusOK, gin.H{"batches": []*store.SyncBatch{}})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	batches, err := h.journal.ListSyncBatches(limit)
	if err != nil {
		fail(c, err)
		return
	}
	if batches == nil {
		batches = []*store.SyncBatch{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}
