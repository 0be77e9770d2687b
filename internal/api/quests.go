package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
)

// ListQuests 任务看板
// GET /api/quests
func (h *Handler) ListQuests(c *gin.Context) {
	board, err := h.quests.Board(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// PostQuestRequest 张贴委托
type PostQuestRequest struct {
	Name       string             `json:"name"`
	Content    string             `json:"content"`
	Type       category.Selection `json:"type"`
	Deadline   string             `json:"deadline"`
	NoDeadline bool               `json:"noDeadline"`
	Reward     string             `json:"reward"`
}

// PostQuest 张贴委托
// POST /api/quests
func (h *Handler) PostQuest(c *gin.Context) {
	var req PostQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	deadline, err := dateField(req.Deadline)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.quests.Post(c.Request.Context(), quest.PostInput{
		Name:       req.Name,
		Content:    req.Content,
		Type:       req.Type,
		Deadline:   deadline,
		NoDeadline: req.NoDeadline,
		Reward:     req.Reward,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *Handler) questTransition(c *gin.Context, move func(ctx context.Context, row int) (model.Quest, error)) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	q, err := move(c.Request.Context(), row)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ClaimQuest 接取任务
// POST /api/quests/:row/claim
func (h *Handler) ClaimQuest(c *gin.Context) {
	h.questTransition(c, h.quests.Claim)
}

// CompleteQuest 完成任务
// POST /api/quests/:row/complete
func (h *Handler) CompleteQuest(c *gin.Context) {
	h.questTransition(c, h.quests.Complete)
}

// AbandonQuest 放弃任务，回到看板
// POST /api/quests/:row/abandon
func (h *Handler) AbandonQuest(c *gin.Context) {
	h.questTransition(c, h.quests.Abandon)
}

// RemoveQuest 撤下未接取的委托
// DELETE /api/quests/:row
func (h *Handler) RemoveQuest(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	if err := h.quests.Remove(c.Request.Context(), row); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAdventures 冒险日志
// GET /api/adventures
func (h *Handler) ListAdventures(c *gin.Context) {
	adv, err := h.quests.ListAdventures(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, adv)
}

// CreateAdventureRequest 开启新篇章
type CreateAdventureRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	StartDate   string `json:"startDate"`
}

// CreateAdventure 开启新篇章
// POST /api/adventures
func (h *Handler) CreateAdventure(c *gin.Context) {
	var req CreateAdventureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	start, err := dateField(req.StartDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.quests.CreateAdventure(c.Request.Context(), quest.AdventureInput{
		Name:        req.Name,
		Description: req.Description,
		Kind:        req.Kind,
		StartDate:   start,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAdventureRequest 部分更新，未提供的字段不修改
type UpdateAdventureRequest struct {
	Link   *string `json:"link"`
	Status *string `json:"status"`
}

// UpdateAdventure 挂链接或修改状态
// PATCH /api/adventures/:row
func (h *Handler) UpdateAdventure(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	var req UpdateAdventureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if req.Link == nil && req.Status == nil {
		badRequest(c, "没有需要更新的字段")
		return
	}

	var status model.AdventureStatus
	if req.Status != nil {
		// 先校验，避免链接写入后状态才被拒绝
		if status = model.AdventureStatus(strings.TrimSpace(*req.Status)); !status.Valid() {
			badRequest(c, "无效的状态: "+string(status))
			return
		}
	}

	ctx := c.Request.Context()
	var a model.Adventure
	var err error
	if req.Link != nil {
		if a, err = h.quests.AttachLink(ctx, row, *req.Link); err != nil {
			fail(c, err)
			return
		}
	}
	if req.Status != nil {
		if a, err = h.quests.SetAdventureStatus(ctx, row, status); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAdventure 删除篇章
// DELETE /api/adventures/:row
func (h *Handler) DeleteAdventure(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	if err := h.quests.DeleteAdventure(c.Request.Context(), row); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
