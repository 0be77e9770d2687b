package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/service/cache"
	"github.com/shanesun1208/LifeAdventure/internal/service/chat"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Document   string         `json:"document"`   // 表格文档标题
	LastSyncAt string         `json:"lastSyncAt"` // 最近一次批量回写
	Cached     map[string]int `json:"cached"`     // 各缓存桶的条目数
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Document: h.sheets.Title(),
		Cached:   map[string]int{},
	}
	if h.journal != nil {
		if t := h.journal.LastSyncAt(); !t.IsZero() {
			resp.LastSyncAt = t.In(h.now().Location()).Format(model.TimestampLayout)
		}
	}
	for _, b := range []cache.Bucket{cache.BucketLedger, cache.BucketSettings, cache.BucketWeather} {
		resp.Cached[string(b)] = h.sheets.Cache().Len(b)
	}
	c.JSON(http.StatusOK, resp)
}

// HomeResponse 我的小屋
type HomeResponse struct {
	Briefing chat.Briefing `json:"briefing"`
	Location string        `json:"location"`
	Tracking []model.Quest `json:"tracking"` // 进行中的任务
}

// GetHome 首页：即时情报和进行中的任务
// GET /api/home
func (h *Handler) GetHome(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HomeResponse{
		Briefing: h.chat.Briefing(ctx),
		Tracking: []model.Quest{},
	}
	if loc, err := h.settings.Get(ctx, settings.KeyLocation); err == nil {
		resp.Location = loc
	}
	board, err := h.quests.Board(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	if board.InProgress != nil {
		resp.Tracking = board.InProgress
	}
	c.JSON(http.StatusOK, resp)
}
