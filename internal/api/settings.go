package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetSettings 全部设置（表中的值覆盖默认值）
// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// UpdateSettingsRequest 更新设置请求
type UpdateSettingsRequest struct {
	// 使用 map 允许部分更新
	Updates map[string]string `json:"updates"`
}

// UpdateSettings 部分更新设置
// PATCH /api/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if len(req.Updates) == 0 {
		badRequest(c, "没有需要更新的设置")
		return
	}

	keys := make([]string, 0, len(req.Updates))
	for k := range req.Updates {
		if strings.TrimSpace(k) == "" {
			badRequest(c, "设置项名称不能为空")
			return
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := c.Request.Context()
	if err := h.settings.UpsertMany(ctx, req.Updates, keys...); err != nil {
		fail(c, err)
		return
	}
	all, err := h.settings.All(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}
