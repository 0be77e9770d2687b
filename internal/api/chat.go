package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// defaultHistoryPage 聊天记录默认返回条数
const defaultHistoryPage = 50

// ChatHistory 最近的聊天记录
// GET /api/chat/history?limit=50
func (h *Handler) ChatHistory(c *gin.Context) {
	limit := defaultHistoryPage
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "无效的 limit: "+v)
			return
		}
		limit = n
	}
	msgs, err := h.chat.History(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ChatRequest 对小秘书说的话
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat 与小秘书对话
// POST /api/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}
	reply, err := h.chat.Reply(c.Request.Context(), req.Message)
	if err != nil && reply.Message == "" {
		badRequest(c, err.Error())
		return
	}
	// 回复已生成但记录失败时仍返回回复
	resp := gin.H{"reply": reply}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// LoadingMessages 今日的载入文案
// GET /api/chat/loading
func (h *Handler) LoadingMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.chat.LoadingMessages(c.Request.Context())})
}
