package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/shanesun1208/LifeAdventure/internal/exporter"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportDownload struct {
	filePath string
	month    string
}

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func buildExportContentDisposition(month string) string {
	name := fmt.Sprintf("LifeAdventure_%s.xlsx", month)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, name, url.PathEscape(name))
}

// exportMonth 查询参数中的月份，缺省为当月
func (h *Handler) exportMonth(c *gin.Context) (string, bool) {
	month := c.Query("month")
	if month == "" {
		return parser.MonthKey(h.now()), true
	}
	if _, ok := parser.ParseMonth(month); !ok {
		badRequest(c, "无效的月份: "+month)
		return "", false
	}
	return month, true
}

// buildReport 读取商会数据并生成报表
func (h *Handler) buildReport(ctx context.Context, month string, progress func(exporter.ProgressEvent)) (*excelize.File, error) {
	tables, err := h.ledger.Load(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.ledger.Summary(ctx, month)
	if err != nil {
		return nil, err
	}
	return exporter.MonthReport(exporter.ExportOptions{
		Month:    month,
		Metrics:  m,
		Tables:   tables,
		Progress: progress,
	})
}

// Export 直接下载月度报表
// GET /api/finance/export?month=2025-06
func (h *Handler) Export(c *gin.Context) {
	month, ok := h.exportMonth(c)
	if !ok {
		return
	}
	file, err := h.buildReport(c.Request.Context(), month, nil)
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", buildExportContentDisposition(month))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// ExportStream 导出月度报表（SSE 进度 + 完成后提供下载地址）
// POST /api/finance/export/stream?month=2025-06
func (h *Handler) ExportStream(c *gin.Context) {
	month, ok := h.exportMonth(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
	sendError := func(msg string) {
		send(exportProgressEvent{
			Type:      "error",
			Message:   msg,
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
	}

	send(exportProgressEvent{
		Type:      "start",
		Message:   "开始导出",
		Data:      map[string]any{"month": month},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	file, err := h.buildReport(c.Request.Context(), month, func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   p.Stage,
			Data:      map[string]any{"percent": p.Percent},
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		sendError("导出失败: " + err.Error())
		return
	}
	defer file.Close()

	tempPath := filepath.Join(h.exportDir, fmt.Sprintf("lifeadventure_export_%d_%d.xlsx", time.Now().UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		sendError("写入导出文件失败: " + err.Error())
		_ = os.Remove(tempPath)
		return
	}

	token := h.downloads.put(exportDownload{filePath: tempPath, month: month}, downloadTTL)
	send(exportProgressEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/finance/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的报表（一次性）
// GET /api/finance/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.month))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}
