package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shanesun1208/LifeAdventure/internal/parser"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// statusOf 业务错误对应的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrEmptyItem),
		errors.Is(err, ledger.ErrBudgetItem),
		errors.Is(err, ledger.ErrNotEditable),
		errors.Is(err, quest.ErrEmptyName),
		errors.Is(err, quest.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, quest.ErrNotFound),
		errors.Is(err, sheet.ErrWorksheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, quest.ErrInvalidTransition),
		errors.Is(err, settings.ErrNoSettingSheet):
		return http.StatusConflict
	case sheet.IsRateLimited(err):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// fail 统一的错误响应
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// rowParam 路径中的表格行号（表头为第 1 行）
func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row < 2 {
		badRequest(c, fmt.Sprintf("无效的行号: %s", c.Param("row")))
		return 0, false
	}
	return row, true
}

// dateField 表单中的日期，空字符串返回零值
func dateField(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := parser.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("无效的日期: %s", s)
	}
	return t, nil
}
