package api

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shanesun1208/LifeAdventure/internal/service/chat"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/reconcile"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
	"github.com/shanesun1208/LifeAdventure/internal/store"
)

// 令牌有效期
const (
	baselineTTL = 30 * time.Minute
	downloadTTL = 10 * time.Minute
)

// Deps 处理器依赖
type Deps struct {
	Sheets   *sheets.Service
	Settings *settings.Service
	Ledger   *ledger.Service
	Quests   *quest.Service
	Chat     *chat.Service
	Editor   *reconcile.Editor
	Journal  *store.Store
	// ExportDir 导出文件的临时目录，为空时使用系统临时目录
	ExportDir string
	Now       func() time.Time
}

// Handler API 处理器
type Handler struct {
	sheets    *sheets.Service
	settings  *settings.Service
	ledger    *ledger.Service
	quests    *quest.Service
	chat      *chat.Service
	editor    *reconcile.Editor
	journal   *store.Store
	exportDir string
	now       func() time.Time

	baselines *tokenStore[*reconcile.Baseline]
	downloads *tokenStore[exportDownload]
}

// NewHandler 创建 API 处理器
func NewHandler(d Deps) *Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ExportDir == "" {
		d.ExportDir = os.TempDir()
	}
	return &Handler{
		sheets:    d.Sheets,
		settings:  d.Settings,
		ledger:    d.Ledger,
		quests:    d.Quests,
		chat:      d.Chat,
		editor:    d.Editor,
		journal:   d.Journal,
		exportDir: d.ExportDir,
		now:       d.Now,
		baselines: newTokenStore[*reconcile.Baseline](),
		downloads: newTokenStore[exportDownload](),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 我的小屋
	router.GET("/home", h.GetHome)

	// 商会
	finance := router.Group("/finance")
	{
		finance.GET("/summary", h.GetFinanceSummary)
		finance.GET("/fixed", h.GetFixedCosts)
		finance.GET("/options", h.GetFinanceOptions)
		finance.POST("/expenses", h.AddExpense)
		finance.POST("/income", h.AddIncome)
		finance.POST("/fixed", h.AddFixedCost)
		finance.DELETE("/fixed/:row", h.DeleteFixedCost)
		finance.PUT("/budget", h.SetBudget)
		finance.DELETE("/budget/:item", h.DeleteBudget)
		finance.POST("/reserve", h.AddReserve)
		finance.POST("/sync", h.SyncFinance)

		// 月度报表
		finance.GET("/export", h.Export)
		finance.POST("/export/stream", h.ExportStream)
		finance.GET("/export/download/:token", h.DownloadExport)
	}

	// 批量编辑
	router.GET("/editor/history", h.EditorHistory)
	router.GET("/editor/:table", h.OpenEditor)
	router.POST("/editor/:table", h.SaveEditor)

	// 任务看板
	router.GET("/quests", h.ListQuests)
	router.POST("/quests", h.PostQuest)
	router.POST("/quests/:row/claim", h.ClaimQuest)
	router.POST("/quests/:row/complete", h.CompleteQuest)
	router.POST("/quests/:row/abandon", h.AbandonQuest)
	router.DELETE("/quests/:row", h.RemoveQuest)

	// 冒险日志
	router.GET("/adventures", h.ListAdventures)
	router.POST("/adventures", h.CreateAdventure)
	router.PATCH("/adventures/:row", h.UpdateAdventure)
	router.DELETE("/adventures/:row", h.DeleteAdventure)

	// 小秘书
	router.GET("/chat/history", h.ChatHistory)
	router.POST("/chat", h.Chat)
	router.GET("/chat/loading", h.LoadingMessages)

	// 系统设定
	router.GET("/settings", h.GetSettings)
	router.PATCH("/settings", h.UpdateSettings)
}
