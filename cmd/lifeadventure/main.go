package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shanesun1208/LifeAdventure/internal/api"
	"github.com/shanesun1208/LifeAdventure/internal/config"
	"github.com/shanesun1208/LifeAdventure/internal/llm"
	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/retry"
	"github.com/shanesun1208/LifeAdventure/internal/secrets"
	"github.com/shanesun1208/LifeAdventure/internal/server"
	"github.com/shanesun1208/LifeAdventure/internal/service/cache"
	"github.com/shanesun1208/LifeAdventure/internal/service/category"
	"github.com/shanesun1208/LifeAdventure/internal/service/chat"
	"github.com/shanesun1208/LifeAdventure/internal/service/ledger"
	"github.com/shanesun1208/LifeAdventure/internal/service/quest"
	"github.com/shanesun1208/LifeAdventure/internal/service/reconcile"
	"github.com/shanesun1208/LifeAdventure/internal/service/settings"
	"github.com/shanesun1208/LifeAdventure/internal/service/sheets"
	"github.com/shanesun1208/LifeAdventure/internal/sheet"
	"github.com/shanesun1208/LifeAdventure/internal/sheet/gsheets"
	"github.com/shanesun1208/LifeAdventure/internal/sheet/xlsx"
	"github.com/shanesun1208/LifeAdventure/internal/store"
	"github.com/shanesun1208/LifeAdventure/internal/util"
	"github.com/shanesun1208/LifeAdventure/internal/weather"
)

var (
	port       = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	configPath = flag.String("config", "", "配置文件路径 (默认为可执行文件同目录下的 config.toml)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  LifeAdventure - 人生冒險儀表板")
	fmt.Println("==========================================")

	// 加载配置
	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, info, err := config.LoadFromWithInfo(path)
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	// 未显式配置端口时，默认端口被占用就顺延
	if !info.PortSpecified {
		cfg.Server.Port = util.FindAvailablePort(cfg.Server.Port, 10)
	}

	// 确保数据目录存在
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Fatalf("创建数据目录失败: %v", err)
	}
	fmt.Printf("数据目录: %s\n", dir)

	sec, err := secrets.Load(config.SecretsPath(cfg))
	if err != nil {
		log.Printf("读取密钥失败，外部服务将不可用: %v", err)
		sec = &secrets.Secrets{}
	}

	ctx := context.Background()
	doc, closeDoc, err := openDocument(ctx, cfg, sec, dir)
	if err != nil {
		log.Fatalf("打开表格失败: %v", err)
	}
	defer closeDoc()
	fmt.Printf("表格文档: %s (%s)\n", doc.Title(), cfg.Sheet.Backend)

	journal, err := store.New(filepath.Join(dir, "lifeadventure.db"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer journal.Close()

	h := api.NewHandler(buildDeps(cfg, sec, doc, journal, dir))
	srv := server.NewServer(cfg, h)

	// 构建地址
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	// 启动服务器
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	if !cfg.Server.DevMode {
		go func() {
			waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			fmt.Printf("正在打开浏览器: %s\n", url)
			if err := util.OpenWhenReady(waitCtx, cfg.Server.Port); err != nil {
				fmt.Printf("无法自动打开浏览器，请手动访问: %s (%v)\n", url, err)
			}
		}()
	} else {
		fmt.Printf("开发模式: 请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭服务失败: %v", err)
	}
}

// openDocument 按配置打开表格后端；返回的 close 在退出时调用
func openDocument(ctx context.Context, cfg *config.AppConfig, sec *secrets.Secrets, dir string) (sheet.Spreadsheet, func(), error) {
	switch cfg.Sheet.Backend {
	case config.BackendGSheets:
		openCtx, cancel := context.WithTimeout(ctx, cfg.Fetch.RemoteTimeout())
		defer cancel()
		doc, err := gsheets.Open(openCtx, gsheets.Options{
			SpreadsheetID:   cfg.Sheet.SpreadsheetID,
			CredentialsFile: sec.Google.CredentialsFile,
			CredentialsJSON: []byte(sec.Google.CredentialsJSON),
		})
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	case config.BackendXLSX, "":
		wb, err := xlsx.Open(filepath.Join(dir, cfg.Sheet.WorkbookFile), model.Schemas())
		if err != nil {
			return nil, nil, err
		}
		return wb, func() {
			if err := wb.Close(); err != nil {
				log.Printf("关闭工作簿失败: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("未知的表格后端: %s", cfg.Sheet.Backend)
}

// buildDeps 组装各服务
func buildDeps(cfg *config.AppConfig, sec *secrets.Secrets, doc sheet.Spreadsheet, journal *store.Store, dir string) api.Deps {
	loc := cfg.Clock.Location()
	now := func() time.Time { return time.Now().In(loc) }

	c := cache.New(map[cache.Bucket]time.Duration{
		cache.BucketLedger:   cfg.Cache.LedgerTTL(),
		cache.BucketSettings: cfg.Cache.SettingsTTL(),
		cache.BucketWeather:  cfg.Cache.WeatherTTL(),
	})
	policy := retry.Policy{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.Retry.BaseDelay()}

	sh := sheets.New(doc, c, sheets.Options{
		Workers: cfg.Fetch.Workers,
		Timeout: cfg.Fetch.RemoteTimeout(),
		Retry:   policy,
	})
	st := settings.New(sh)
	reg := category.New(st)
	led := ledger.New(sh, st, reg, now)
	qs := quest.New(sh, st, reg, now)

	var gen llm.Generator
	g, err := llm.NewOpenAI(llm.Options{
		APIKey:  sec.LLMKey(),
		BaseURL: cfg.Assistant.BaseURL,
		Model:   cfg.Assistant.Model,
		Timeout: cfg.Fetch.RemoteTimeout(),
	})
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Printf("未设定 llm_api_key，小秘书使用固定回复")
	case err != nil:
		log.Printf("初始化文本生成失败: %v", err)
	default:
		gen = g
	}

	w := weather.New(sec.General.WeatherAPIKey, c, weather.Options{})
	assistant := chat.New(sh, st, led, qs, w, gen, chat.Options{
		HistoryLimit: cfg.Assistant.HistoryLimit,
		Now:          now,
	})

	editor := reconcile.NewEditor(reconcile.Options{
		Retry:        policy,
		BatchUpdates: cfg.Sheet.BatchUpdates,
		Journal:      journal,
		Invalidator:  sh,
		Now:          now,
	})

	return api.Deps{
		Sheets:    sh,
		Settings:  st,
		Ledger:    led,
		Quests:    qs,
		Chat:      assistant,
		Editor:    editor,
		Journal:   journal,
		ExportDir: filepath.Join(dir, "exports"),
		Now:       now,
	}
}
