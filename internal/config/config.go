package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// 表格后端
const (
	BackendXLSX    = "xlsx"
	BackendGSheets = "gsheets"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Sheet     SheetConfig     `toml:"sheet"`
	Cache     CacheConfig     `toml:"cache"`
	Retry     RetryConfig     `toml:"retry"`
	Fetch     FetchConfig     `toml:"fetch"`
	Assistant AssistantConfig `toml:"assistant"`
	Clock     ClockConfig     `toml:"clock"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir     string `toml:"data_dir"`
	SecretsFile string `toml:"secrets_file"` // 相对路径时相对于可执行文件目录
}

// SheetConfig 表格文档配置
type SheetConfig struct {
	Backend       string `toml:"backend"`        // xlsx | gsheets
	Document      string `toml:"document"`       // 文档名称
	WorkbookFile  string `toml:"workbook_file"`  // xlsx 后端的文件名，位于数据目录
	SpreadsheetID string `toml:"spreadsheet_id"` // gsheets 后端
	BatchUpdates  bool   `toml:"batch_updates"`  // 批量编辑时多行合并为一次写入
}

// CacheConfig 读缓存时长（秒）
type CacheConfig struct {
	LedgerTTLSeconds   int `toml:"ledger_ttl_seconds"`
	SettingsTTLSeconds int `toml:"settings_ttl_seconds"`
	WeatherTTLSeconds  int `toml:"weather_ttl_seconds"`
}

// RetryConfig 限流重试
type RetryConfig struct {
	Attempts         int `toml:"attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
}

// FetchConfig 远端读取
type FetchConfig struct {
	Workers              int `toml:"workers"`
	RemoteTimeoutSeconds int `toml:"remote_timeout_seconds"`
}

// AssistantConfig 小秘书
type AssistantConfig struct {
	Model        string `toml:"model"`
	BaseURL      string `toml:"base_url"`
	HistoryLimit int    `toml:"history_limit"`
}

// ClockConfig 时区
type ClockConfig struct {
	TimeZone string `toml:"time_zone"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20261,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			SecretsFile: "secrets.toml",
		},
		Sheet: SheetConfig{
			Backend:      BackendXLSX,
			Document:     "LifeAdventure",
			WorkbookFile: "LifeAdventure.xlsx",
			BatchUpdates: true,
		},
		Cache: CacheConfig{
			LedgerTTLSeconds:   60,
			SettingsTTLSeconds: 300,
			WeatherTTLSeconds:  1800,
		},
		Retry: RetryConfig{
			Attempts:         3,
			BaseDelaySeconds: 2,
		},
		Fetch: FetchConfig{
			Workers:              4,
			RemoteTimeoutSeconds: 15,
		},
		Assistant: AssistantConfig{
			Model:        "gemini-2.0-flash",
			BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai/",
			HistoryLimit: 5,
		},
		Clock: ClockConfig{
			TimeZone: "Asia/Taipei",
		},
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// LedgerTTL 账本类工作表的缓存时长
func (c CacheConfig) LedgerTTL() time.Duration { return seconds(c.LedgerTTLSeconds) }

// SettingsTTL 设置表的缓存时长
func (c CacheConfig) SettingsTTL() time.Duration { return seconds(c.SettingsTTLSeconds) }

// WeatherTTL 天气的缓存时长
func (c CacheConfig) WeatherTTL() time.Duration { return seconds(c.WeatherTTLSeconds) }

// BaseDelay 第一次重试前的等待
func (c RetryConfig) BaseDelay() time.Duration { return seconds(c.BaseDelaySeconds) }

// RemoteTimeout 单次远端调用超时
func (c FetchConfig) RemoteTimeout() time.Duration { return seconds(c.RemoteTimeoutSeconds) }

// Location 配置的时区，无法识别时使用本地时区
func (c ClockConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadFromWithInfo 从指定路径加载配置；文件不存在时使用默认配置
func LoadFromWithInfo(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	// 环境变量覆盖（用于本地运行）
	if v := os.Getenv("LA_SHEET_BACKEND"); v != "" {
		config.Sheet.Backend = v
	}
	if v := os.Getenv("LA_SPREADSHEET_ID"); v != "" {
		config.Sheet.SpreadsheetID = v
	}

	return config, info, nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFromWithInfo(DefaultPath())
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfigTo 保存配置到指定路径
func SaveConfigTo(config *AppConfig, configPath string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	return SaveConfigTo(config, DefaultPath())
}

// ResolveDataDir 数据目录的绝对位置；相对路径相对于可执行文件目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(ResolveDataDir(config), subdir, filename)
}

// SecretsPath secrets.toml 的位置
func SecretsPath(config *AppConfig) string {
	p := config.Data.SecretsFile
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, p)
}
