// Package secrets 读取 secrets.toml（API key、服务账号凭证），环境变量 LA_ 前缀可覆盖
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// FileName 默认文件名，与 config.toml 放在一起
const FileName = "secrets.toml"

// General [general] 段
type General struct {
	WeatherAPIKey string `mapstructure:"weather_api_key"`
	LLMAPIKey     string `mapstructure:"llm_api_key"`
	// GeminiAPIKey 旧字段名，llm_api_key 为空时使用
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
}

// Google [google] 段：服务账号凭证，文件路径或 JSON 内容二选一
type Google struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// Secrets 全部密钥
type Secrets struct {
	General General `mapstructure:"general"`
	Google  Google  `mapstructure:"google"`
}

// LLMKey 生成接口使用的 key
func (s *Secrets) LLMKey() string {
	if k := strings.TrimSpace(s.General.LLMAPIKey); k != "" {
		return k
	}
	return strings.TrimSpace(s.General.GeminiAPIKey)
}

// Load 读取 path；文件不存在时只使用环境变量
// 例：LA_GENERAL_WEATHER_API_KEY 覆盖 general.weather_api_key
func Load(path string) (*Secrets, error) {
	v := viper.New()
	for _, k := range []string{
		"general.weather_api_key",
		"general.llm_api_key",
		"general.gemini_api_key",
		"google.credentials_file",
		"google.credentials_json",
	} {
		v.SetDefault(k, "")
	}

	v.SetEnvPrefix("LA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read secrets: %w", err)
		}
	}

	var s Secrets
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal secrets: %w", err)
	}
	return &s, nil
}
