// Package weather OpenWeatherMap 当前天气，失败时降级为只显示城市
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shanesun1208/LifeAdventure/internal/service/cache"
)

const (
	DefaultEndpoint = "https://api.openweathermap.org/data/2.5/weather"
	DefaultTimeout  = 10 * time.Second

	// NoKeyLabel 未配置 API key 时的显示
	NoKeyLabel = "📍 API未設定"
)

// Provider 天气简报
type Provider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	cache    *cache.Cache
}

// Options 可选参数
type Options struct {
	Endpoint string
	Client   *http.Client
}

// New 创建天气服务；c 为 nil 时不缓存
func New(apiKey string, c *cache.Cache, opts Options) *Provider {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Provider{apiKey: apiKey, endpoint: opts.Endpoint, client: opts.Client, cache: c}
}

type currentWeather struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// Summary 形如 "📍 Taipei,TW | 🌡️ 28.3°C"；查询失败时只有城市
// 失败结果不缓存
func (p *Provider) Summary(ctx context.Context, city string) string {
	if p.apiKey == "" {
		return NoKeyLabel
	}
	load := func() (string, error) {
		temp, err := p.temperature(ctx, city)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("📍 %s | 🌡️ %.1f°C", city, temp), nil
	}

	var (
		s   string
		err error
	)
	if p.cache != nil {
		s, err = cache.Fetch(p.cache, cache.BucketWeather, city, load)
	} else {
		s, err = load()
	}
	if err != nil {
		log.Printf("[weather] %s: %v", city, err)
		return "📍 " + city
	}
	return s
}

func (p *Provider) temperature(ctx context.Context, city string) (float64, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", p.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "zh_tw")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openweathermap: status %d", resp.StatusCode)
	}

	var cw currentWeather
	if err := json.NewDecoder(resp.Body).Decode(&cw); err != nil {
		return 0, fmt.Errorf("decode weather: %w", err)
	}
	return cw.Main.Temp, nil
}
