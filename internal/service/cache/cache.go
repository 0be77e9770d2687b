// Package cache 进程内只读缓存：按用途分桶，每个桶有独立的 TTL
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Bucket 缓存桶名称
type Bucket string

const (
	BucketLedger   Bucket = "ledger"   // 账本类工作表，变化频繁
	BucketSettings Bucket = "settings" // 设置表
	BucketWeather  Bucket = "weather"
)

// 默认 TTL
const (
	DefaultLedgerTTL   = 60 * time.Second
	DefaultSettingsTTL = 5 * time.Minute
	DefaultWeatherTTL  = 30 * time.Minute
)

// maxEntries 每个桶的条目上限
const maxEntries = 256

// Cache 分桶 TTL 缓存
type Cache struct {
	mu      sync.RWMutex
	ttls    map[Bucket]time.Duration
	buckets map[Bucket]*expirable.LRU[string, any]
}

// DefaultTTLs 默认各桶 TTL
func DefaultTTLs() map[Bucket]time.Duration {
	return map[Bucket]time.Duration{
		BucketLedger:   DefaultLedgerTTL,
		BucketSettings: DefaultSettingsTTL,
		BucketWeather:  DefaultWeatherTTL,
	}
}

// New 创建缓存；未列出的桶使用账本 TTL
func New(ttls map[Bucket]time.Duration) *Cache {
	c := &Cache{
		ttls:    make(map[Bucket]time.Duration),
		buckets: make(map[Bucket]*expirable.LRU[string, any]),
	}
	for b, ttl := range ttls {
		c.ttls[b] = ttl
	}
	return c
}

func (c *Cache) bucket(b Bucket) *expirable.LRU[string, any] {
	c.mu.RLock()
	lru, ok := c.buckets[b]
	c.mu.RUnlock()
	if ok {
		return lru
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if lru, ok := c.buckets[b]; ok {
		return lru
	}
	ttl, ok := c.ttls[b]
	if !ok || ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	lru = expirable.NewLRU[string, any](maxEntries, nil, ttl)
	c.buckets[b] = lru
	return lru
}

// Get 读取缓存
func (c *Cache) Get(b Bucket, key string) (any, bool) {
	return c.bucket(b).Get(key)
}

// Set 写入缓存
func (c *Cache) Set(b Bucket, key string, v any) {
	c.bucket(b).Add(key, v)
}

// Delete 删除单个键
func (c *Cache) Delete(b Bucket, key string) {
	c.bucket(b).Remove(key)
}

// Clear 清空一个桶
func (c *Cache) Clear(b Bucket) {
	c.bucket(b).Purge()
}

// ClearAll 清空全部桶
func (c *Cache) ClearAll() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, lru := range c.buckets {
		lru.Purge()
	}
}

// Len 桶内有效条目数
func (c *Cache) Len(b Bucket) int {
	return c.bucket(b).Len()
}

// Fetch 读穿缓存：命中直接返回，否则调用 load 并缓存成功结果
func Fetch[T any](c *Cache, b Bucket, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(b, key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(b, key, v)
	return v, nil
}
