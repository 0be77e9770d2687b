package api

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// tokenStore 一次性令牌：编辑快照和导出文件都只在服务端保存，前端只拿令牌
type tokenStore[T any] struct {
	mu    sync.Mutex
	items map[string]tokenItem[T]
}

type tokenItem[T any] struct {
	value     T
	expiresAt time.Time
}

func newTokenStore[T any]() *tokenStore[T] {
	return &tokenStore[T]{
		items: make(map[string]tokenItem[T]),
	}
}

func (s *tokenStore[T]) put(v T, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = newRandomToken(24)
	s.items[token] = tokenItem[T]{
		value:     v,
		expiresAt: time.Now().Add(ttl),
	}
	return token
}

func (s *tokenStore[T]) get(token string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		var zero T
		return zero, false
	}
	return v.value, true
}

func (s *tokenStore[T]) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

func (s *tokenStore[T]) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
