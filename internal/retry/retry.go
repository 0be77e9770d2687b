// Package retry 远端写入的限流重试
package retry

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// 默认策略：最多 3 次，间隔 2s、4s
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 2 * time.Second
)

// Policy 重试策略
type Policy struct {
	Attempts  int           // 总尝试次数（含第一次）
	BaseDelay time.Duration // 第一次重试前的等待，之后逐次翻倍
	// Retryable 判断错误是否值得重试，默认只重试限流错误
	Retryable func(error) bool
	// Timer 测试可注入，nil 时使用真实计时器
	Timer backoff.Timer
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = DefaultAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = sheet.IsRateLimited
	}
	return p
}

// backOff 指数退避，无随机抖动，不设总时长上限
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = p.BaseDelay << uint(p.Attempts)
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.Attempts-1)), ctx)
}

// Do 执行 op；限流错误按策略重试，其它错误立即返回
// 重试耗尽后返回最后一次的原始错误
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value 带返回值的 Do
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	attempt := 0
	var result T
	operation := func() error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		if !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("[retry] attempt %d/%d failed: %v, retry in %s", attempt, p.Attempts, err, wait)
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.Timer)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
