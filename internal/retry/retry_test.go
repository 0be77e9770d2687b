package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shanesun1208/LifeAdventure/internal/sheet"
)

// instantTimer 记录等待时长但不真正等待
type instantTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func TestDo_RateLimitedIsAttemptedThreeTimes(t *testing.T) {
	timer := &instantTimer{}
	p := DefaultPolicy()
	p.Timer = timer

	calls := 0
	rl := &sheet.RateLimitError{Op: "update Finance", Err: errors.New("429")}
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return rl
	})

	require.Error(t, err)
	require.True(t, sheet.IsRateLimited(err))
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, timer.waits)
}

func TestDo_OtherErrorsAreNotRetried(t *testing.T) {
	timer := &instantTimer{}
	p := DefaultPolicy()
	p.Timer = timer

	calls := 0
	boom := errors.New("permission denied")
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
	require.Empty(t, timer.waits)
}

func TestValue_RecoversAfterRateLimit(t *testing.T) {
	p := DefaultPolicy()
	p.Timer = &instantTimer{}

	calls := 0
	got, err := Value(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &sheet.RateLimitError{Op: "append"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 2, calls)
}

func TestDo_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultPolicy()
	p.Timer = &instantTimer{}
	calls := 0
	err := Do(ctx, p, func(context.Context) error {
		calls++
		return &sheet.RateLimitError{Op: "delete"}
	})

	require.Error(t, err)
	require.LessOrEqual(t, calls, 1)
}
