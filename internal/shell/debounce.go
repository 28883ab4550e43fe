package shell

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Debouncer 尾沿防抖：连续调用中只有最后一次在静默 delay 之后放行
type Debouncer struct {
	delay time.Duration

	mu  sync.Mutex
	gen uint64
}

// NewDebouncer 创建防抖器
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Wait 等待 delay，期间若有新的调用则返回 false
// ctx 被取消时返回 ctx.Err()
func (d *Debouncer) Wait(ctx context.Context) (bool, error) {
	d.mu.Lock()
	d.gen++
	mine := d.gen
	d.mu.Unlock()

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == mine, nil
}

// Throttler 固定间隔内最多放行一次
type Throttler struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewThrottler 创建节流器，interval 为 0 时不限制
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{limiter: rate.NewLimiter(rate.Every(interval), 1), now: time.Now}
}

// Allow 距上次放行不足 interval 时返回 false
func (t *Throttler) Allow() bool {
	return t.limiter.AllowN(t.now(), 1)
}
