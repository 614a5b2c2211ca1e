package scan

import (
	"errors"
	"time"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
)

// RetryPolicy 决定一次识别失败是否值得再试以及先等多久。
// 等待时长按指数增长：base、2*base、4*base。
type RetryPolicy struct {
	// MaxAttempts 是总尝试次数上限，含首次
	MaxAttempts int
	// BackoffBase 是第一次重试前的等待时长
	BackoffBase time.Duration
}

// DefaultRetryPolicy 共尝试三次，两次重试前分别等待2s和4s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffBase: 2 * time.Second}
}

// Decide 在第attempt次（从1起）尝试以err失败后，返回退避时长以及
// 是否值得再试。限流和传输失败可重试；配额耗尽和响应格式错误是
// 终态，尝试次数用完同样终止。
func (p RetryPolicy) Decide(err error, attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}

	var ee *extraction.Error
	if !errors.As(err, &ee) || !ee.Retryable() {
		return 0, false
	}

	return p.BackoffBase << (attempt - 1), true
}
