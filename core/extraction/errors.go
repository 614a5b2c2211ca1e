package extraction

import (
	"errors"
	"fmt"
)

// Kind 对识别失败分类。分类只在HTTP边界做一次；下游代码只看Kind，
// 从不解析消息文本。
type Kind int

const (
	// KindRateLimited 是服务返回的HTTP 429，可退避后重试
	KindRateLimited Kind = iota + 1
	// KindQuotaExhausted 是HTTP 402，计费问题，永不重试
	KindQuotaExhausted
	// KindTransport 覆盖网络错误、超时和5xx，可重试
	KindTransport
	// KindMalformed 表示响应体中没有可解码的歌曲数据。
	// 同一张图片重试只会得到同样的结果，因此是终态。
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error 是已分类的识别失败
type Error struct {
	Kind    Kind
	Status  int // 收到HTTP响应时的状态码，否则为0
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("extraction %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("extraction %s: %s", e.Kind, e.Message)
}

// Retryable 报告再试一次是否有可能成功
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransport
}

// KindOf 从错误链中取出分类。未分类的错误按传输失败处理。
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindTransport
}
