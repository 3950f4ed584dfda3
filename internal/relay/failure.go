package relay

import "fmt"

// Kind classifies a relay failure. The kind decides whether the request is
// retried, surfaced, or only recorded.
type Kind int

const (
	// KindNoSuitableChannel 没有可用且未封禁的渠道，终态不重试
	KindNoSuitableChannel Kind = iota + 1
	// KindUpstreamFailure 上游瞬时失败，在首字节前按预算重试
	KindUpstreamFailure
	// KindPartialStreamFailure 部分流式输出已送达后上游失败，终态直接暴露
	KindPartialStreamFailure
	// KindQuotaExceeded 分组超额，在任何上游调用前失败
	KindQuotaExceeded
	// KindNoPriceData 缺少价格数据，不允许按零计费
	KindNoPriceData
	// KindPersistenceUnavailable 日志持久化不可用，只记录，不影响请求
	KindPersistenceUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNoSuitableChannel:
		return "no_suitable_channel"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindPartialStreamFailure:
		return "partial_stream_failure"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindNoPriceData:
		return "no_price_data"
	case KindPersistenceUnavailable:
		return "persistence_unavailable"
	default:
		return "unknown"
	}
}

// Failure carries the failure kind, the last underlying error, and the
// http status to surface to the caller.
type Failure struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind Kind, statusCode int, err error) *Failure {
	return &Failure{Kind: kind, StatusCode: statusCode, Err: err}
}

// FailureKind 返回错误的失败类别，非 Failure 时为 0
func FailureKind(err error) Kind {
	if f, ok := err.(*Failure); ok {
		return f.Kind
	}
	return 0
}
