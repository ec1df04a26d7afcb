package httpclient

import (
	"maps"
	nethttp "net/http"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the backoff base for the first retry
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay caps any single backoff wait
	DefaultMaxDelay = 10 * time.Second

	// DefaultTimeout bounds each attempt
	DefaultTimeout = 30 * time.Second

	// IdentityBaseDelay and IdentityMaxDelay tune backoff for the identity service
	IdentityBaseDelay = 500 * time.Millisecond
	IdentityMaxDelay  = 5 * time.Second

	// fallbackRetryAttempts limits retries of unclassified errors
	fallbackRetryAttempts = 3
)

// RetryCondition decides whether a failed attempt is retried. attempt is 1-based.
type RetryCondition func(err error, attempt int) bool

// RetryHook observes a failure that is about to be retried. It must not block
// and cannot influence the retry decision.
type RetryHook func(err error, attempt int)

// Policy holds the retry and timeout parameters of a client. A client copies
// its policy at construction; later changes to the value passed in have no effect.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Timeout        time.Duration
	DefaultHeaders map[string]string
	RetryCondition RetryCondition
	OnRetry        RetryHook
}

// DefaultPolicy returns the general-purpose policy
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		Timeout:        DefaultTimeout,
		DefaultHeaders: map[string]string{},
		RetryCondition: DefaultRetryCondition,
		OnRetry:        func(error, int) {},
	}
}

// IdentityPolicy returns the policy tuned for calls to the identity service:
// shorter delays and rate-limited responses are retried.
func IdentityPolicy() Policy {
	p := DefaultPolicy()
	p.BaseDelay = IdentityBaseDelay
	p.MaxDelay = IdentityMaxDelay
	p.RetryCondition = IdentityRetryCondition
	return p
}

// normalized fills zero fields with defaults and deep-copies mutable members.
func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.RetryCondition == nil {
		p.RetryCondition = DefaultRetryCondition
	}
	if p.OnRetry == nil {
		p.OnRetry = func(error, int) {}
	}
	headers := make(map[string]string, len(p.DefaultHeaders))
	maps.Copy(headers, p.DefaultHeaders)
	p.DefaultHeaders = headers
	return p
}

// DefaultRetryCondition retries network failures, timeouts and 5xx responses,
// never retries other HTTP errors and gives unclassified errors two retries.
func DefaultRetryCondition(err error, attempt int) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return statusOf(err) >= nethttp.StatusInternalServerError
	default:
		return attempt < fallbackRetryAttempts
	}
}

// IdentityRetryCondition additionally retries 429 Too Many Requests. The 429
// check runs before the generic 4xx rule.
func IdentityRetryCondition(err error, attempt int) bool {
	if IsHTTPStatus(err, nethttp.StatusTooManyRequests) {
		return true
	}
	return DefaultRetryCondition(err, attempt)
}
