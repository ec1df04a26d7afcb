package httpclient

import (
	"context"
	"errors"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	p := NewBuilder().Build().Policy()

	assert.Equal(t, DefaultMaxRetries, p.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Equal(t, DefaultTimeout, p.Timeout)
}

func TestBuilderOverrides(t *testing.T) {
	var hooked []int
	cond := func(error, int) bool { return false }

	c := NewBuilder().
		WithRetries(1).
		WithDelays(10*time.Millisecond, 50*time.Millisecond).
		WithTimeout(2*time.Second).
		WithDefaultHeader("Accept", "application/json").
		WithRetryCondition(cond).
		WithOnRetry(func(_ error, attempt int) { hooked = append(hooked, attempt) }).
		Build()

	p := c.Policy()
	assert.Equal(t, 1, p.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 50*time.Millisecond, p.MaxDelay)
	assert.Equal(t, 2*time.Second, p.Timeout)
	assert.Equal(t, map[string]string{"Accept": "application/json"}, p.DefaultHeaders)
	assert.False(t, p.RetryCondition(errors.New("x"), 1))

	p.OnRetry(errors.New("x"), 4)
	assert.Equal(t, []int{4}, hooked)
}

func TestBuilderWithPolicy(t *testing.T) {
	p := NewBuilder().WithPolicy(IdentityPolicy()).Build().Policy()

	assert.Equal(t, IdentityBaseDelay, p.BaseDelay)
	assert.True(t, p.RetryCondition(httpErr(nethttp.StatusTooManyRequests), 1))
}

func TestBuilderOptions(t *testing.T) {
	var user string
	var intercepted bool
	transport := roundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
		user, _, _ = req.BasicAuth()
		intercepted = req.Header.Get("X-Intercepted") == "true"
		return stubResponse(req, 200, ""), nil
	})

	c := NewBuilder().
		WithTransport(transport).
		WithBasicAuth("svc", "pw").
		WithRequestInterceptor(func(_ context.Context, req *nethttp.Request) error {
			req.Header.Set("X-Intercepted", "true")
			return nil
		}).
		Build()

	_, err := c.Get(context.Background(), testURL)

	require.NoError(t, err)
	assert.Equal(t, "svc", user)
	assert.True(t, intercepted)
}
