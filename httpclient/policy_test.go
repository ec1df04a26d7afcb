package httpclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 10*time.Second, p.MaxDelay)
	assert.Equal(t, 30*time.Second, p.Timeout)
	assert.Empty(t, p.DefaultHeaders)
	assert.NotNil(t, p.RetryCondition)
	assert.NotNil(t, p.OnRetry)
}

func TestIdentityPolicy(t *testing.T) {
	p := IdentityPolicy()

	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 5*time.Second, p.MaxDelay)
	assert.Equal(t, 30*time.Second, p.Timeout)
}

func TestPolicyNormalized(t *testing.T) {
	headers := map[string]string{"A": "1"}
	p := Policy{MaxRetries: -2, DefaultHeaders: headers}.normalized()

	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Equal(t, DefaultTimeout, p.Timeout)
	assert.NotNil(t, p.RetryCondition)
	assert.NotPanics(t, func() { p.OnRetry(errors.New("x"), 1) })

	headers["A"] = "changed"
	headers["B"] = "2"
	assert.Equal(t, map[string]string{"A": "1"}, p.DefaultHeaders)
}

func TestRetryConditions(t *testing.T) {
	network := &NetworkError{Message: "connection reset", Code: "ECONNRESET", URL: testURL}
	timeout := &TimeoutError{Timeout: time.Second, URL: testURL}
	unknown := errors.New("something odd")

	tests := []struct {
		name     string
		err      error
		attempt  int
		standard bool
		identity bool
	}{
		{name: "network", err: network, attempt: 5, standard: true, identity: true},
		{name: "timeout", err: timeout, attempt: 5, standard: true, identity: true},
		{name: "500", err: httpErr(500), attempt: 1, standard: true, identity: true},
		{name: "503", err: httpErr(503), attempt: 9, standard: true, identity: true},
		{name: "400", err: httpErr(400), attempt: 1, standard: false, identity: false},
		{name: "404", err: httpErr(404), attempt: 1, standard: false, identity: false},
		{name: "429", err: httpErr(429), attempt: 1, standard: false, identity: true},
		{name: "429 late attempt", err: httpErr(429), attempt: 7, standard: false, identity: true},
		{name: "unknown first attempt", err: unknown, attempt: 1, standard: true, identity: true},
		{name: "unknown second attempt", err: unknown, attempt: 2, standard: true, identity: true},
		{name: "unknown third attempt", err: unknown, attempt: 3, standard: false, identity: false},
		{name: "wrapped 500", err: wrap(httpErr(500)), attempt: 1, standard: true, identity: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.standard, DefaultRetryCondition(tt.err, tt.attempt), "default")
			assert.Equal(t, tt.identity, IdentityRetryCondition(tt.err, tt.attempt), "identity")
		})
	}
}
