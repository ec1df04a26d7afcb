package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCookie  = "kratos_admin_url"
	testHeader  = "X-Kratos-Admin-URL"
	defaultURL  = "http://localhost:4434"
	cookieURL   = "http://kratos-a.internal:4434"
	headerURL   = "https://kratos-b.internal"
	disallowURL = "http://evil.example.com"
)

func newTestResolver(allow []string) *CompositeResolver {
	return &CompositeResolver{
		Overrides: []TargetResolver{
			&CookieResolver{CookieName: testCookie},
			&HeaderResolver{HeaderName: testHeader},
		},
		Fallback:  &StaticResolver{URL: defaultURL},
		AllowList: NewHostAllowList(allow),
	}
}

func TestCompositeResolverPrecedence(t *testing.T) {
	allow := []string{"kratos-a.internal:4434", "kratos-b.internal"}

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{name: "default when nothing is set", want: defaultURL},
		{name: "header override", header: headerURL, want: headerURL},
		{name: "cookie wins over header", cookie: url.QueryEscape(cookieURL), header: headerURL, want: cookieURL},
		{name: "disallowed cookie falls through to header", cookie: disallowURL, header: headerURL, want: headerURL},
		{name: "disallowed header falls back to default", header: disallowURL, want: defaultURL},
		{name: "non-http scheme skipped", header: "ftp://kratos-b.internal", want: defaultURL},
		{name: "relative value skipped", header: "/admin", want: defaultURL},
		{name: "wrong port skipped", header: "http://kratos-a.internal:9999", want: defaultURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: testCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(testHeader, tt.header)
			}

			got, err := newTestResolver(allow).ResolveTarget(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompositeResolverEmptyAllowListAcceptsAnyHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(testHeader, disallowURL)

	got, err := newTestResolver(nil).ResolveTarget(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, disallowURL, got)
}

func TestCompositeResolverWithoutFallback(t *testing.T) {
	r := &CompositeResolver{Overrides: []TargetResolver{&HeaderResolver{HeaderName: testHeader}}}

	_, err := r.ResolveTarget(context.Background(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.ErrorIs(t, err, ErrTargetResolutionFailed)
}

func TestSimpleResolversRejectMissingValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	ctx := context.Background()

	_, err := (&CookieResolver{CookieName: testCookie}).ResolveTarget(ctx, req)
	assert.ErrorIs(t, err, ErrTargetResolutionFailed)

	_, err = (&HeaderResolver{HeaderName: testHeader}).ResolveTarget(ctx, req)
	assert.ErrorIs(t, err, ErrTargetResolutionFailed)

	_, err = (&StaticResolver{}).ResolveTarget(ctx, req)
	assert.ErrorIs(t, err, ErrTargetResolutionFailed)

	req.AddCookie(&http.Cookie{Name: testCookie, Value: "%zz"})
	_, err = (&CookieResolver{CookieName: testCookie}).ResolveTarget(ctx, req)
	assert.ErrorIs(t, err, ErrTargetResolutionFailed)
}

func TestHostAllowList(t *testing.T) {
	l := NewHostAllowList([]string{" Kratos.Internal ", "admin.internal:4434", ""})

	tests := []struct {
		target string
		want   bool
	}{
		{target: "http://kratos.internal", want: true},
		{target: "http://KRATOS.internal:4433", want: true},
		{target: "http://admin.internal:4434", want: true},
		{target: "http://admin.internal:4435", want: false},
		{target: "http://admin.internal", want: false},
		{target: "http://other.internal", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			u, err := url.Parse(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Allows(u))
		})
	}

	assert.False(t, l.Allows(nil))
	var empty *HostAllowList
	assert.True(t, empty.Allows(&url.URL{Host: "anything"}))
}
