package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrTargetResolutionFailed is returned when no resolver yields a usable target.
var ErrTargetResolutionFailed = errors.New("upstream target resolution failed")

// TargetResolver resolves the upstream base URL for an incoming request.
type TargetResolver interface {
	ResolveTarget(ctx context.Context, req *http.Request) (string, error)
}

// CookieResolver reads the target from a cookie. The value may be URL-encoded.
type CookieResolver struct {
	CookieName string
}

// ResolveTarget implements TargetResolver.
func (r *CookieResolver) ResolveTarget(_ context.Context, req *http.Request) (string, error) {
	if r == nil || req == nil || r.CookieName == "" {
		return "", ErrTargetResolutionFailed
	}

	cookie, err := req.Cookie(r.CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrTargetResolutionFailed
	}

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", ErrTargetResolutionFailed
	}
	return value, nil
}

// HeaderResolver reads the target from a request header.
type HeaderResolver struct {
	HeaderName string
}

// ResolveTarget implements TargetResolver.
func (r *HeaderResolver) ResolveTarget(_ context.Context, req *http.Request) (string, error) {
	if r == nil || req == nil || r.HeaderName == "" {
		return "", ErrTargetResolutionFailed
	}

	target := strings.TrimSpace(req.Header.Get(r.HeaderName))
	if target == "" {
		return "", ErrTargetResolutionFailed
	}
	return target, nil
}

// StaticResolver always returns the configured URL.
type StaticResolver struct {
	URL string
}

// ResolveTarget implements TargetResolver.
func (r *StaticResolver) ResolveTarget(context.Context, *http.Request) (string, error) {
	if r == nil || r.URL == "" {
		return "", ErrTargetResolutionFailed
	}
	return r.URL, nil
}

// CompositeResolver tries the request overrides in order and falls back to
// Fallback. Override values must be absolute http(s) URLs accepted by
// AllowList; anything else is skipped. The fallback is trusted as configured.
type CompositeResolver struct {
	Overrides []TargetResolver
	Fallback  TargetResolver
	AllowList *HostAllowList
}

// ResolveTarget implements TargetResolver.
func (r *CompositeResolver) ResolveTarget(ctx context.Context, req *http.Request) (string, error) {
	if r == nil {
		return "", ErrTargetResolutionFailed
	}
	for _, resolver := range r.Overrides {
		if resolver == nil {
			continue
		}
		target, err := resolver.ResolveTarget(ctx, req)
		if err != nil {
			continue
		}
		u, ok := parseTarget(target)
		if !ok || !r.AllowList.Allows(u) {
			continue
		}
		return target, nil
	}
	if r.Fallback == nil {
		return "", ErrTargetResolutionFailed
	}
	return r.Fallback.ResolveTarget(ctx, req)
}

// parseTarget accepts absolute http and https URLs with a host.
func parseTarget(target string) (*url.URL, bool) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// HostAllowList restricts override targets to known hosts. An entry with a
// port must match host:port exactly; an entry without one matches any port.
// A nil or empty list allows every host.
type HostAllowList struct {
	hosts map[string]struct{}
}

// NewHostAllowList builds an allow-list from host or host:port entries.
func NewHostAllowList(hosts []string) *HostAllowList {
	l := &HostAllowList{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			l.hosts[h] = struct{}{}
		}
	}
	return l
}

// Allows reports whether u may be used as an upstream target.
func (l *HostAllowList) Allows(u *url.URL) bool {
	if l == nil || len(l.hosts) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	if _, ok := l.hosts[strings.ToLower(u.Host)]; ok {
		return true
	}
	_, ok := l.hosts[strings.ToLower(u.Hostname())]
	return ok
}
