package proxy

import (
	"net/http"
	"net/textproto"
	"strings"
)

// strippedRequestHeaders never reach the upstream.
var strippedRequestHeaders = []string{
	"Host",
	"Connection",
	"Upgrade",
	"Keep-Alive",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Content-Length",
	"Accept-Encoding",
	"X-Real-Ip",
}

// strippedResponseHeaders never reach the client. The body is re-emitted
// fully decoded, so its original encoding and length no longer apply.
var strippedResponseHeaders = []string{
	"Content-Encoding",
	"Transfer-Encoding",
	"Content-Length",
	"Connection",
	"Keep-Alive",
	"Upgrade",
	"Trailer",
	"Te",
}

// FilterRequestHeaders returns the inbound headers that may be forwarded,
// dropping hop-by-hop, proxy, forwarding-identification and override headers.
func FilterRequestHeaders(in http.Header, overrideHeader string) http.Header {
	out := in.Clone()
	if out == nil {
		return http.Header{}
	}

	dropConnectionTokens(out)
	for _, h := range strippedRequestHeaders {
		out.Del(h)
	}
	if overrideHeader != "" {
		out.Del(overrideHeader)
	}
	for key := range out {
		if strings.HasPrefix(key, "Proxy-") || strings.HasPrefix(key, "X-Forwarded-") {
			delete(out, key)
		}
	}
	return out
}

// CopyResponseHeaders adds the upstream response headers that may be relayed to dst.
func CopyResponseHeaders(dst, src http.Header) {
	skip := make(map[string]struct{}, len(strippedResponseHeaders))
	for _, h := range strippedResponseHeaders {
		skip[h] = struct{}{}
	}
	for _, v := range src.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				skip[textproto.CanonicalMIMEHeaderKey(token)] = struct{}{}
			}
		}
	}

	for key, values := range src {
		if _, ok := skip[textproto.CanonicalMIMEHeaderKey(key)]; ok {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// dropConnectionTokens removes headers the client listed in Connection.
func dropConnectionTokens(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				h.Del(token)
			}
		}
	}
}
