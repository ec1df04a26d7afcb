package httpclient

import (
	nethttp "net/http"
)

const (
	msgNotFound       = "Resource not found"
	msgUnauthorized   = "Authentication required"
	msgForbidden      = "Access denied"
	msgTooManyRequest = "Too many requests"
	msgServerError    = "Server error, please try again"
	msgNetwork        = "Unable to reach the identity service. Check your network connection and the service URL."
	msgTimeout        = "Request timed out"
	msgUnexpected     = "An unexpected error occurred"
)

// UserMessage translates a client error into text suitable for end users.
// Other HTTP statuses fall back to the response's status text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindNetwork:
		return msgNetwork
	case KindTimeout:
		return msgTimeout
	case KindHTTP:
		return httpMessage(err)
	default:
		return msgUnexpected
	}
}

func httpMessage(err error) string {
	status := statusOf(err)
	switch {
	case status == nethttp.StatusNotFound:
		return msgNotFound
	case status == nethttp.StatusUnauthorized:
		return msgUnauthorized
	case status == nethttp.StatusForbidden:
		return msgForbidden
	case status == nethttp.StatusTooManyRequests:
		return msgTooManyRequest
	case status >= nethttp.StatusInternalServerError:
		return msgServerError
	}
	if text := nethttp.StatusText(status); text != "" {
		return text
	}
	return msgUnexpected
}
