package http

import (
	"net/http"
	"strconv"
	"strings"
)

// IPAddrFromRemoteAddr strips the port from a host:port remote-address string.
func IPAddrFromRemoteAddr(s string) string {
	idx := strings.LastIndex(s, ":")
	if idx == -1 {
		return s
	}

	return s[:idx]
}

// GetRemoteAddress returns the client IP, honoring X-Real-Ip/X-Forwarded-For
// set by upstream proxies before falling back to the raw remote address.
func GetRemoteAddress(r *http.Request) string {
	realIP := r.Header.Get(headerRealIP)
	forwardedFor := r.Header.Get(headerForwardedFor)

	if realIP == "" && forwardedFor == "" {
		return IPAddrFromRemoteAddr(r.RemoteAddr)
	}

	if forwardedFor != "" {
		parts := strings.Split(forwardedFor, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}

		return parts[0]
	}

	return realIP
}

// PageParams parses limit/offset query parameters: limit default 20 max
// 50, offset default 0, both must be non-negative integers.
func PageParams(limitRaw, offsetRaw string) (limit, offset int, ok bool) {
	limit, offset = 20, 0

	if limitRaw != "" {
		v, err := strconv.Atoi(limitRaw)
		if err != nil || v < 0 {
			return 0, 0, false
		}

		limit = v
	}

	if limit == 0 {
		limit = 20
	}

	if limit > 50 {
		limit = 50
	}

	if offsetRaw != "" {
		v, err := strconv.Atoi(offsetRaw)
		if err != nil || v < 0 {
			return 0, 0, false
		}

		offset = v
	}

	return limit, offset, true
}
