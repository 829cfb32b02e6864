package httputil

import (
	"net"
	"net/http"
	"strings"
)

// BearerToken returns the credential carried by the Authorization header, or
// "" when there is none. Only the first header value is considered. It is
// split on runs of whitespace and the second field is returned; the scheme
// word itself is not checked.
func BearerToken(r *http.Request) string {
	values := r.Header.Values("Authorization")
	if len(values) == 0 {
		return ""
	}
	fields := strings.Fields(values[0])
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// ClientIP returns the originating client address, preferring proxy headers.
// Clients can set those headers freely, so the result is only trustworthy
// behind a proxy that overwrites them. Use RemoteIP when the caller's identity
// matters.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return RemoteIP(r)
}

// RemoteIP returns the address of the connected peer, ignoring proxy headers
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
