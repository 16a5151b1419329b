package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address used for rate limiting and request
// logs. chi's RealIP middleware has already folded X-Real-IP and
// X-Forwarded-For into RemoteAddr when it runs first; the header fallback
// covers handlers mounted without it. Only parseable addresses are returned.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	return parseIP(r.Header.Get("X-Real-IP"))
}

func parseIP(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
