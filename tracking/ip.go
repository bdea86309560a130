package tracking

import (
	"net"
	"net/http"
	"strings"
)

// LoopbackIP is recorded when no client address can be determined.
const LoopbackIP = "127.0.0.1"

// clientIPHeaders are tried in order; the first non-empty value wins.
var clientIPHeaders = []string{
	"X-Real-IP",
	"X-Forwarded-For",
	"CF-Connecting-IP",
	"X-Vercel-Forwarded-For",
}

// ResolveClientIP picks the client address from proxy headers, then the
// connection's remote address, falling back to LoopbackIP.
func ResolveClientIP(h http.Header, remoteAddr string) string {
	for _, name := range clientIPHeaders {
		v := h.Get(name)
		if v == "" {
			continue
		}
		// X-Forwarded-For is a list; the client is the left-most entry.
		if first, _, found := strings.Cut(v, ","); found {
			v = first
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	if remoteAddr != "" {
		host, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			host = remoteAddr
		}
		if host != "" {
			return host
		}
	}
	return LoopbackIP
}

// isLocalAddress reports whether ip cannot be geolocated: loopback,
// unspecified, private (RFC 1918, RFC 4193) and link-local addresses.
func isLocalAddress(ip string) bool {
	if ip == LoopbackIP || ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && (parsed.IsLoopback() ||
		parsed.IsUnspecified() ||
		parsed.IsPrivate() ||
		parsed.IsLinkLocalUnicast())
}
