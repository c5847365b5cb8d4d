package pkg

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

var localDockerIPRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1$`)

// IPIsLocal reports whether ip is the loopback or a docker bridge gateway address.
func IPIsLocal(ip string) bool {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		return true
	}
	return localDockerIPRegex.MatchString(ip)
}

// ClientIP returns the caller address without the port. Proxy headers win over
// the connection address; local addresses collapse into "localhost".
func ClientIP(r *http.Request) string {
	addr := r.Header.Get("X-Real-Ip")
	if addr == "" {
		// first hop is the original client
		addr, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = r.RemoteAddr
	}

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if IPIsLocal(addr) {
		return "localhost"
	}
	return addr
}
