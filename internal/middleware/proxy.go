package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() honour X-Real-IP and X-Forwarded-For, but
// only for connections arriving from one of the given CIDR ranges. Rate
// limiting and request logs key on the resulting address.
func TrustedProxies(e *echo.Echo, cidrs []string) {
	var trusted []netip.Prefix
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy range", slog.String("cidr", cidr), slog.Any("error", err))
			continue
		}
		trusted = append(trusted, p.Masked())
	}
	e.IPExtractor = ipExtractor(trusted)
}

func ipExtractor(trusted []netip.Prefix) echo.IPExtractor {
	return func(req *http.Request) string {
		direct := req.RemoteAddr
		if host, _, err := net.SplitHostPort(direct); err == nil {
			direct = host
		}
		if !isTrusted(direct, trusted) {
			return direct
		}

		if v := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); v != "" {
			return v
		}
		// Leftmost X-Forwarded-For entry is the original client.
		if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		return direct
	}
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
