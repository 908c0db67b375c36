package middleware

import (
    "fmt"
    "net"
    "strings"

    "github.com/labstack/echo/v4"
)

// IPExtractor builds the echo IP extractor for the server.  With no trusted
// proxies the peer address is used as is.  Otherwise X-Forwarded-For is
// honoured only for hops inside the given CIDRs.
func IPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
    if len(trustedProxies) == 0 {
        return echo.ExtractIPDirect(), nil
    }
    opts := []echo.TrustOption{
        echo.TrustLoopback(false),
        echo.TrustLinkLocal(false),
        echo.TrustPrivateNet(false),
    }
    for _, cidr := range trustedProxies {
        cidr = strings.TrimSpace(cidr)
        if !strings.Contains(cidr, "/") {
            if ip := net.ParseIP(cidr); ip != nil && ip.To4() != nil {
                cidr += "/32"
            } else {
                cidr += "/128"
            }
        }
        _, n, err := net.ParseCIDR(cidr)
        if err != nil {
            return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
        }
        opts = append(opts, echo.TrustIPRange(n))
    }
    return echo.ExtractIPFromXFFHeader(opts...), nil
}

// clientIP is the address rate limits are keyed on.  Echo falls back to
// client supplied headers when no extractor is configured, so that case
// uses the peer address directly.
func clientIP(c echo.Context) string {
    if e := c.Echo(); e != nil && e.IPExtractor != nil {
        return c.RealIP()
    }
    return echo.ExtractIPDirect()(c.Request())
}
