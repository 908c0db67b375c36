package middleware

import (
    "math"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/metrics"
    "github.com/iliyamo/community-events/internal/ratelimit"
)

// RateLimit applies policy (for example "3-H") to the peer address.  A nil
// limiter disables limiting.  When the store fails the request is let
// through and the failure is logged.
func RateLimit(l *ratelimit.Limiter, policy string, log *zap.Logger) echo.MiddlewareFunc {
    if l == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    p := ratelimit.ParsePolicy(policy)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            client := clientIP(c)
            if client == "" {
                client = "unknown"
            }
            d, err := l.Check(c.Request().Context(), client, p)
            if err != nil {
                log.Warn("rate limit store failed, allowing request",
                    zap.String("policy", p.Raw), zap.String("client", client), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
            h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                h.Set("Retry-After", strconv.Itoa(secs))
                metrics.HttpRateLimitRejectionsTotal.WithLabelValues(p.Raw).Inc()
                log.Debug("rate limited", zap.String("policy", p.Raw), zap.String("client", client))
                return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many requests, try again later"})
            }
            return next(c)
        }
    }
}
