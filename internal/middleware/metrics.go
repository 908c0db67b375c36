package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/metrics"
)

// Metrics records request counts, latency and 4xx/5xx responses labelled
// by route pattern, not raw path, to keep label cardinality bounded.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            endpoint := c.Path()
            if endpoint == "" {
                endpoint = "unmatched"
            }
            method := c.Request().Method
            status := strconv.Itoa(c.Response().Status)

            metrics.HttpRequestsTotal.WithLabelValues(endpoint, status, method).Inc()
            metrics.HttpRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
            if c.Response().Status >= 400 {
                metrics.HttpErrorsTotal.WithLabelValues(endpoint, status, method).Inc()
            }
            return nil
        }
    }
}
