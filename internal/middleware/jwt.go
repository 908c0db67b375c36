package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/utils"
)

func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

func setIdentity(c echo.Context, cl utils.Claims) {
    c.Set(ctxUserID, cl.UserID)
    c.Set(ctxEmail, cl.Email)
    c.Set(ctxRole, cl.Role)
}

// JWTAuth rejects requests without a valid HS256 access token and stores the
// token's user id, email and role in the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authorization required"})
            }
            cl, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
            }
            setIdentity(c, cl)
            return next(c)
        }
    }
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through.  A bad token is treated as anonymous.
func OptionalAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw, ok := bearer(c); ok {
                if cl, err := utils.ParseAccessToken(secret, raw); err == nil {
                    setIdentity(c, cl)
                }
            }
            return next(c)
        }
    }
}
