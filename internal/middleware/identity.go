package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/model"
)

const (
    ctxUserID = "user_id"
    ctxEmail  = "email"
    ctxRole   = "role"
)

func ctxString(c echo.Context, key string) string {
    s, _ := c.Get(key).(string)
    return s
}

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string { return ctxString(c, ctxUserID) }

func Email(c echo.Context) string { return ctxString(c, ctxEmail) }

func Role(c echo.Context) string { return ctxString(c, ctxRole) }

func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }
