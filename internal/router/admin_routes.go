package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/handler"
	"github.com/iliyamo/community-events/internal/middleware"
)

// RegisterAdmin registers account and moderation endpoints under /api/admin.
// All routes require a valid JWT and the admin role.
func RegisterAdmin(e *echo.Echo, d Deps, a *handler.AdminHandler, ev *handler.EventHandler, c *handler.CategoryHandler) {
	g := e.Group(
		"/api/admin",
		d.auth(),
		middleware.RequireAdmin(),
	)

	// ---- Users ----
	g.GET("/users", a.ListUsers)
	g.POST("/users", a.CreateUser)
	g.GET("/users/export", a.ExportUsers)
	g.GET("/users/:id", a.GetUser)
	g.PUT("/users/:id", a.UpdateUser)
	g.DELETE("/users/:id", a.DeleteUser)
	g.POST("/users/:id/reset-password", a.ResetPassword)

	// ---- Events ----
	g.GET("/events", ev.AdminList)

	// ---- Categories ----
	g.GET("/categories", c.List)
	g.POST("/categories", c.Create)
	g.PUT("/categories/:id", c.Update)
	g.DELETE("/categories/:id", c.Delete)
}
