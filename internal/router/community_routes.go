package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/handler"
	"github.com/iliyamo/community-events/internal/middleware"
)

// RegisterInterests registers the public interest catalogue.  Creating an
// interest is reserved for admins.
func RegisterInterests(e *echo.Echo, d Deps, i *handler.InterestHandler) {
	g := e.Group("/api/interests")
	g.GET("", i.List)
	g.GET("/categories", i.Categories)
	g.POST("", i.Create, d.auth(), middleware.RequireAdmin())
}

func RegisterCommunities(e *echo.Echo, d Deps, c *handler.CommunityHandler) {
	g := e.Group("/api/communities")
	auth := d.auth()

	g.GET("", c.List)
	g.GET("/my", c.Mine, auth)
	g.GET("/:id", c.Get, d.optional())
	g.GET("/:id/members", c.Members)
	g.POST("", c.Create, auth)
	g.POST("/:id/join", c.Join, auth)
	g.DELETE("/:id/leave", c.Leave, auth)
}

// RegisterCategories registers the public, cached category list.  Writes
// live under /api/admin/categories.
func RegisterCategories(e *echo.Echo, d Deps, c *handler.CategoryHandler) {
	g := e.Group("/api/categories")
	g.GET("", c.List, d.cache())
	g.GET("/:id", c.Get, d.cache())
}
