package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/handler"
)

// RegisterEvents registers event browsing, management, participation,
// reviews and matching.  Reads accept an optional token so the response can
// reflect the caller (tab=my, isParticipant).
func RegisterEvents(e *echo.Echo, d Deps, ev *handler.EventHandler, rv *handler.ReviewHandler, m *handler.MatchingHandler) {
	g := e.Group("/api/events")
	auth := d.auth()

	g.GET("", ev.List, d.optional())
	g.GET("/:id", ev.Get, d.optional())
	g.POST("", ev.Create, auth)
	g.PUT("/:id", ev.Update, auth)
	g.DELETE("/:id", ev.Delete, auth)

	g.POST("/:id/join", ev.Join, auth)
	g.DELETE("/:id/leave", ev.Leave, auth)
	g.GET("/:id/export", ev.Export, auth)

	// ---- Reviews ----
	g.GET("/:id/reviews", rv.List)
	g.POST("/:id/reviews", rv.Create, auth)
	g.PUT("/:id/reviews/:reviewId", rv.Update, auth)
	g.DELETE("/:id/reviews/:reviewId", rv.Delete, auth)

	// ---- Matching ----
	mg := g.Group("/:id/matching", auth)
	mg.POST("", m.SetIntent)
	mg.GET("", m.FindMatches)
	mg.DELETE("", m.RemoveIntent)
	mg.POST("/request", m.CreateRequest)
	mg.GET("/requests", m.ListRequests)
	mg.POST("/requests/:requestId/accept", m.Accept)
	mg.POST("/requests/:requestId/reject", m.Reject)
	mg.DELETE("/requests/:requestId", m.Cancel)
}
