package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/handler"
	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/ratelimit"
)

// Deps carries the cross-cutting pieces every route group needs.  A nil
// Limiter disables rate limiting and a nil Cache serves lists uncached.
type Deps struct {
	JWTSecret string
	Limiter   *ratelimit.Limiter
	Cache     echo.MiddlewareFunc
	UploadDir string // served under /uploads when non-empty
	Log       *zap.Logger
}

func (d Deps) limit(policy string) echo.MiddlewareFunc {
	return middleware.RateLimit(d.Limiter, policy, d.Log)
}

func (d Deps) auth() echo.MiddlewareFunc     { return middleware.JWTAuth(d.JWTSecret) }
func (d Deps) optional() echo.MiddlewareFunc { return middleware.OptionalAuth(d.JWTSecret) }

func (d Deps) cache() echo.MiddlewareFunc {
	if d.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return d.Cache
}

// Handlers groups the request handlers, one per resource.
type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Events      *handler.EventHandler
	Reviews     *handler.ReviewHandler
	Interests   *handler.InterestHandler
	Matching    *handler.MatchingHandler
	Communities *handler.CommunityHandler
	Categories  *handler.CategoryHandler
	Admin       *handler.AdminHandler
	Geocoder    *handler.GeocoderHandler
	Upload      *handler.UploadHandler
}

// RegisterRoutes registers the probes and the metrics endpoint.  They need
// no authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)    // Liveness probe
	e.GET("/api/health", handler.Health) // Same, under the API prefix
	if db != nil {
		e.GET("/readyz", handler.Ready(db)) // Readiness pings the database
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler())) // Prometheus scrape endpoint
}

// Register mounts the whole API.
func Register(e *echo.Echo, db *sql.DB, d Deps, h Handlers) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	RegisterRoutes(e, db)                                 // Probes and metrics
	RegisterAuth(e, d, h.Auth)                            // /api/auth
	RegisterUser(e, d, h.User, h.Interests)               // /api/user
	RegisterEvents(e, d, h.Events, h.Reviews, h.Matching) // /api/events with reviews and matching
	RegisterInterests(e, d, h.Interests)                  // /api/interests
	RegisterCommunities(e, d, h.Communities)              // /api/communities
	RegisterCategories(e, d, h.Categories)                // /api/categories
	RegisterAdmin(e, d, h.Admin, h.Events, h.Categories)  // /api/admin
	RegisterGeocoder(e, d, h.Geocoder)                    // /api/geocoder
	RegisterUpload(e, d, h.Upload)                        // /api/upload
}
