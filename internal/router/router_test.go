package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/handler"
	"github.com/iliyamo/community-events/internal/ratelimit"
)

const testSecret = "router-secret"

func newServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	e := echo.New()
	h := Handlers{
		Auth:        handler.NewAuthHandler(config.Config{JWTSecret: testSecret}, nil, nil, nil, nil, nil, nil, false, nil),
		User:        handler.NewUserHandler(config.Config{}, nil, nil, nil),
		Events:      handler.NewEventHandler(nil, nil, nil, nil, nil),
		Reviews:     handler.NewReviewHandler(nil, nil, nil, nil),
		Interests:   handler.NewInterestHandler(nil, nil, nil),
		Matching:    handler.NewMatchingHandler(nil, nil),
		Communities: handler.NewCommunityHandler(nil, nil),
		Categories:  handler.NewCategoryHandler(nil, nil, "cache", nil),
		Admin:       handler.NewAdminHandler(config.Config{}, nil, nil, nil, nil),
		Geocoder:    handler.NewGeocoderHandler(nil, nil),
		Upload:      handler.NewUploadHandler(nil, nil),
	}
	Register(e, nil, Deps{JWTSecret: testSecret, Limiter: limiter}, h)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newServer(t, nil)
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	want := []string{
		"GET /healthz",
		"GET /api/health",
		"GET /metrics",
		"POST /api/auth/register",
		"POST /api/auth/verify-email",
		"POST /api/auth/login",
		"POST /api/auth/logout",
		"POST /api/auth/init-admin",
		"GET /api/auth/yandex/callback",
		"PUT /api/user/profile",
		"DELETE /api/user/interests/:interestId",
		"GET /api/events",
		"GET /api/events/:id/export",
		"POST /api/events/:id/reviews",
		"PUT /api/events/:id/reviews/:reviewId",
		"POST /api/events/:id/matching/request",
		"POST /api/events/:id/matching/requests/:requestId/accept",
		"DELETE /api/events/:id/matching/requests/:requestId",
		"GET /api/interests/categories",
		"GET /api/communities/my",
		"DELETE /api/communities/:id/leave",
		"GET /api/categories",
		"GET /api/admin/users/export",
		"POST /api/admin/users/:id/reset-password",
		"GET /api/admin/events",
		"DELETE /api/admin/categories/:id",
		"GET /api/geocoder/map-link",
		"POST /api/geocoder/reverse",
		"POST /api/upload/image",
	}
	for _, w := range want {
		if !have[w] {
			t.Errorf("route %s not registered", w)
		}
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer(t, nil)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/user/profile"},
		{http.MethodPost, "/api/events"},
		{http.MethodGet, "/api/events/e1/matching"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/communities/my"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", r.method, r.path, rec.Code)
		}
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	e := newServer(t, ratelimit.New(ratelimit.NewMemoryStore()))
	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.RemoteAddr = "192.0.2.7:5000"
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
		if i < 5 && last.Code != http.StatusBadRequest {
			t.Fatalf("request %d: status %d, want 400 from validation", i+1, last.Code)
		}
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("6th login: status %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
}
