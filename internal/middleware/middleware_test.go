package middleware

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/cors"

    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/ratelimit"
    "github.com/iliyamo/community-events/internal/utils"
)

const testSecret = "test-secret"

func ok(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c)}) }

func serve(e *echo.Echo, method, path, token, ip string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    if ip != "" {
        req.RemoteAddr = ip + ":1234"
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func token(t *testing.T, role string) string {
    t.Helper()
    at, err := utils.NewAccessToken(testSecret, "u-1", "u@x.io", role, 5)
    if err != nil {
        t.Fatal(err)
    }
    return at.Token
}

func TestRateLimitThreePerHour(t *testing.T) {
    now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
    l := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.WithClock(func() time.Time { return now }))
    e := echo.New()
    e.POST("/register", ok, RateLimit(l, "3-H", nil))

    wantRemaining := []string{"2", "1", "0", "0"}
    for i, want := range wantRemaining {
        rec := serve(e, http.MethodPost, "/register", "", "10.0.0.1")
        if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
            t.Errorf("request %d remaining = %s, want %s", i+1, got, want)
        }
        if rec.Header().Get("X-RateLimit-Limit") != "3" {
            t.Errorf("limit header = %q", rec.Header().Get("X-RateLimit-Limit"))
        }
        if i < 3 && rec.Code != http.StatusOK {
            t.Fatalf("request %d status = %d", i+1, rec.Code)
        }
        if i == 3 {
            if rec.Code != http.StatusTooManyRequests {
                t.Fatalf("4th status = %d", rec.Code)
            }
            if rec.Header().Get("Retry-After") != "3600" {
                t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
            }
        }
    }

    // Another client is unaffected.
    if rec := serve(e, http.MethodPost, "/register", "", "10.0.0.2"); rec.Code != http.StatusOK {
        t.Fatalf("other client status = %d", rec.Code)
    }

    now = now.Add(time.Hour + time.Second)
    if rec := serve(e, http.MethodPost, "/register", "", "10.0.0.1"); rec.Code != http.StatusOK {
        t.Fatalf("after window status = %d", rec.Code)
    }
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
    l := ratelimit.New(ratelimit.NewMemoryStore())
    e := echo.New()
    e.POST("/register", ok, RateLimit(l, "3-H", nil))

    for i := 0; i < 4; i++ {
        req := httptest.NewRequest(http.MethodPost, "/register", nil)
        req.RemoteAddr = "10.0.0.1:1234"
        req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("203.0.113.%d", i+1))
        req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("198.51.100.%d", i+1))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if i < 3 && rec.Code != http.StatusOK {
            t.Fatalf("request %d status = %d", i+1, rec.Code)
        }
        if i == 3 && rec.Code != http.StatusTooManyRequests {
            t.Fatalf("4th request with a new X-Forwarded-For got %d, want 429", rec.Code)
        }
    }
}

func TestIPExtractor(t *testing.T) {
    direct, err := IPExtractor(nil)
    if err != nil {
        t.Fatal(err)
    }
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
    if got := direct(req); got != "10.0.0.1" {
        t.Errorf("direct = %q", got)
    }

    proxied, err := IPExtractor([]string{"10.0.0.0/8"})
    if err != nil {
        t.Fatal(err)
    }
    if got := proxied(req); got != "203.0.113.9" {
        t.Errorf("behind trusted proxy = %q", got)
    }
    req.RemoteAddr = "192.0.2.50:1234"
    if got := proxied(req); got != "192.0.2.50" {
        t.Errorf("untrusted peer = %q", got)
    }

    if _, err := IPExtractor([]string{"not-a-cidr"}); err == nil {
        t.Error("bad CIDR accepted")
    }

    e := echo.New()
    e.IPExtractor = proxied
    l := ratelimit.New(ratelimit.NewMemoryStore())
    e.GET("/x", ok, RateLimit(l, "1-H", nil))
    for _, xff := range []string{"203.0.113.1", "203.0.113.2"} {
        req := httptest.NewRequest(http.MethodGet, "/x", nil)
        req.RemoteAddr = "10.0.0.1:1234"
        req.Header.Set(echo.HeaderXForwardedFor, xff)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusOK {
            t.Errorf("client %s behind proxy got %d", xff, rec.Code)
        }
    }
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Duration, time.Time) (ratelimit.Window, error) {
    return ratelimit.Window{}, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
    e := echo.New()
    e.GET("/x", ok, RateLimit(ratelimit.New(brokenStore{}), "1-H", nil))
    for i := 0; i < 3; i++ {
        if rec := serve(e, http.MethodGet, "/x", "", "10.0.0.1"); rec.Code != http.StatusOK {
            t.Fatalf("status = %d", rec.Code)
        }
    }
}

func TestRateLimitNilLimiterDisabled(t *testing.T) {
    e := echo.New()
    e.GET("/x", ok, RateLimit(nil, "1-H", nil))
    for i := 0; i < 3; i++ {
        if rec := serve(e, http.MethodGet, "/x", "", ""); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Limit") != "" {
            t.Fatalf("status = %d headers = %v", rec.Code, rec.Header())
        }
    }
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", ok, JWTAuth(testSecret))

    if rec := serve(e, http.MethodGet, "/me", "", ""); rec.Code != http.StatusUnauthorized {
        t.Errorf("no token = %d", rec.Code)
    }
    if rec := serve(e, http.MethodGet, "/me", "garbage", ""); rec.Code != http.StatusUnauthorized {
        t.Errorf("bad token = %d", rec.Code)
    }
    rec := serve(e, http.MethodGet, "/me", token(t, "user"), "")
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"user":"u-1"`) {
        t.Errorf("valid token = %d %s", rec.Code, rec.Body)
    }
}

func TestOptionalAuth(t *testing.T) {
    e := echo.New()
    e.GET("/events", ok, OptionalAuth(testSecret))

    rec := serve(e, http.MethodGet, "/events", "garbage", "")
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"user":""`) {
        t.Errorf("bad token = %d %s", rec.Code, rec.Body)
    }
    rec = serve(e, http.MethodGet, "/events", token(t, "user"), "")
    if !strings.Contains(rec.Body.String(), `"user":"u-1"`) {
        t.Errorf("valid token body = %s", rec.Body)
    }
}

func TestRequireAdmin(t *testing.T) {
    e := echo.New()
    e.GET("/admin", ok, JWTAuth(testSecret), RequireAdmin())

    if rec := serve(e, http.MethodGet, "/admin", token(t, "user"), ""); rec.Code != http.StatusForbidden {
        t.Errorf("user = %d", rec.Code)
    }
    if rec := serve(e, http.MethodGet, "/admin", token(t, "admin"), ""); rec.Code != http.StatusOK {
        t.Errorf("admin = %d", rec.Code)
    }
}

func TestRedisCache(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}

    calls := 0
    e := echo.New()
    e.GET("/categories", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, []string{"music"})
    }, NewRedisCache(cfg, rdb, nil))

    first := serve(e, http.MethodGet, "/categories", "", "")
    second := serve(e, http.MethodGet, "/categories", "", "")
    if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("X-Cache = %q then %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
    }
    if calls != 1 || first.Body.String() != second.Body.String() {
        t.Fatalf("calls = %d bodies %q %q", calls, first.Body, second.Body)
    }

    if err := InvalidateCache(context.Background(), rdb, "cache"); err != nil {
        t.Fatal(err)
    }
    serve(e, http.MethodGet, "/categories", "", "")
    if calls != 2 {
        t.Fatalf("after invalidate calls = %d", calls)
    }

    // Authenticated requests are never served from cache.
    serve(e, http.MethodGet, "/categories", token(t, "user"), "")
    if calls != 3 {
        t.Fatalf("authenticated calls = %d", calls)
    }
}

func TestRedisCacheBehindCORS(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}

    e := echo.New()
    e.GET("/api/categories", func(c echo.Context) error {
        c.Response().Header().Set(echo.HeaderXRequestID, "req-"+c.Request().Header.Get(echo.HeaderOrigin))
        return c.JSON(http.StatusOK, []string{"music"})
    }, NewRedisCache(cfg, rdb, nil))
    h := cors.New(cors.Options{
        AllowedOrigins: []string{"https://a.example", "https://b.example"},
    }).Handler(e)

    get := func(origin string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
        req.Header.Set(echo.HeaderOrigin, origin)
        rec := httptest.NewRecorder()
        h.ServeHTTP(rec, req)
        return rec
    }
    get("https://a.example")
    rec := get("https://b.example")

    if rec.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("X-Cache = %q", rec.Header().Get("X-Cache"))
    }
    if got := rec.Header().Values(echo.HeaderAccessControlAllowOrigin); len(got) != 1 || got[0] != "https://b.example" {
        t.Errorf("Access-Control-Allow-Origin = %q", got)
    }
    if got := rec.Header().Values(echo.HeaderXRequestID); len(got) != 0 {
        t.Errorf("stale X-Request-Id replayed: %q", got)
    }
    if got := rec.Header().Values(echo.HeaderContentType); len(got) != 1 || !strings.HasPrefix(got[0], echo.MIMEApplicationJSON) {
        t.Errorf("Content-Type = %q", got)
    }
}

func TestEntryRoundTrip(t *testing.T) {
    h := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodeEntry(201, h, []byte(`{"a":1}`))
    if err != nil {
        t.Fatal(err)
    }
    status, hdr, body, ok := decodeEntry(bs)
    if !ok || status != 201 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
        t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
    }
    if _, _, _, ok := decodeEntry([]byte{0, 0, 0}); ok {
        t.Fatal("short entry decoded")
    }
}
