package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/database"
	"github.com/iliyamo/community-events/internal/geocoder"
	"github.com/iliyamo/community-events/internal/handler"
	"github.com/iliyamo/community-events/internal/logger"
	"github.com/iliyamo/community-events/internal/mailer"
	"github.com/iliyamo/community-events/internal/matching"
	"github.com/iliyamo/community-events/internal/metrics"
	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/oauth"
	"github.com/iliyamo/community-events/internal/queue"
	"github.com/iliyamo/community-events/internal/ratelimit"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/router"
	"github.com/iliyamo/community-events/internal/service"
	"github.com/iliyamo/community-events/internal/storage"
	"github.com/iliyamo/community-events/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env")
	}
	cfg := config.Load() // Load environment config

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	metrics.InitAPIMetrics() // Register Prometheus collectors
	shutdownTracing := tracing.Init(config.LoadTracingConfig(), zl)
	defer shutdownTracing()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		zl.Warn("redis unavailable, using in-process rate limiting and no response cache")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Rate limiting ----
	var limiter *ratelimit.Limiter
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled {
		var store ratelimit.Store = ratelimit.NewMemoryStore()
		if rlCfg.Backend == "redis" && rdb != nil {
			store = ratelimit.NewRedisStore(rdb, rlCfg.Prefix)
		}
		limiter = ratelimit.New(store)
		zl.Info("rate limiting enabled", zap.String("backend", rlCfg.Backend))
	}

	// ---- Notifications ----
	mailCfg := config.LoadMailConfig()
	notify := mailer.NewNotifier(mailer.New(mailCfg, zl), mailCfg.Provider, mailCfg.From, mailCfg.FromName, cfg.FrontendURL, zl)

	qCfg := config.LoadQueueConfig()
	pub, err := queue.NewPublisher(qCfg, zl)
	if err != nil {
		zl.Fatal("queue init failed", zap.Error(err))
	}
	if pub != nil {
		defer pub.Close()
		if qCfg.Consume {
			go consume(ctx, qCfg, queue.MailHandler(notify), zl)
		}
	}
	dispatcher := queue.NewDispatcher(pub, queue.MailHandler(notify), zl)

	// ---- Repositories ----
	users := repository.NewUserRepo(db)                 // Accounts
	tokens := repository.NewTokenRepo(db)               // Refresh tokens
	events := repository.NewEventRepo(db)               // Events and reminders
	categories := repository.NewCategoryRepo(db)        // Event categories
	participants := repository.NewParticipantRepo(db)   // Event attendance
	reviews := repository.NewReviewRepo(db)             // Event reviews
	interests := repository.NewInterestRepo(db)         // Interest catalogue
	userInterests := repository.NewUserInterestRepo(db) // Weighted user interests

	// ---- External services ----
	uploadCfg := config.LoadUploadConfig()
	store, err := storage.New(ctx, uploadCfg, cfg.UploadDir)
	if err != nil {
		zl.Fatal("storage init failed", zap.Error(err))
	}
	uploadDir := ""
	if uploadCfg.Backend != "s3" {
		uploadDir = cfg.UploadDir
	}
	yandexCfg := config.LoadYandexConfig()
	matcher := matching.NewService(repository.NewMatchingRepo(db), userInterests,
		repository.NewMatchRequestRepo(db), events, dispatcher, zl)

	cacheCfg := config.LoadCacheConfig()
	h := router.Handlers{
		Auth: handler.NewAuthHandler(cfg, users, tokens, repository.NewRegistrationRepo(db),
			repository.NewPasswordResetRepo(db), notify, oauth.NewYandex(yandexCfg), yandexCfg.FakeAuth, zl),
		User:        handler.NewUserHandler(cfg, users, notify, zl),
		Events:      handler.NewEventHandler(events, categories, participants, reviews, zl),
		Reviews:     handler.NewReviewHandler(events, participants, reviews, zl),
		Interests:   handler.NewInterestHandler(interests, userInterests, zl),
		Matching:    handler.NewMatchingHandler(matcher, zl),
		Communities: handler.NewCommunityHandler(repository.NewCommunityRepo(db), zl),
		Categories:  handler.NewCategoryHandler(categories, rdb, cacheCfg.Prefix, zl),
		Admin:       handler.NewAdminHandler(cfg, users, tokens, notify, zl),
		Geocoder:    handler.NewGeocoderHandler(geocoder.New(config.LoadGeocoderConfig()), zl),
		Upload:      handler.NewUploadHandler(store, zl),
	}

	e := echo.New()     // Create Echo instance
	e.HideBanner = true // Quiet startup
	// Rate limits key on this address; forwarded headers count only from trusted proxies.
	ipx, err := middleware.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		zl.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	e.IPExtractor = ipx
	e.Use(echomw.Recover())             // Turn panics into 500s
	e.Use(echomw.RequestID())           // X-Request-ID on every response
	e.Use(middleware.Metrics())         // Request counters and latency
	e.Use(middleware.RequestLogger(zl)) // Structured access log

	router.Register(e, db, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Limiter:   limiter,
		Cache:     middleware.NewRedisCache(cacheCfg, rdb, zl),
		UploadDir: uploadDir,
		Log:       zl,
	}, h)

	if cfg.CronInterval > 0 {
		jobs := service.NewJobs(events, dispatcher, zl)
		go jobs.Start(ctx, cfg.CronInterval)
		zl.Info("in-process scheduler started", zap.Duration("interval", cfg.CronInterval))
	}

	corsCfg := config.LoadCORSConfig()
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   corsCfg.AllowOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: true,
		}).Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done() // Wait for SIGINT or SIGTERM
	zl.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

// consume runs the notification consumer for the configured broker until
// ctx is cancelled.
func consume(ctx context.Context, cfg config.QueueConfig, h queue.Handler, log *zap.Logger) {
	switch cfg.Backend {
	case "kafka":
		queue.ConsumeKafka(ctx, cfg.KafkaBrokers, cfg.Topic, "community-events-mailer", h, log)
	default:
		queue.ConsumeRabbit(ctx, cfg.RabbitURL, cfg.Topic, h, log)
	}
}
