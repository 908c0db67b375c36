// Command cron runs the event maintenance jobs once and exits.  Schedule it
// from the system cron, for example hourly.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/database"
	"github.com/iliyamo/community-events/internal/logger"
	"github.com/iliyamo/community-events/internal/mailer"
	"github.com/iliyamo/community-events/internal/queue"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env")
	}
	cfg := config.Load()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	mailCfg := config.LoadMailConfig()
	notify := mailer.NewNotifier(mailer.New(mailCfg, zl), mailCfg.Provider, mailCfg.From, mailCfg.FromName, cfg.FrontendURL, zl)
	pub, err := queue.NewPublisher(config.LoadQueueConfig(), zl)
	if err != nil {
		zl.Fatal("queue init failed", zap.Error(err))
	}
	if pub != nil {
		defer pub.Close()
	}

	jobs := service.NewJobs(repository.NewEventRepo(db), queue.NewDispatcher(pub, queue.MailHandler(notify), zl), zl)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()
	if err := jobs.RunAll(ctx); err != nil {
		zl.Error("cron run finished with errors", zap.Error(err), zap.Duration("took", time.Since(start)))
		_ = zl.Sync()
		os.Exit(1)
	}
	zl.Info("cron run finished", zap.Duration("took", time.Since(start)))
}
