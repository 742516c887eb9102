// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/app"
	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/controller"
	"github.com/unclebandit/campaign-dispatch/internal/db"
	"github.com/unclebandit/campaign-dispatch/internal/handler"
	"github.com/unclebandit/campaign-dispatch/internal/lock"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	pipeline := app.Build(cfg, conn, logger)

	// With AMQP configured the worker binary consumes dispatch jobs;
	// otherwise they run in-process.
	var q queue.Queue
	if cfg.AMQP.URL != "" {
		aq, err := queue.DialAMQP(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Fatal("queue unavailable", zap.Error(err))
		}
		defer aq.Close()
		q = aq
	} else {
		mq := queue.NewInMemoryQueue(0, logger)
		err := queue.StartDispatchSubscriber(mq, func(ctx context.Context, campaignID int) error {
			_, err := pipeline.Dispatcher.DispatchByID(ctx, campaignID, service.SendOptions{})
			return err
		}, logger)
		if err != nil {
			logger.Fatal("failed to subscribe dispatcher", zap.Error(err))
		}
		defer mq.Wait()
		q = mq
	}

	campaignService := &service.CampaignService{
		CampaignRepo: pipeline.CampaignRepo,
		MemberRepo:   pipeline.MemberRepo,
		Ledger:       pipeline.Ledger,
		Dispatcher:   pipeline.Dispatcher,
		Queue:        q,
		Signature:    pipeline.Signature,
		Logger:       logger,
	}

	if cfg.Scheduler.Enabled {
		scheduler := &service.Scheduler{
			CampaignRepo: pipeline.CampaignRepo,
			Queue:        q,
			Locker:       newLocker(cfg.Redis, logger),
			Spec:         cfg.Scheduler.Spec,
			LockTTL:      cfg.Scheduler.LockTTL,
			Logger:       logger,
		}
		if err := scheduler.Start(); err != nil {
			logger.Fatal("scheduler failed to start", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	router := controller.NewRouter(
		controller.NewCampaignController(campaignService, logger),
		handler.NewCampaignHandler(campaignService, logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newLocker uses Redis when configured so that only one replica runs
// each scheduler tick.
func newLocker(cfg config.RedisConfig, logger *zap.Logger) lock.Locker {
	if cfg.Addr == "" {
		return lock.NewLocalLocker()
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	logger.Info("using redis scheduler lock", zap.String("addr", cfg.Addr))
	return lock.NewRedisLocker(rdb)
}
