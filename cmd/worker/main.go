// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/app"
	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/db"
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

	if cfg.AMQP.URL == "" {
		logger.Fatal("AMQP_URL is required for the worker")
	}

	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	pipeline := app.Build(cfg, conn, logger)

	q, err := queue.DialAMQP(cfg.AMQP.URL, logger)
	if err != nil {
		logger.Fatal("queue unavailable", zap.Error(err))
	}
	defer q.Close()

	jobs := newJobFeed()
	if err := q.Subscribe(queue.DispatchTopic, jobs.forward); err != nil {
		logger.Fatal("failed to register consumer", zap.Error(err))
	}

	worker := service.NewWorker(pipeline.Dispatcher, jobs.ch, logger)
	done := make(chan struct{})
	go func() {
		worker.Start()
		close(done)
	}()

	logger.Info("worker running, waiting for dispatch jobs")
	<-ctx.Done()
	jobs.close()
	<-done
}

var errStopped = errors.New("worker is shutting down")

// jobFeed hands decoded dispatch jobs to the worker one at a time and
// refuses new ones once closed.
type jobFeed struct {
	mu     sync.Mutex
	ch     chan int
	closed bool
}

func newJobFeed() *jobFeed {
	return &jobFeed{ch: make(chan int)}
}

func (f *jobFeed) forward(payload any) error {
	job, ok := payload.(queue.DispatchJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T", payload)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errStopped
	}
	f.ch <- job.CampaignID
	return nil
}

// close waits for an in-flight hand-off, then ends the worker loop.
func (f *jobFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
