// internal/service/scheduler.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/lock"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

const schedulerLockKey = "campaign-scheduler"

// Scheduler periodically hands due campaigns to the dispatch queue.
type Scheduler struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Queue        queue.Queue
	Locker       lock.Locker
	Spec         string
	LockTTL      time.Duration
	Logger       *zap.Logger
	Now          func() time.Time

	c *cron.Cron
}

func (s *Scheduler) Start() error {
	logger := logging.OrNop(s.Logger)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser))

	spec := s.Spec
	if spec == "" {
		spec = "@every 1m"
	}
	_, err := s.c.AddFunc(spec, func() {
		now := time.Now()
		if s.Now != nil {
			now = s.Now()
		}
		if _, err := s.Tick(context.Background(), now); err != nil {
			logger.Error("scheduler tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}

	s.c.Start()
	logger.Info("scheduler started", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
}

// Tick runs RunDue under the scheduler lock. It returns 0 without error
// when another instance holds the lock.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (int, error) {
	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 50 * time.Second
		}
		release, ok, err := s.Locker.TryLock(ctx, schedulerLockKey, ttl)
		if err != nil {
			return 0, err
		}
		if !ok {
			logging.OrNop(s.Logger).Debug("scheduler lock held elsewhere, skipping tick")
			return 0, nil
		}
		defer release()
	}
	return s.RunDue(ctx, now)
}

// RunDue publishes a dispatch job for every scheduled campaign whose time
// has come. The dispatcher's claim step keeps a job from running twice.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) (int, error) {
	logger := logging.OrNop(s.Logger)

	due, err := s.CampaignRepo.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, c := range due {
		if err := s.Queue.Publish(queue.DispatchTopic, queue.DispatchJob{CampaignID: c.ID}); err != nil {
			logger.Error("failed to enqueue due campaign", zap.Int("campaign_id", c.ID), zap.Error(err))
			continue
		}
		published++
	}
	if published > 0 {
		logger.Info("enqueued due campaigns", zap.Int("count", published))
	}
	return published, nil
}
