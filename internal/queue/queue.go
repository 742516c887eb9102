package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
)

// DispatchTopic carries DispatchJob payloads.
const DispatchTopic = "campaign_dispatch"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// DispatchJob asks a worker to dispatch one stored campaign.
type DispatchJob struct {
	CampaignID int `json:"campaign_id"`
}

// InMemoryQueue runs each published job on its own goroutine with retry
type InMemoryQueue struct {
	mu         sync.Mutex
	wg         sync.WaitGroup
	handlers   map[string][]func(payload any) error
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewInMemoryQueue creates a new queue. maxRetries counts re-runs after
// the first failure.
func NewInMemoryQueue(maxRetries int, logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logging.OrNop(logger),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: q.maxRetries}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()
	for {
		err := handler(job.Payload)
		if err == nil {
			q.logger.Debug("job processed", zap.String("topic", job.Topic))
			return // ACK
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed",
				zap.String("topic", job.Topic),
				zap.Int("attempts", job.RetryCount),
				zap.Error(err))
			return // No requeue
		}
		q.logger.Warn("job failed, retrying",
			zap.String("topic", job.Topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		// Linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// StartDispatchSubscriber routes DispatchJob payloads to run.
func StartDispatchSubscriber(q Queue, run func(ctx context.Context, campaignID int) error, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	return q.Subscribe(DispatchTopic, func(payload any) error {
		job, ok := payload.(DispatchJob)
		if !ok {
			logger.Warn("invalid dispatch payload", zap.String("type", fmt.Sprintf("%T", payload)))
			return nil // no retry
		}

		logger.Info("processing dispatch job", zap.Int("campaign_id", job.CampaignID))
		if err := run(context.Background(), job.CampaignID); err != nil {
			logger.Error("dispatch job failed", zap.Int("campaign_id", job.CampaignID), zap.Error(err))
			return err
		}
		return nil
	})
}
