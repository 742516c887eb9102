package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// DispatchRunner defines the method the worker needs
type DispatchRunner interface {
	DispatchByID(ctx context.Context, campaignID int, opts SendOptions) (*model.DispatchSummary, error)
}

// Worker runs dispatch jobs one at a time
type Worker struct {
	Dispatcher DispatchRunner
	JobChan    <-chan int
	Logger     *zap.Logger
	OnDone     func(campaignID int, summary *model.DispatchSummary, err error)
}

// Constructor
func NewWorker(d DispatchRunner, jobChan <-chan int, logger *zap.Logger) *Worker {
	return &Worker{
		Dispatcher: d,
		JobChan:    jobChan,
		Logger:     logging.OrNop(logger),
	}
}

// Start processes campaign ids until JobChan is closed
func (w *Worker) Start() {
	logger := logging.OrNop(w.Logger)
	for campaignID := range w.JobChan {
		summary, err := w.Dispatcher.DispatchByID(context.Background(), campaignID, SendOptions{})
		if err != nil {
			logger.Error("dispatch failed", zap.Int("campaign_id", campaignID), zap.Error(err))
		} else {
			logger.Info("dispatch complete",
				zap.Int("campaign_id", campaignID),
				zap.Int("sent", summary.Sent),
				zap.Int("failed", summary.Failed))
		}
		if w.OnDone != nil {
			w.OnDone(campaignID, summary, err)
		}
	}
}
