// Package ledger appends per-recipient delivery outcomes.
package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/metrics"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type Ledger struct {
	repo   repository.DeliveryLogRepositoryInterface
	logger *zap.Logger
}

func New(repo repository.DeliveryLogRepositoryInterface, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logging.OrNop(logger)}
}

// Record appends one outcome. A failed write is logged and dropped so a
// delivery that already happened is never reported as failed.
func (l *Ledger) Record(ctx context.Context, campaignID int, r model.RecipientResult, channel model.Channel) {
	entry := &model.DeliveryLog{
		CampaignID:  campaignID,
		RecipientID: r.RecipientID,
		Channel:     channel,
		Status:      model.DeliveryFailed,
	}
	if r.Status == model.ResultSent {
		entry.Status = model.DeliverySuccess
		if r.ProviderID != "" {
			id := r.ProviderID
			entry.ProviderID = &id
		}
	} else {
		msg := r.Error
		entry.ErrorMessage = &msg
	}

	metrics.RecordDelivery(string(channel), entry.Status)

	if err := l.repo.Insert(ctx, entry); err != nil {
		l.logger.Error("failed to write delivery log",
			zap.Int("campaign_id", campaignID),
			zap.Int("recipient_id", r.RecipientID),
			zap.String("status", entry.Status),
			zap.Error(err))
	}
}

func (l *Ledger) RecordAll(ctx context.Context, campaignID int, results []model.RecipientResult, channel model.Channel) {
	for _, r := range results {
		l.Record(ctx, campaignID, r, channel)
	}
}

func (l *Ledger) Stats(ctx context.Context, campaignID int) (Stats, error) {
	counts, err := l.repo.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Success: counts[model.DeliverySuccess], Failed: counts[model.DeliveryFailed]}
	s.Total = s.Success + s.Failed
	return s, nil
}

// Deliveries lists every ledger row written for a campaign.
func (l *Ledger) Deliveries(ctx context.Context, campaignID int) ([]model.DeliveryLog, error) {
	return l.repo.ListByCampaign(ctx, campaignID)
}
