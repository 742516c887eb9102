// internal/service/campaign_service.go
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/format"
	"github.com/unclebandit/campaign-dispatch/internal/ledger"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	MemberRepo   repository.MemberRepositoryInterface
	Ledger       *ledger.Ledger
	Dispatcher   *Dispatcher
	Queue        queue.Queue
	Signature    format.Signature
	Logger       *zap.Logger
	Now          func() time.Time
}

type CreateCampaignInput struct {
	Title       string
	Body        string
	ImageURL    *string
	Channel     model.Channel
	Audience    model.TargetAudience
	ScheduledAt *string
}

type CampaignDetails struct {
	*model.Campaign
	Stats ledger.Stats `json:"stats"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, appErrors.NewValidation("title", "is required")
	}
	if !in.Channel.Valid() {
		return nil, appErrors.NewValidation("channel", "is not supported")
	}
	if in.Audience.Kind == "" {
		in.Audience = model.AllMembers()
	}
	if err := in.Audience.Validate(); err != nil {
		return nil, appErrors.NewValidation("audience", err.Error())
	}

	c := &model.Campaign{
		Title:    in.Title,
		Body:     in.Body,
		ImageURL: in.ImageURL,
		Channel:  in.Channel,
		Audience: in.Audience,
		Status:   model.StatusDraft,
	}

	if in.ScheduledAt != nil && *in.ScheduledAt != "" {
		// parse scheduledAt string into time.Time
		t, err := time.Parse(time.RFC3339, *in.ScheduledAt)
		if err != nil {
			return nil, appErrors.NewValidation("scheduled_at", "must be RFC3339")
		}
		c.ScheduledAt = &t
		if t.After(s.now()) {
			c.Status = model.StatusScheduled
		}
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, channel, status string) ([]model.Campaign, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, channel, status)
	if err != nil {
		return nil, Pagination{}, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	return campaigns, Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// GetCampaignDetailsWithStats returns the campaign with its ledger counts
func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.Ledger.Stats(ctx, campaignID)
	if err != nil {
		logging.OrNop(s.Logger).Error("failed to load delivery stats", zap.Int("campaign_id", campaignID), zap.Error(err))
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// ListDeliveries returns the ledger rows of an existing campaign.
func (s *CampaignService) ListDeliveries(ctx context.Context, campaignID int) ([]model.DeliveryLog, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.Ledger.Deliveries(ctx, campaignID)
}

// SendCampaign dispatches now and returns the summary.
func (s *CampaignService) SendCampaign(ctx context.Context, campaignID int, opts SendOptions) (*model.DispatchSummary, error) {
	return s.Dispatcher.DispatchByID(ctx, campaignID, opts)
}

// EnqueueCampaign hands the campaign to the dispatch queue and returns at once.
func (s *CampaignService) EnqueueCampaign(ctx context.Context, campaignID int) error {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return err
	}
	return s.Queue.Publish(queue.DispatchTopic, queue.DispatchJob{CampaignID: campaignID})
}
