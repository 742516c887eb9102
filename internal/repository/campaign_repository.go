package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type CampaignRepositoryInterface interface {
	ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign) error
	UpdateStatus(ctx context.Context, campaignID int, status string) error

	// Dispatch lifecycle
	ListDue(ctx context.Context, now time.Time) ([]*model.Campaign, error)
	ClaimForDispatch(ctx context.Context, campaignID int) (bool, error)
	MarkSent(ctx context.Context, campaignID int, sentAt time.Time) error
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = `id, title, body, image_url, channel, status, audience, scheduled_at, sent_at, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
        INSERT INTO campaigns (title, body, image_url, channel, status, audience, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	err := r.DB.GetContext(ctx, &c.ID, query,
		c.Title, c.Body, c.ImageURL, c.Channel, c.Status, c.Audience, c.ScheduledAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET title=$1, body=$2, image_url=$3, channel=$4, status=$5, audience=$6, scheduled_at=$7, updated_at=NOW()
        WHERE id=$8
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Title, c.Body, c.ImageURL, c.Channel, c.Status, c.Audience, c.ScheduledAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return expectRow(res, c.ID)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now(), campaignID)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	return expectRow(res, campaignID)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	if err := r.DB.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		where += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	// Count total
	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaigns`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	campaigns := []*model.Campaign{}
	if err := r.DB.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// ====================== Dispatch lifecycle ======================

// ListDue returns scheduled campaigns whose time has come.
func (r *CampaignRepository) ListDue(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
        WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
        ORDER BY scheduled_at`
	campaigns := []*model.Campaign{}
	if err := r.DB.SelectContext(ctx, &campaigns, query, model.StatusScheduled, now); err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}
	return campaigns, nil
}

// ClaimForDispatch moves a draft or scheduled campaign to sending. It
// reports false when another dispatch got there first.
func (r *CampaignRepository) ClaimForDispatch(ctx context.Context, campaignID int) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, model.StatusSending, campaignID, model.StatusDraft, model.StatusScheduled)
	if err != nil {
		return false, fmt.Errorf("failed to claim campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CampaignRepository) MarkSent(ctx context.Context, campaignID int, sentAt time.Time) error {
	query := `UPDATE campaigns SET status=$1, sent_at=$2, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, model.StatusSent, sentAt, campaignID)
	if err != nil {
		return fmt.Errorf("failed to mark campaign sent: %w", err)
	}
	return expectRow(res, campaignID)
}

func expectRow(res sql.Result, campaignID int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
