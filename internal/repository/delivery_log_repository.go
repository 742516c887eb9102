package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type DeliveryLogRepositoryInterface interface {
	Insert(ctx context.Context, entry *model.DeliveryLog) error
	GetCampaignStats(ctx context.Context, campaignID int) (map[string]int, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]model.DeliveryLog, error)
}

// DeliveryLogRepository is append-only.
type DeliveryLogRepository struct {
	DB *sqlx.DB
}

// Insert appends one outcome and fills in the generated ID
func (r *DeliveryLogRepository) Insert(ctx context.Context, entry *model.DeliveryLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO delivery_logs
        (campaign_id, recipient_id, channel, status, error_message, provider_id, created_at)
        VALUES (:campaign_id, :recipient_id, :channel, :status, :error_message, :provider_id, :created_at)
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, entry)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&entry.ID)
	}
	return rows.Err()
}

// GetCampaignStats counts entries per status for one campaign
func (r *DeliveryLogRepository) GetCampaignStats(ctx context.Context, campaignID int) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM delivery_logs WHERE campaign_id=$1 GROUP BY status`
	if err := r.DB.SelectContext(ctx, &rows, query, campaignID); err != nil {
		return nil, err
	}

	stats := map[string]int{model.DeliverySuccess: 0, model.DeliveryFailed: 0}
	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}

func (r *DeliveryLogRepository) ListByCampaign(ctx context.Context, campaignID int) ([]model.DeliveryLog, error) {
	logs := []model.DeliveryLog{}
	query := `
        SELECT id, campaign_id, recipient_id, channel, status, error_message, provider_id, created_at
        FROM delivery_logs
        WHERE campaign_id=$1
        ORDER BY id
    `
	if err := r.DB.SelectContext(ctx, &logs, query, campaignID); err != nil {
		return nil, err
	}
	return logs, nil
}

var _ DeliveryLogRepositoryInterface = (*DeliveryLogRepository)(nil)
