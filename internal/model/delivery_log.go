// internal/model/delivery_log.go
package model

import "time"

const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

type DeliveryLog struct {
	ID           int       `db:"id" json:"id"`
	CampaignID   int       `db:"campaign_id" json:"campaign_id"`
	RecipientID  int       `db:"recipient_id" json:"recipient_id"` // 0 for page-level posts
	Channel      Channel   `db:"channel" json:"channel"`
	Status       string    `db:"status" json:"status"` // success, failed
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	ProviderID   *string   `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
