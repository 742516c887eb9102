// internal/model/campaign.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
	ChannelLinkedIn  Channel = "linkedin"
	ChannelWhatsApp  Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelFacebook, ChannelInstagram, ChannelLinkedIn, ChannelWhatsApp:
		return true
	}
	return false
}

// IsPost reports whether the channel publishes a single post instead of
// messaging each recipient.
func (c Channel) IsPost() bool {
	return c == ChannelFacebook || c == ChannelInstagram || c == ChannelLinkedIn
}

const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending" // in-flight, held by exactly one dispatch
	StatusSent      = "sent"
)

type Campaign struct {
	ID          int            `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Body        string         `db:"body" json:"body"`
	ImageURL    *string        `db:"image_url" json:"image_url,omitempty"`
	Channel     Channel        `db:"channel" json:"channel"`
	Status      string         `db:"status" json:"status"`
	Audience    TargetAudience `db:"audience" json:"audience"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt      *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

func (c *Campaign) HasImage() bool {
	return c.ImageURL != nil && *c.ImageURL != ""
}

type AudienceKind string

const (
	AudienceAll               AudienceKind = "all"
	AudienceBatch             AudienceKind = "batch"
	AudienceMembershipPattern AudienceKind = "membership_pattern"
	AudienceExplicit          AudienceKind = "explicit"
)

// NoBatch selects members that have no batch label.
const NoBatch = "__none__"

// TargetAudience is a tagged variant; only the fields of Kind are set.
type TargetAudience struct {
	Kind       AudienceKind `json:"kind"`
	BatchValue string       `json:"batch_value,omitempty"`
	Prefix     string       `json:"prefix,omitempty"`
	IDs        []int        `json:"ids,omitempty"`
}

func AllMembers() TargetAudience { return TargetAudience{Kind: AudienceAll} }

func Batch(value string, ids ...int) TargetAudience {
	return TargetAudience{Kind: AudienceBatch, BatchValue: value, IDs: ids}
}

func MembershipPattern(prefix string) TargetAudience {
	return TargetAudience{Kind: AudienceMembershipPattern, Prefix: prefix}
}

func ExplicitSelection(ids ...int) TargetAudience {
	return TargetAudience{Kind: AudienceExplicit, IDs: ids}
}

// Validate checks that exactly one variant is active.
func (t TargetAudience) Validate() error {
	switch t.Kind {
	case AudienceAll:
		if t.BatchValue != "" || t.Prefix != "" || len(t.IDs) > 0 {
			return fmt.Errorf("audience %q takes no parameters", t.Kind)
		}
	case AudienceBatch:
		if t.Prefix != "" {
			return fmt.Errorf("audience %q does not accept a prefix", t.Kind)
		}
		if t.BatchValue == "" && len(t.IDs) == 0 {
			return fmt.Errorf("audience %q requires a batch value or ids", t.Kind)
		}
	case AudienceMembershipPattern:
		if t.BatchValue != "" || len(t.IDs) > 0 {
			return fmt.Errorf("audience %q only accepts a prefix", t.Kind)
		}
		if t.Prefix == "" {
			return fmt.Errorf("audience %q requires a prefix", t.Kind)
		}
	case AudienceExplicit:
		if t.BatchValue != "" || t.Prefix != "" {
			return fmt.Errorf("audience %q only accepts ids", t.Kind)
		}
		if len(t.IDs) == 0 {
			return fmt.Errorf("audience %q requires at least one id", t.Kind)
		}
	default:
		return fmt.Errorf("unknown audience kind %q", t.Kind)
	}
	return nil
}

// Value stores the audience as JSON.
func (t TargetAudience) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TargetAudience) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = TargetAudience{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	}
	return fmt.Errorf("cannot scan %T into TargetAudience", src)
}
