// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrDispatchInProgress is returned when another dispatch already holds the campaign.
	ErrDispatchInProgress = errors.New("campaign dispatch already in progress")

	ErrCampaignAlreadySent = errors.New("campaign has already been sent")

	// ErrRateLimitExceeded is the terminal outcome after the single rate-limit retry.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ValidationError reports bad dispatch input. No provider is called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// EmptyTargetError means the audience resolved to nobody.
type EmptyTargetError struct {
	Audience string
}

func (e *EmptyTargetError) Error() string {
	if e.Audience == "" {
		return "no recipients matched the target audience"
	}
	return fmt.Sprintf("no recipients matched the target audience (%s)", e.Audience)
}

// IsClientError reports whether err is caused by the caller's input.
func IsClientError(err error) bool {
	var ve *ValidationError
	var ee *EmptyTargetError
	return errors.As(err, &ve) || errors.As(err, &ee)
}

func IsNotFound(err error) bool {
	var nf *ErrCampaignNotFound
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a campaign state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDispatchInProgress) || errors.Is(err, ErrCampaignAlreadySent)
}
