package appErrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", NewValidation("title", "is required"))
	assert.True(t, IsClientError(wrapped))
	assert.Equal(t, "dispatch: validation failed: title is required", wrapped.Error())

	assert.True(t, IsClientError(&EmptyTargetError{Audience: "batch 2024"}))
	assert.False(t, IsClientError(ErrDispatchInProgress))

	assert.True(t, IsNotFound(fmt.Errorf("load: %w", NewCampaignNotFound(7))))
	assert.False(t, IsNotFound(ErrRateLimitExceeded))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(fmt.Errorf("campaign 3: %w", ErrDispatchInProgress)))
	assert.True(t, IsConflict(ErrCampaignAlreadySent))
	assert.False(t, IsConflict(NewCampaignNotFound(3)))
}
