package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// Mock Campaign Repository for pagination
type MockCampaignPaginationRepo struct {
	*MockCampaignRepo
}

func (m *MockCampaignPaginationRepo) ListCampaigns(_ context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	all := []*model.Campaign{
		{ID: 5, Title: "C5"},
		{ID: 4, Title: "C4"},
		{ID: 3, Title: "C3"},
		{ID: 2, Title: "C2"},
		{ID: 1, Title: "C1"},
	}

	start := offset
	end := offset + limit

	if start >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], len(all), nil
}

func TestPagination(t *testing.T) {
	svc := &service.CampaignService{
		CampaignRepo: &MockCampaignPaginationRepo{NewMockCampaignRepo()},
	}
	ctx := context.Background()
	pageSize := 2

	page1, pagination1, err := svc.ListCampaigns(ctx, 1, pageSize, "", "")
	require.NoError(t, err)
	page2, _, _ := svc.ListCampaigns(ctx, 2, pageSize, "", "")

	assert.Equal(t, 5, pagination1.TotalCount)
	assert.Equal(t, 3, pagination1.TotalPages)
	require.Len(t, page1, 2)
	require.Len(t, page2, 2)

	// Check descending order
	assert.Greater(t, page1[0].ID, page1[1].ID)
	assert.Greater(t, page2[0].ID, page2[1].ID)

	// Check no duplicates between pages
	assert.NotEqual(t, page1[1].ID, page2[0].ID)

	page3, pagination3, _ := svc.ListCampaigns(ctx, 3, pageSize, "", "")
	assert.Len(t, page3, 1)
	assert.Equal(t, 5, pagination3.TotalCount)
}

func TestPaginationClampsPageSize(t *testing.T) {
	svc := &service.CampaignService{
		CampaignRepo: &MockCampaignPaginationRepo{NewMockCampaignRepo()},
	}

	_, p, err := svc.ListCampaigns(context.Background(), 0, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)
}
