package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type mockLogRepo struct {
	entries []model.DeliveryLog
	err     error
}

func (m *mockLogRepo) Insert(_ context.Context, e *model.DeliveryLog) error {
	if m.err != nil {
		return m.err
	}
	e.ID = len(m.entries) + 1
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockLogRepo) GetCampaignStats(_ context.Context, campaignID int) (map[string]int, error) {
	stats := map[string]int{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			stats[e.Status]++
		}
	}
	return stats, nil
}

func (m *mockLogRepo) ListByCampaign(_ context.Context, campaignID int) ([]model.DeliveryLog, error) {
	out := []model.DeliveryLog{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecordMapsOutcomes(t *testing.T) {
	repo := &mockLogRepo{}
	l := New(repo, nil)

	l.RecordAll(context.Background(), 7, []model.RecipientResult{
		{RecipientID: 1, Status: model.ResultSent, ProviderID: "p-1"},
		{RecipientID: 2, Status: model.ResultFailed, Error: "Invalid email address"},
	}, model.ChannelEmail)

	require.Len(t, repo.entries, 2)
	assert.Equal(t, model.DeliverySuccess, repo.entries[0].Status)
	assert.Equal(t, "p-1", *repo.entries[0].ProviderID)
	assert.Nil(t, repo.entries[0].ErrorMessage)
	assert.Equal(t, model.DeliveryFailed, repo.entries[1].Status)
	assert.Equal(t, "Invalid email address", *repo.entries[1].ErrorMessage)

	stats, err := l.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Success: 1, Failed: 1}, stats)
}

func TestRecordSwallowsWriteErrors(t *testing.T) {
	repo := &mockLogRepo{err: errors.New("connection reset")}
	assert.NotPanics(t, func() {
		New(repo, nil).Record(context.Background(), 1, model.RecipientResult{RecipientID: 1, Status: model.ResultSent}, model.ChannelSMS)
	})
	assert.Empty(t, repo.entries)
}

func TestDeliveriesListsOneCampaign(t *testing.T) {
	repo := &mockLogRepo{}
	l := New(repo, nil)
	l.Record(context.Background(), 1, model.RecipientResult{RecipientID: 10, Status: model.ResultSent}, model.ChannelSMS)
	l.Record(context.Background(), 2, model.RecipientResult{RecipientID: 11, Status: model.ResultSent}, model.ChannelSMS)
	l.Record(context.Background(), 1, model.RecipientResult{RecipientID: 12, Status: model.ResultSkipped, Error: "Mobile number is missing"}, model.ChannelSMS)

	logs, err := l.Deliveries(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 10, logs[0].RecipientID)
	assert.Equal(t, 12, logs[1].RecipientID)
}
