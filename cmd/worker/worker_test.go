package main

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// MockRunner records the campaigns it was asked to dispatch
type MockRunner struct {
	mu  sync.Mutex
	ids []int
}

func (m *MockRunner) DispatchByID(_ context.Context, campaignID int, _ service.SendOptions) (*model.DispatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, campaignID)
	return &model.DispatchSummary{CampaignID: campaignID, Sent: 1, Success: true}, nil
}

func TestWorker(t *testing.T) {
	runner := &MockRunner{}
	jobs := newJobFeed()

	var wg sync.WaitGroup
	wg.Add(2)
	worker := service.NewWorker(runner, jobs.ch, nil)
	worker.OnDone = func(int, *model.DispatchSummary, error) { wg.Done() }

	done := make(chan struct{})
	go func() {
		worker.Start()
		close(done)
	}()

	require.NoError(t, jobs.forward(queue.DispatchJob{CampaignID: 3}))
	require.NoError(t, jobs.forward(queue.DispatchJob{CampaignID: 4}))
	wg.Wait()

	jobs.close()
	<-done

	assert.Equal(t, []int{3, 4}, runner.ids)
	assert.ErrorIs(t, jobs.forward(queue.DispatchJob{CampaignID: 5}), errStopped)
}

func TestForwardRejectsUnknownPayload(t *testing.T) {
	jobs := newJobFeed()
	assert.Error(t, jobs.forward("not a job"))
}
