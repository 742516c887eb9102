package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/lock"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

func scheduledAt(t time.Time) *model.Campaign {
	return &model.Campaign{Title: "s", Body: "b", Channel: model.ChannelEmail, Status: model.StatusScheduled, ScheduledAt: &t, Audience: model.AllMembers()}
}

func TestSchedulerRunDueOnlyPublishesElapsed(t *testing.T) {
	past := scheduledAt(fixedNow.Add(-time.Minute))
	past.ID = 1
	future := scheduledAt(fixedNow.Add(time.Hour))
	future.ID = 2
	draft := scheduledAt(fixedNow.Add(-time.Hour))
	draft.ID, draft.Status = 3, model.StatusDraft

	q := &captureQueue{}
	s := &service.Scheduler{CampaignRepo: NewMockCampaignRepo(past, future, draft), Queue: q}

	n, err := s.RunDue(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []queue.DispatchJob{{CampaignID: 1}}, q.jobs)
}

func TestSchedulerTickSkipsWhenLocked(t *testing.T) {
	past := scheduledAt(fixedNow.Add(-time.Minute))
	past.ID = 1
	locker := lock.NewLocalLocker()
	q := &captureQueue{}
	s := &service.Scheduler{CampaignRepo: NewMockCampaignRepo(past), Queue: q, Locker: locker, LockTTL: time.Minute}

	release, ok, err := locker.TryLock(context.Background(), "campaign-scheduler", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.Tick(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)

	release()
	n, err = s.Tick(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Scheduled campaigns reach the sender only once their time has come.
func TestScheduledCampaignEndToEnd(t *testing.T) {
	stored := scheduledAt(fixedNow.Add(time.Hour))
	stored.ID = 11
	f := newFixture(members(2), stored)
	now := fixedNow
	f.dispatch.Now = func() time.Time { return now }

	q := queue.NewInMemoryQueue(0, nil)
	require.NoError(t, queue.StartDispatchSubscriber(q, func(ctx context.Context, id int) error {
		_, err := f.dispatch.DispatchByID(ctx, id, service.SendOptions{})
		return err
	}, nil))
	s := &service.Scheduler{CampaignRepo: f.repo, Queue: q}

	n, err := s.RunDue(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.email.calls())

	now = fixedNow.Add(2 * time.Hour)
	n, err = s.RunDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	q.Wait()

	assert.Equal(t, 1, f.email.batchCalls)
	assert.Equal(t, model.StatusSent, f.repo.status(11))
}

func TestSchedulerStartRejectsBadSpec(t *testing.T) {
	s := &service.Scheduler{Spec: "not a spec"}
	assert.Error(t, s.Start())
}
