package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
)

// MockCampaignRepo keeps campaigns in memory and records every status change
type MockCampaignRepo struct {
	mu          sync.Mutex
	campaigns   map[int]*model.Campaign
	nextID      int
	history     []string
	createErr   error
	markSentErr error
	due         []*model.Campaign
}

func NewMockCampaignRepo(seed ...*model.Campaign) *MockCampaignRepo {
	m := &MockCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 100}
	for _, c := range seed {
		cp := *c
		m.campaigns[c.ID] = &cp
	}
	return m
}

func (m *MockCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	cp := *c
	m.campaigns[c.ID] = &cp
	m.history = append(m.history, c.Status)
	return nil
}

func (m *MockCampaignRepo) Update(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	m.history = append(m.history, c.Status)
	return nil
}

func (m *MockCampaignRepo) UpdateStatus(_ context.Context, id int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	m.history = append(m.history, status)
	return nil
}

func (m *MockCampaignRepo) GetByID(_ context.Context, id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepo) ListCampaigns(_ context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}

func (m *MockCampaignRepo) ListDue(_ context.Context, now time.Time) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == model.StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCampaignRepo) ClaimForDispatch(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, appErrors.NewCampaignNotFound(id)
	}
	if c.Status != model.StatusDraft && c.Status != model.StatusScheduled {
		return false, nil
	}
	c.Status = model.StatusSending
	m.history = append(m.history, c.Status)
	return true, nil
}

func (m *MockCampaignRepo) MarkSent(_ context.Context, id int, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.markSentErr; err != nil {
		m.markSentErr = nil
		return err
	}
	c := m.campaigns[id]
	c.Status, c.SentAt = model.StatusSent, &sentAt
	m.history = append(m.history, c.Status)
	return nil
}

func (m *MockCampaignRepo) status(id int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id].Status
}

type MockMemberRepo struct {
	members []model.Member
	lookups [][]int
}

func (m *MockMemberRepo) GetByID(_ context.Context, id int) (*model.Member, error) {
	for _, mem := range m.members {
		if mem.ID == id {
			cp := mem
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockMemberRepo) ListAll(context.Context) ([]model.Member, error) {
	return m.members, nil
}

func (m *MockMemberRepo) ListByIDs(_ context.Context, ids []int) ([]model.Member, error) {
	m.lookups = append(m.lookups, ids)
	out := []model.Member{}
	for _, mem := range m.members {
		for _, id := range ids {
			if mem.ID == id {
				out = append(out, mem)
			}
		}
	}
	return out, nil
}

type MockLogRepo struct {
	mu      sync.Mutex
	entries []model.DeliveryLog
	fail    bool
}

func (m *MockLogRepo) Insert(_ context.Context, e *model.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *MockLogRepo) GetCampaignStats(_ context.Context, campaignID int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			stats[e.Status]++
		}
	}
	return stats, nil
}

func (m *MockLogRepo) ListByCampaign(_ context.Context, campaignID int) ([]model.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.DeliveryLog{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLogRepo) count(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

var (
	_ repository.CampaignRepositoryInterface    = (*MockCampaignRepo)(nil)
	_ repository.MemberRepositoryInterface      = (*MockMemberRepo)(nil)
	_ repository.DeliveryLogRepositoryInterface = (*MockLogRepo)(nil)
)

func strPtr(s string) *string { return &s }
