package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

func TestWorker(t *testing.T) {
	stored := emailCampaign()
	stored.ID = 1
	f := newFixture(members(2), stored)

	jobChan := make(chan int, 2)
	jobChan <- 1 // enqueue job
	jobChan <- 1 // duplicate job loses the claim
	close(jobChan)

	var mu sync.Mutex
	var errs []error
	worker := service.NewWorker(f.dispatch, jobChan, nil)
	worker.OnDone = func(_ int, _ *model.DispatchSummary, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	worker.Start()

	assert.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.Equal(t, model.StatusSent, f.repo.status(1))
}
