package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

type recorder struct{ waits []time.Duration }

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(statusErr{429}))
	assert.True(t, IsRateLimited(fmt.Errorf("send: %w", statusErr{429})))
	assert.True(t, IsRateLimited(errors.New("Rate Limit reached for key")))
	assert.True(t, IsRateLimited(errors.New("429 Too Many Requests")))
	assert.True(t, IsRateLimited(errors.New("request throttled")))
	assert.False(t, IsRateLimited(statusErr{500}))
	assert.False(t, IsRateLimited(errors.New("invalid recipient")))
	assert.False(t, IsRateLimited(nil))
}

func TestDoRetriesOnceAfterBackoff(t *testing.T) {
	rec := &recorder{}
	p := Policy{MaxAttempts: 2, Backoff: time.Second, Sleep: rec.sleep}

	calls := 0
	res, attempts, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", statusErr{429}
		}
		return "msg-1", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", res)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, rec.waits)
}

func TestDoStopsAfterSecondRateLimit(t *testing.T) {
	rec := &recorder{}
	p := SMSPolicy()
	p.Sleep = rec.sleep

	calls := 0
	_, attempts, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("too many requests")
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, attempts)
	assert.ErrorIs(t, err, appErrors.ErrRateLimitExceeded)
	assert.Equal(t, "rate limit exceeded", err.Error())
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, ex.Detail(), "too many requests")
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	rec := &recorder{}
	p := EmailPolicy()
	p.Sleep = rec.sleep

	boom := errors.New("mailbox unavailable")
	calls := 0
	_, attempts, err := Do(context.Background(), p, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, boom
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Same(t, boom, err)
	assert.Empty(t, rec.waits)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
