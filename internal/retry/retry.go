// Package retry implements the bounded rate-limit retry used by the
// email and SMS senders.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy retries a call once more after a fixed backoff when the
// failure is classified as rate-limiting.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       Sleeper
	// OnRetry, when set, is called before each backoff.
	OnRetry func(attempt int, err error)
}

func EmailPolicy() Policy { return Policy{MaxAttempts: 2, Backoff: time.Second, Sleep: Sleep} }

func SMSPolicy() Policy { return Policy{MaxAttempts: 2, Backoff: 2 * time.Second, Sleep: Sleep} }

// Do runs fn until it succeeds, fails with a non-rate-limit error, or
// exhausts MaxAttempts. Exhaustion yields an error wrapping
// appErrors.ErrRateLimitExceeded. The number of attempts made is returned.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var (
		res T
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = fn(ctx)
		if err == nil || !IsRateLimited(err) {
			return res, attempt, err
		}
		if attempt == maxAttempts {
			return res, attempt, &ExhaustedError{Attempts: attempt, Last: err}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := sleep(ctx, p.Backoff); serr != nil {
			return res, attempt, serr
		}
	}
	return res, maxAttempts, err
}

// ExhaustedError is returned when every attempt was rate-limited.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return appErrors.ErrRateLimitExceeded.Error()
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{appErrors.ErrRateLimitExceeded, e.Last}
}

func (e *ExhaustedError) Detail() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts: %v", e.Attempts, e.Last)
}

// StatusCoder is implemented by provider errors that carry a status code.
type StatusCoder interface {
	StatusCode() int
}

var rateLimitWords = []string{"rate limit", "rate_limit", "ratelimit", "too many requests", "throttl"}

// IsRateLimited classifies err as provider throttling, either by an
// explicit 429 status or by rate-limit wording in the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}
	return MentionsRateLimit(err.Error())
}

func MentionsRateLimit(s string) bool {
	s = strings.ToLower(s)
	for _, w := range rateLimitWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Pause waits d between paced provider calls. A nil sleeper uses Sleep.
func Pause(ctx context.Context, sleep Sleeper, d time.Duration) error {
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, d)
}
