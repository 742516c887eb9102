package sender

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/metrics"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/provider/email"
	"github.com/unclebandit/campaign-dispatch/internal/retry"
)

const (
	IndividualSendGap = 150 * time.Millisecond
	ChunkGap          = 200 * time.Millisecond
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(addr string) bool {
	return emailShape.MatchString(strings.TrimSpace(addr))
}

// EmailItem is one prepared message and the member it belongs to.
type EmailItem struct {
	RecipientID int
	Message     email.Message
}

type EmailSender struct {
	provider  email.Provider
	policy    retry.Policy
	sleep     retry.Sleeper
	chunkSize int
	logger    *zap.Logger
}

type EmailOption func(*EmailSender)

// WithEmailSleeper replaces the clock used for pacing and retry backoff.
func WithEmailSleeper(s retry.Sleeper) EmailOption {
	return func(e *EmailSender) {
		e.sleep = s
		e.policy.Sleep = s
	}
}

func WithChunkSize(n int) EmailOption {
	return func(e *EmailSender) {
		if n > 0 && n <= email.BatchLimit {
			e.chunkSize = n
		}
	}
}

func NewEmailSender(provider email.Provider, logger *zap.Logger, opts ...EmailOption) *EmailSender {
	s := &EmailSender{
		provider:  provider,
		policy:    retry.EmailPolicy(),
		sleep:     retry.Sleep,
		chunkSize: email.BatchLimit,
		logger:    logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policy.OnRetry = func(attempt int, err error) {
		metrics.RecordRetry(string(model.ChannelEmail))
		s.logger.Warn("email rate limited, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return s
}

// Send delivers items in chunks of at most BatchLimit. Invalid addresses
// fail without a provider call. Chunks are processed sequentially with
// ChunkGap between them.
func (s *EmailSender) Send(ctx context.Context, items []EmailItem) BatchResult {
	var res BatchResult

	valid := make([]EmailItem, 0, len(items))
	for _, it := range items {
		if !ValidEmail(it.Message.To) {
			res.failed(it.RecipientID, it.Message.To, "Invalid email address")
			continue
		}
		valid = append(valid, it)
	}

	for i, chunk := range lo.Chunk(valid, s.chunkSize) {
		if i > 0 {
			_ = retry.Pause(ctx, s.sleep, ChunkGap)
		}
		s.sendChunk(ctx, i, chunk, &res)
	}

	s.logger.Info("email send finished",
		zap.Int("total", len(items)),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return res.finish()
}

func (s *EmailSender) sendChunk(ctx context.Context, index int, chunk []EmailItem, res *BatchResult) {
	msgs := lo.Map(chunk, func(it EmailItem, _ int) email.Message { return it.Message })

	ids, err := s.provider.SendBatch(ctx, msgs)
	if err == nil {
		batchID := "batch-" + uuid.NewString()
		for j, it := range chunk {
			id := fmt.Sprintf("%s-%d", batchID, j)
			if len(ids) == len(chunk) && ids[j] != "" {
				id = ids[j]
			}
			res.sent(it.RecipientID, it.Message.To, id)
		}
		return
	}

	if errors.Is(err, email.ErrBatchUnsupported) {
		s.logger.Debug("provider has no batch endpoint, sending individually", zap.Int("chunk", index))
	} else {
		s.logger.Warn("batch send failed, falling back to individual sends",
			zap.Int("chunk", index), zap.Int("size", len(chunk)), zap.Error(err))
	}

	for j, it := range chunk {
		if j > 0 {
			_ = retry.Pause(ctx, s.sleep, IndividualSendGap)
		}
		id, _, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
			return s.provider.Send(ctx, it.Message)
		})
		if err != nil {
			s.logger.Warn("email send failed",
				zap.Int("recipient_id", it.RecipientID),
				zap.String("to", it.Message.To),
				zap.Error(err))
			res.failed(it.RecipientID, it.Message.To, Reason(err))
			continue
		}
		res.sent(it.RecipientID, it.Message.To, id)
	}
}
