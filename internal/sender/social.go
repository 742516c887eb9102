package sender

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/provider/social"
)

type SocialItem struct {
	RecipientID int
	To          string
	Text        string
}

// SocialSender makes one platform call per post or per message.
type SocialSender struct {
	publishers  map[model.Channel]social.Publisher
	messenger   social.Messenger
	limiter     *rate.Limiter
	concurrency int
	logger      *zap.Logger
}

// NewSocialSender paces messenger calls at ratePerSecond with at most
// concurrency in flight. A nil messenger disables WhatsApp.
func NewSocialSender(publishers map[model.Channel]social.Publisher, messenger social.Messenger, ratePerSecond float64, concurrency int, logger *zap.Logger) *SocialSender {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SocialSender{
		publishers:  publishers,
		messenger:   messenger,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
	}
}

// Publish posts once to a page-style platform. The single result carries
// recipient id 0.
func (s *SocialSender) Publish(ctx context.Context, channel model.Channel, post social.Post) BatchResult {
	var res BatchResult
	p, ok := s.publishers[channel]
	if !ok || p == nil {
		res.failed(0, string(channel), fmt.Sprintf("%s is not configured", channel))
		return res.finish()
	}

	id, err := p.Publish(ctx, post)
	if err != nil {
		s.logger.Warn("social publish failed", zap.String("channel", string(channel)), zap.Error(err))
		res.failed(0, string(channel), Reason(err))
		return res.finish()
	}
	res.sent(0, string(channel), id)
	return res.finish()
}

// Message fans out one message per recipient. Results keep the input order.
func (s *SocialSender) Message(ctx context.Context, items []SocialItem) BatchResult {
	var res BatchResult
	if s.messenger == nil {
		for _, it := range items {
			res.failed(it.RecipientID, it.To, "whatsapp is not configured")
		}
		return res.finish()
	}

	outcomes := make([]model.RecipientResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, it := range items {
		g.Go(func() error {
			out := model.RecipientResult{RecipientID: it.RecipientID, To: it.To, Status: model.ResultFailed}
			number, ok := NormalizeNumber(it.To)
			if !ok {
				out.Error = "Invalid phone number format"
				outcomes[i] = out
				return nil
			}
			out.To = number
			if err := s.limiter.Wait(gctx); err != nil {
				out.Error = err.Error()
				outcomes[i] = out
				return nil
			}
			id, err := s.messenger.Message(gctx, number, it.Text)
			if err != nil {
				s.logger.Warn("whatsapp message failed", zap.Int("recipient_id", it.RecipientID), zap.Error(err))
				out.Error = Reason(err)
			} else {
				out.Status, out.ProviderID = model.ResultSent, id
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.Status == model.ResultSent {
			res.sent(o.RecipientID, o.To, o.ProviderID)
		} else {
			res.failed(o.RecipientID, o.To, o.Error)
		}
	}
	return res.finish()
}
