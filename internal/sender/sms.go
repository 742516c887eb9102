package sender

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/metrics"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/provider/sms"
	"github.com/unclebandit/campaign-dispatch/internal/retry"
)

// SMSRequestGap keeps bulk sends under the gateway's 2 requests per second.
const SMSRequestGap = 500 * time.Millisecond

const MaxSMSLength = 1600

var (
	nonDigits     = regexp.MustCompile(`\D`)
	intlShape     = regexp.MustCompile(`^880\d{10}$`)
	domesticShape = regexp.MustCompile(`^01\d{9}$`)
)

// NormalizeNumber strips everything but digits and returns the number in
// international form. ok is false for any other shape.
func NormalizeNumber(raw string) (string, bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	switch {
	case intlShape.MatchString(digits):
		return digits, true
	case domesticShape.MatchString(digits):
		return "88" + digits, true
	}
	return digits, false
}

type SMSResult struct {
	Success    bool   `json:"success"`
	To         string `json:"to"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type SMSItem struct {
	RecipientID int
	Number      string
	Message     string
}

type SMSSender struct {
	gateway sms.Sender
	policy  retry.Policy
	sleep   retry.Sleeper
	logger  *zap.Logger
}

func NewSMSSender(gateway sms.Sender, logger *zap.Logger, sleep retry.Sleeper) *SMSSender {
	if sleep == nil {
		sleep = retry.Sleep
	}
	s := &SMSSender{
		gateway: gateway,
		policy:  retry.SMSPolicy(),
		sleep:   sleep,
		logger:  logging.OrNop(logger),
	}
	s.policy.Sleep = sleep
	s.policy.OnRetry = func(attempt int, err error) {
		metrics.RecordRetry(string(model.ChannelSMS))
		s.logger.Warn("sms rate limited, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return s
}

// Send delivers one message. Invalid numbers fail without a gateway call.
func (s *SMSSender) Send(ctx context.Context, to, message, senderID string) SMSResult {
	number, ok := NormalizeNumber(to)
	if !ok {
		return SMSResult{To: to, Error: "Invalid phone number format"}
	}
	return s.send(ctx, number, message, senderID)
}

func (s *SMSSender) send(ctx context.Context, number, message, senderID string) SMSResult {
	resp, _, err := retry.Do(ctx, s.policy, func(ctx context.Context) (sms.Response, error) {
		return s.gateway.Send(ctx, number, message, senderID)
	})
	if err != nil {
		s.logger.Warn("sms send failed", zap.String("to", number), zap.Error(err))
		return SMSResult{To: number, StatusCode: resp.Code, Error: Reason(err)}
	}
	return SMSResult{Success: true, To: number, StatusCode: resp.Code}
}

// SendBulk sends items one after another, SMSRequestGap apart. onResult,
// when set, is called for every item as soon as its outcome is known.
func (s *SMSSender) SendBulk(ctx context.Context, senderID string, items []SMSItem, onResult func(SMSItem, SMSResult)) BatchResult {
	var res BatchResult
	requested := false

	for _, it := range items {
		var r SMSResult
		if number, ok := NormalizeNumber(it.Number); !ok {
			r = SMSResult{To: it.Number, Error: "Invalid phone number format"}
		} else {
			if requested {
				_ = retry.Pause(ctx, s.sleep, SMSRequestGap)
			}
			requested = true
			r = s.send(ctx, number, it.Message, senderID)
		}

		if r.Success {
			res.sent(it.RecipientID, r.To, "")
		} else {
			res.failed(it.RecipientID, r.To, r.Error)
		}
		if onResult != nil {
			onResult(it, r)
		}
	}

	s.logger.Info("sms bulk send finished",
		zap.Int("total", len(items)),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return res.finish()
}
