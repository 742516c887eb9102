// Package sender turns personalized messages into paced provider calls
// and reports one outcome per recipient.
package sender

import (
	"errors"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/retry"
)

type FailedAddress struct {
	RecipientID int    `json:"recipient_id"`
	Address     string `json:"address"`
	Reason      string `json:"reason"`
}

// BatchResult is what every channel sender returns for a dispatch.
type BatchResult struct {
	Success  bool
	Sent     int
	Failed   int
	Skipped  int
	Results  []model.RecipientResult
	Failures []FailedAddress
}

func (r *BatchResult) sent(recipientID int, to, providerID string) {
	r.Sent++
	r.Results = append(r.Results, model.RecipientResult{
		RecipientID: recipientID,
		To:          to,
		Status:      model.ResultSent,
		ProviderID:  providerID,
	})
}

func (r *BatchResult) failed(recipientID int, to, reason string) {
	r.Failed++
	r.Results = append(r.Results, model.RecipientResult{
		RecipientID: recipientID,
		To:          to,
		Status:      model.ResultFailed,
		Error:       reason,
	})
	r.Failures = append(r.Failures, FailedAddress{RecipientID: recipientID, Address: to, Reason: reason})
}

// finish applies the same success rule to every channel: at least one
// message went out.
func (r *BatchResult) finish() BatchResult {
	r.Success = r.Sent > 0
	return *r
}

// Reason is the stored failure text for err. Rate-limit exhaustion is
// normalized so it can be told apart from provider rejections.
func Reason(err error) string {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Error()
	}
	return err.Error()
}
