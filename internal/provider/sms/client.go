// Package sms is the client for the SMS gateway's text endpoint.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/retry"
)

var ErrProviderOutage = errors.New("SMS provider returned an HTML error page")

// APIError is a non-success provider answer.
type APIError struct {
	Code       int // provider code, 0 when unavailable
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) StatusCode() int { return e.HTTPStatus }

// Sender is what the channel sender needs from the gateway.
type Sender interface {
	Send(ctx context.Context, number, message, senderID string) (Response, error)
}

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.OrNop(logger),
	}
}

// Send issues exactly one request. A nil error means code 202.
func (c *Client) Send(ctx context.Context, number, message, senderID string) (Response, error) {
	start := time.Now()

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("type", "text")
	form.Set("number", number)
	form.Set("senderid", senderID)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("sms http error", zap.String("to", number), zap.Error(err))
		return Response{}, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	parsed := ParseResponse(body)

	c.logger.Debug("sms provider call",
		zap.String("to", number),
		zap.String("sender_id", senderID),
		zap.Int("http_status", resp.StatusCode),
		zap.Int("code", parsed.Code),
		zap.Duration("duration", time.Since(start)))

	return parsed, responseError(resp.StatusCode, parsed)
}

func responseError(httpStatus int, r Response) error {
	switch {
	case httpStatus == http.StatusTooManyRequests:
		return &APIError{Code: r.Code, HTTPStatus: httpStatus, Message: "Too many requests"}
	case r.Kind == KindHTMLPage:
		return fmt.Errorf("%w (http %d)", ErrProviderOutage, httpStatus)
	case r.OK():
		return nil
	case r.Kind == KindCode:
		return &APIError{Code: r.Code, HTTPStatus: httpStatus, Message: Describe(r.Code)}
	}
	msg := r.Raw
	if msg == "" {
		msg = fmt.Sprintf("empty response (http %d)", httpStatus)
	}
	if retry.MentionsRateLimit(msg) {
		return &APIError{HTTPStatus: http.StatusTooManyRequests, Message: msg}
	}
	return &APIError{HTTPStatus: httpStatus, Message: "Unexpected response: " + msg}
}

var _ Sender = (*Client)(nil)
