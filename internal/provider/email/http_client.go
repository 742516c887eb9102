package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
)

// HTTPClient talks to a REST email API exposing /emails and /emails/batch.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, client *http.Client, logger *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logging.OrNop(logger),
	}
}

type sendResponse struct {
	ID string `json:"id"`
}

type batchResponse struct {
	Data []sendResponse `json:"data"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (c *HTTPClient) Send(ctx context.Context, msg Message) (string, error) {
	var out sendResponse
	if err := c.post(ctx, "/emails", toWire(msg), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) SendBatch(ctx context.Context, msgs []Message) ([]string, error) {
	if len(msgs) > BatchLimit {
		return nil, fmt.Errorf("batch of %d exceeds provider limit of %d", len(msgs), BatchLimit)
	}
	payload := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		payload[i] = toWire(m)
	}

	var out batchResponse
	if err := c.post(ctx, "/emails/batch", payload, &out); err != nil {
		return nil, err
	}
	ids := make([]string, len(out.Data))
	for i, d := range out.Data {
		ids[i] = d.ID
	}
	return ids, nil
}

type wireMessage struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func toWire(m Message) wireMessage {
	return wireMessage{
		From:    m.From,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
		ReplyTo: m.ReplyTo,
		Headers: m.Headers,
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email http error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.logger.Debug("email provider call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Message != "" {
			apiErr.Name = er.Name
			apiErr.Message = er.Message
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode email response: %w", err)
	}
	return nil
}

var _ Provider = (*HTTPClient)(nil)
