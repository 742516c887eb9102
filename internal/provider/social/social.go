// Package social holds thin per-platform publishing clients.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Post is one page-level publication.
type Post struct {
	Text     string
	ImageURL string
}

// Publisher publishes one post per call (Facebook, Instagram, LinkedIn).
type Publisher interface {
	Publish(ctx context.Context, post Post) (string, error)
}

// Messenger sends one message per recipient per call (WhatsApp).
type Messenger interface {
	Message(ctx context.Context, to, text string) (string, error)
}

type APIError struct {
	Platform string
	Status   int
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error %d (code %d): %s", e.Platform, e.Status, e.Code, e.Message)
}

// StatusCode reports Graph throttling codes as 429.
func (e *APIError) StatusCode() int {
	switch e.Code {
	case 4, 17, 32, 613, 80007, 130429:
		return http.StatusTooManyRequests
	}
	return e.Status
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Message string `json:"message"` // LinkedIn
}

type httpDoer struct {
	platform string
	client   *http.Client
}

func newDoer(platform string, client *http.Client) httpDoer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return httpDoer{platform: platform, client: client}
}

func (d httpDoer) postForm(ctx context.Context, endpoint string, form url.Values, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return d.do(req, out)
}

func (d httpDoer) postJSON(ctx context.Context, endpoint, token string, payload, out any) (http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return d.do(req, out)
}

func (d httpDoer) do(req *http.Request, out any) (http.Header, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s http error: %w", d.platform, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Platform: d.platform, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var ge graphError
		if json.Unmarshal(body, &ge) == nil {
			if ge.Error.Message != "" {
				apiErr.Message, apiErr.Code = ge.Error.Message, ge.Error.Code
			} else if ge.Message != "" {
				apiErr.Message = ge.Message
			}
		}
		return resp.Header, apiErr
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("%s: failed to decode response: %w", d.platform, err)
		}
	}
	return resp.Header, nil
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}
