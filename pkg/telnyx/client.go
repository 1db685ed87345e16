// Package telnyx provides a client for the Telnyx v2 Messages API.
package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the outbound messaging operations used by the service.
type Client interface {
	// SendSMS delivers a text message to a phone number in E.164 form.
	SendSMS(ctx context.Context, to, text string) error
}

// Option configures the Telnyx client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMessagingProfile sets the messaging profile id attached to sends.
func WithMessagingProfile(id string) Option {
	return func(c *httpClient) {
		c.profileID = id
	}
}

type httpClient struct {
	apiKey    string
	from      string
	baseURL   string
	profileID string
	http      *http.Client
}

// NewClient creates a new Telnyx messaging client sending from the given number.
func NewClient(apiKey, fromNumber string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		from:    fromNumber,
		baseURL: "https://api.telnyx.com/v2",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	From               string `json:"from"`
	To                 string `json:"to"`
	Text               string `json:"text"`
	MessagingProfileID string `json:"messaging_profile_id,omitempty"`
}

type messageResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) SendSMS(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(messageRequest{
		From:               c.from,
		To:                 to,
		Text:               text,
		MessagingProfileID: c.profileID,
	})
	if err != nil {
		return eris.Wrap(err, "telnyx: marshal message")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "telnyx: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "telnyx: send message")
		} else {
			var mr messageResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&mr)
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted {
				if decodeErr != nil {
					return eris.Wrap(decodeErr, "telnyx: decode response")
				}
				return nil
			}

			detail := ""
			if decodeErr == nil && len(mr.Errors) > 0 {
				detail = ": " + mr.Errors[0].Title
			}
			lastErr = eris.Errorf("telnyx: status %d%s", resp.StatusCode, detail)
			if !retryableStatusCode(resp.StatusCode) {
				return lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "telnyx: send canceled")
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return lastErr
}
