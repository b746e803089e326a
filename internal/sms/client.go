package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures the gateway client. Credentials belong to the external
// SMS provider account; SenderID is the registered alphanumeric sender.
type Options struct {
	BaseURL  string
	Username string
	APIKey   string
	SenderID string
	Sandbox  bool
}

// Client talks to an Africa's Talking style messaging API: form-encoded send
// request, JSON response listing per-recipient delivery status.
type Client struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	return &Client{
		opts: opts,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type sendResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number    string `json:"number"`
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
			Cost      string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers a single SMS and returns the gateway message id. In sandbox
// mode nothing leaves the process; the message is logged instead.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) (string, error) {
	if c.opts.Sandbox {
		c.logger.Info("sandbox mode, skipping delivery", "to", phoneNumber, "message", message)
		return "sandbox", nil
	}

	form := url.Values{}
	form.Set("username", c.opts.Username)
	form.Set("to", phoneNumber)
	form.Set("message", message)
	if c.opts.SenderID != "" {
		form.Set("from", c.opts.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if len(sr.SMSMessageData.Recipients) == 0 {
		return "", fmt.Errorf("no recipients in response body=%q", string(body))
	}

	recipient := sr.SMSMessageData.Recipients[0]
	if !strings.Contains(recipient.Status, "Success") {
		return "", fmt.Errorf("delivery rejected for %s: %s", recipient.Number, recipient.Status)
	}

	return recipient.MessageID, nil
}
