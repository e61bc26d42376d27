package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/model"
)

// Client is an email provider API client.
type Client struct {
	baseURL    string
	authToken  string
	sender     string
	httpClient *http.Client
}

// NewClient creates a new email API client. The HTTP client timeout bounds
// every send; a timed-out send is reported like any other failure.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:   cfg.EmailBaseURL,
		authToken: cfg.EmailAuthToken,
		sender:    cfg.EmailSender,
		httpClient: &http.Client{
			Timeout: cfg.EmailSendTimeout,
		},
	}
}

type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// Send delivers a single email through the provider API.
func (c *Client) Send(
	ctx context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string,
) error {
	payload := sendRequest{
		From:     c.sender,
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("email API error (status %d): %s", resp.StatusCode, string(detail))
	}

	return nil
}
