package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// Client sends adopter notifications through the Postmark API.
type Client struct {
	serverToken string
	fromEmail   string
	shelterName string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithShelterName sets the name used in subject lines.
func WithShelterName(name string) Option {
	return func(cl *Client) {
		cl.shelterName = name
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		shelterName: "the shelter",
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkEmail struct {
	From          string           `json:"From"`
	To            string           `json:"To"`
	Subject       string           `json:"Subject"`
	TextBody      string           `json:"TextBody"`
	Tag           string           `json:"Tag,omitempty"`
	MessageStream string           `json:"MessageStream"`
	Headers       []postmarkHeader `json:"Headers,omitempty"`
}

// SendToUser emails text to the user's address. High priority messages are
// flagged with an importance header and a distinct subject.
func (c *Client) SendToUser(ctx context.Context, user model.User, text string, priority notify.Priority) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}
	if user.Email == "" {
		return fmt.Errorf("user %d has no email address", user.ID)
	}

	payload := postmarkEmail{
		From:          c.fromEmail,
		To:            user.Email,
		Subject:       fmt.Sprintf("A message from %s", c.shelterName),
		TextBody:      text,
		Tag:           "adoption",
		MessageStream: "outbound",
	}
	if priority == notify.PriorityHigh {
		payload.Subject = fmt.Sprintf("Important: a message from %s", c.shelterName)
		payload.Headers = []postmarkHeader{{Name: "Importance", Value: "high"}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
