package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/config"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

const bodyReadLimit int64 = 2048

// Message is one outbound transactional email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client posts messages to the configured mail relay. A client with no
// endpoint configured is disabled and drops messages silently, so local
// environments run without a relay.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	sender     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the mail relay client.
func NewClient(cfg config.MailConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		sender:     cfg.Sender,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Enabled reports whether a relay endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Send delivers one message through the relay.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	payload, err := json.Marshal(map[string]string{
		"from":    c.sender,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTMLBody,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal mail request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mail request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mail request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "mail relay request failed")
	}
	return nil
}
