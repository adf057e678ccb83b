// Package mailer delivers contact form emails through Resend.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"portfolio-api/internal/domain"
)

// emailsAPI is the slice of the Resend SDK that Client uses.
// resend.Client.Emails satisfies it.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Client sends domain.Email values through Resend.
type Client struct {
	emails emailsAPI
	hasKey bool
}

// New creates a Client for apiKey. An empty key is allowed so the process can
// start; HasCredentials reports false and Send refuses to run.
func New(apiKey string) *Client {
	apiKey = strings.TrimSpace(apiKey)
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	rc := resend.NewCustomClient(httpClient, apiKey)
	return &Client{emails: rc.Emails, hasKey: apiKey != ""}
}

func newWithAPI(api emailsAPI) *Client {
	return &Client{emails: api, hasKey: true}
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.hasKey
}

// Send delivers msg and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg domain.Email) (string, error) {
	if !c.hasKey {
		return "", errors.New("mailer: API key is not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", errors.New("mailer: recipient is required")
	}

	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if replyTo := strings.TrimSpace(msg.ReplyTo); replyTo != "" {
		req.ReplyTo = replyTo
	}

	out, err := c.emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mailer: send: %w", err)
	}
	if out == nil {
		return "", nil
	}
	return out.Id, nil
}
