package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"portfolio-api/internal/domain"
)

const DefaultSender = "Portfolio Contact <onboarding@resend.dev>"

type Mailer interface {
	HasCredentials() bool
	Send(ctx context.Context, email domain.Email) (string, error)
}

type ContactService struct {
	mailer    Mailer
	sender    string
	recipient string
	options
}

type ContactInput struct {
	Submission domain.ContactSubmission
	ClientID   string
}

// NewContactService accepts an empty recipient so the process can start;
// Send reports a configuration error until one is set.
func NewContactService(mailer Mailer, sender, recipient string, opts ...Option) (*ContactService, error) {
	if mailer == nil {
		return nil, errors.New("usecase: mailer must not be nil")
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = DefaultSender
	}
	return &ContactService{
		mailer:    mailer,
		sender:    sender,
		recipient: strings.TrimSpace(recipient),
		options:   buildOptions(opts),
	}, nil
}

func (s *ContactService) Send(ctx context.Context, in ContactInput) error {
	if !s.mailer.HasCredentials() {
		return newError(ErrorConfiguration, "resend_key_missing", "Server configuration error: Missing API Key.", nil)
	}
	if s.recipient == "" {
		return newError(ErrorConfiguration, "recipient_missing", "Server configuration error: Missing recipient.", nil)
	}
	if err := s.checkQuota(ctx, ScopeContact, in.ClientID); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.mailer.Send(callCtx, buildEmail(s.sender, s.recipient, in.Submission))
	if err != nil {
		e := newError(ErrorUpstream, "resend_error", "Error sending email", err)
		e.Status = http.StatusInternalServerError
		return e
	}
	s.logger.InfoContext(ctx, "contact email sent", "email_id", id)
	return nil
}

func buildEmail(sender, recipient string, sub domain.ContactSubmission) domain.Email {
	return domain.Email{
		From:    sender,
		To:      recipient,
		ReplyTo: strings.TrimSpace(sub.Email),
		Subject: fmt.Sprintf("New Message from %s on your Portfolio", sub.Name),
		HTML:    renderHTML(sub),
	}
}

func renderHTML(sub domain.ContactSubmission) string {
	message := html.EscapeString(sub.Message)
	message = strings.ReplaceAll(strings.ReplaceAll(message, "\r\n", "\n"), "\n", "<br>")
	return strings.Join([]string{
		"<p><strong>Name:</strong> " + html.EscapeString(sub.Name) + "</p>",
		"<p><strong>Email:</strong> " + html.EscapeString(sub.Email) + "</p>",
		"<p><strong>Message:</strong></p>",
		"<p>" + message + "</p>",
	}, "\n")
}
