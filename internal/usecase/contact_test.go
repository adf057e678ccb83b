package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-api/internal/domain"
)

type mockMailer struct {
	noKey bool
	id    string
	err   error
	sent  []domain.Email
}

func (m *mockMailer) HasCredentials() bool { return !m.noKey }

func (m *mockMailer) Send(_ context.Context, email domain.Email) (string, error) {
	m.sent = append(m.sent, email)
	return m.id, m.err
}

func submission() domain.ContactSubmission {
	return domain.ContactSubmission{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Hello Felix,\nWe'd like to chat.",
	}
}

func TestNewContactService(t *testing.T) {
	_, err := NewContactService(nil, "", "me@example.com")
	require.Error(t, err)

	svc, err := NewContactService(&mockMailer{}, " ", " me@example.com ")
	require.NoError(t, err)
	require.Equal(t, DefaultSender, svc.sender)
	require.Equal(t, "me@example.com", svc.recipient)
}

func TestSend_HappyPath(t *testing.T) {
	m := &mockMailer{id: "email-1"}
	svc, err := NewContactService(m, "", "me@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Send(context.Background(), ContactInput{Submission: submission()}))
	require.Len(t, m.sent, 1)

	email := m.sent[0]
	require.Equal(t, DefaultSender, email.From)
	require.Equal(t, "me@example.com", email.To)
	require.Equal(t, "ada@example.com", email.ReplyTo)
	require.Equal(t, "New Message from Ada on your Portfolio", email.Subject)
	require.Contains(t, email.HTML, "<p><strong>Name:</strong> Ada</p>")
	require.Contains(t, email.HTML, "<p><strong>Email:</strong> ada@example.com</p>")
	require.Contains(t, email.HTML, "<p>Hello Felix,<br>We&#39;d like to chat.</p>")
}

func TestSend_EscapesHTML(t *testing.T) {
	m := &mockMailer{}
	svc, err := NewContactService(m, "Site <site@example.com>", "me@example.com")
	require.NoError(t, err)

	err = svc.Send(context.Background(), ContactInput{Submission: domain.ContactSubmission{
		Name:    "<b>Mallory</b>",
		Email:   "m@example.com",
		Message: "<script>alert(1)</script>\r\nbye",
	}})
	require.NoError(t, err)

	email := m.sent[0]
	require.Equal(t, "Site <site@example.com>", email.From)
	require.NotContains(t, email.HTML, "<script>")
	require.NotContains(t, email.HTML, "<b>Mallory</b>")
	require.Contains(t, email.HTML, "&lt;script&gt;alert(1)&lt;/script&gt;<br>bye")
}

func TestSend_ConfigurationErrors(t *testing.T) {
	m := &mockMailer{noKey: true}
	svc, err := NewContactService(m, "", "me@example.com")
	require.NoError(t, err)
	err = svc.Send(context.Background(), ContactInput{Submission: submission()})
	expectError(t, err, ErrorConfiguration, "resend_key_missing")
	require.Empty(t, m.sent)

	m = &mockMailer{}
	svc, err = NewContactService(m, "", "")
	require.NoError(t, err)
	err = svc.Send(context.Background(), ContactInput{Submission: submission()})
	expectError(t, err, ErrorConfiguration, "recipient_missing")
	require.Empty(t, m.sent)
}

func TestSend_ProviderError(t *testing.T) {
	m := &mockMailer{err: errors.New("resend: 422 validation_error")}
	svc, err := NewContactService(m, "", "me@example.com")
	require.NoError(t, err)

	err = svc.Send(context.Background(), ContactInput{Submission: submission()})
	e := expectError(t, err, ErrorUpstream, "resend_error")
	require.Equal(t, http.StatusInternalServerError, e.Status)
	require.Equal(t, "Error sending email", e.Message)
	require.Nil(t, e.Details)
}

func TestSend_Quota(t *testing.T) {
	limiter := &mockLimiter{allowed: false}
	m := &mockMailer{}
	svc, err := NewContactService(m, "", "me@example.com", WithLimiter(limiter))
	require.NoError(t, err)

	err = svc.Send(context.Background(), ContactInput{Submission: submission(), ClientID: "198.51.100.2"})
	expectError(t, err, ErrorRateLimited, "contact_quota_exceeded")
	require.Empty(t, m.sent)
	require.Equal(t, []string{ScopeContact}, limiter.scopes)
}
