package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-api/internal/domain"
	"portfolio-api/internal/usecase"
)

const (
	RouteChat    = "/api/chat"
	RouteContact = "/api/contact"
	RouteHealth  = "/healthz"

	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10

	chatFailureMessage    = "Something went wrong on the server."
	contactFailureMessage = "Something went wrong"
	contactSuccessMessage = "Email sent successfully!"
)

type ChatReplier interface {
	Reply(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type ContactSender interface {
	Send(ctx context.Context, in usecase.ContactInput) error
}

type Handler struct {
	chat    ChatReplier
	contact ContactSender
	logger  *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(chat ChatReplier, contact ContactSender, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if contact == nil {
		return nil, errors.New("handler: contact use case must not be nil")
	}
	h := &Handler{chat: chat, contact: contact, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
	Order    string          `json:"order"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type contactResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// request is the transport-neutral view of one API call.
type request struct {
	route         string
	body          []byte
	clientID      string
	correlationID string
}

// Handle is the API Gateway proxy entry point.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	corrID := correlationID(event.Headers)
	path := normalizePath(event.Path)

	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorContext(ctx, "panic while handling request", "correlation_id", corrID, "route", path, "panic", fmt.Sprint(r))
			resp = jsonResponse(http.StatusInternalServerError, errorResponse{Error: failureMessage(path), Code: string(usecase.ErrorInternal)}, corrID)
			err = nil
		}
	}()

	if path != RouteChat && path != RouteContact {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "Not Found"}, corrID), nil
	}
	if !strings.EqualFold(event.HTTPMethod, http.MethodPost) {
		resp = jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "Method Not Allowed"}, corrID)
		resp.Headers["Allow"] = http.MethodPost
		return resp, nil
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, decErr := base64.StdEncoding.DecodeString(event.Body)
		if decErr != nil {
			body = nil
		} else {
			body = decoded
		}
	}

	status, payload := h.serve(ctx, request{
		route:         path,
		body:          body,
		clientID:      event.RequestContext.Identity.SourceIP,
		correlationID: corrID,
	})
	return jsonResponse(status, payload, corrID), nil
}

// serve runs one request against the matching use case and returns the
// status and JSON payload to send.
func (h *Handler) serve(ctx context.Context, req request) (int, any) {
	switch req.route {
	case RouteChat:
		return h.serveChat(ctx, req)
	case RouteContact:
		return h.serveContact(ctx, req)
	default:
		return http.StatusNotFound, errorResponse{Error: "Not Found"}
	}
}

func (h *Handler) serveChat(ctx context.Context, req request) (int, any) {
	var body chatRequest
	if err := json.Unmarshal(req.body, &body); err != nil {
		return h.fail(ctx, req, chatFailureMessage, fmt.Errorf("decode chat request: %w", err))
	}
	order, ok := domain.ParseOrder(body.Order)
	if !ok {
		return h.fail(ctx, req, chatFailureMessage, &usecase.Error{
			Code:    usecase.ErrorInvalidInput,
			Reason:  "invalid_order",
			Message: fmt.Sprintf("order must be %q or %q", domain.OrderOldestFirst, domain.OrderNewestFirst),
		})
	}

	out, err := h.chat.Reply(ctx, usecase.ChatInput{
		Messages: domain.ParseMessages(body.Messages),
		Order:    order,
		ClientID: req.clientID,
	})
	if err != nil {
		return h.fail(ctx, req, chatFailureMessage, err)
	}
	h.logger.InfoContext(ctx, "chat reply sent", "correlation_id", req.correlationID, "route", req.route, "status", http.StatusOK)
	return http.StatusOK, chatResponse{Reply: out.Reply}
}

func (h *Handler) serveContact(ctx context.Context, req request) (int, any) {
	var sub domain.ContactSubmission
	if err := json.Unmarshal(req.body, &sub); err != nil {
		return h.fail(ctx, req, contactFailureMessage, fmt.Errorf("decode contact request: %w", err))
	}
	if err := h.contact.Send(ctx, usecase.ContactInput{Submission: sub, ClientID: req.clientID}); err != nil {
		return h.fail(ctx, req, contactFailureMessage, err)
	}
	h.logger.InfoContext(ctx, "contact message forwarded", "correlation_id", req.correlationID, "route", req.route, "status", http.StatusOK)
	return http.StatusOK, contactResponse{Message: contactSuccessMessage}
}

// fail logs err and converts it to an error payload. Errors that are not
// use-case errors become a 500 carrying err's message as details.
func (h *Handler) fail(ctx context.Context, req request, fallback string, err error) (int, any) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		h.logger.ErrorContext(ctx, "request failed", "correlation_id", req.correlationID, "route", req.route, "status", http.StatusInternalServerError, "err", err)
		return http.StatusInternalServerError, errorResponse{
			Error:   fallback,
			Code:    string(usecase.ErrorInternal),
			Details: err.Error(),
		}
	}

	status := statusFor(ue)
	msg := ue.Message
	if msg == "" {
		msg = fallback
	}
	attrs := []any{"correlation_id", req.correlationID, "route", req.route, "status", status, "code", ue.Code, "reason", ue.Reason}
	if ue.Err != nil {
		attrs = append(attrs, "err", ue.Err)
	}
	if ue.Details != nil {
		attrs = append(attrs, "details", ue.Details)
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	return status, errorResponse{Error: msg, Code: string(ue.Code), Details: ue.Details}
}

func failureMessage(route string) string {
	if route == RouteContact {
		return contactFailureMessage
	}
	return chatFailureMessage
}

func statusFor(e *usecase.Error) int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, payload any, corrID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Something went wrong on the server.","code":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

// correlationID echoes the caller's id, matching the header name
// case-insensitively, or generates a new one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
