package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"portfolio-api/internal/domain"
)

const (
	ScopeChat    = "chat"
	ScopeContact = "contact"

	defaultUpstreamTimeout = 8 * time.Second

	// GreetingReply is returned without calling the model when the visitor
	// has not asked anything yet.
	GreetingReply = "Hello! I'm Felix's AI assistant. Ask me about his skills, experience, or projects."
)

type LLMClient interface {
	HasCredentials() bool
	Generate(ctx context.Context, in domain.Generation) (string, error)
}

type QuestionExtractor interface {
	Latest(messages []domain.Message) (string, bool)
	IsGreeting(s string) bool
}

// Limiter enforces per-client quotas. Allow returns false when the quota for
// scope is exhausted.
type Limiter interface {
	Allow(ctx context.Context, scope, clientID string) (bool, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type detailer interface {
	Details() any
}

type options struct {
	limiter Limiter
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*options)

// WithLimiter enables quota checks. A nil limiter leaves them disabled.
func WithLimiter(l Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithTimeout bounds each upstream call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: defaultUpstreamTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type ChatService struct {
	llm       LLMClient
	extractor QuestionExtractor
	knowledge string
	options
}

type ChatInput struct {
	Messages []domain.Message
	Order    domain.Order
	ClientID string
}

type ChatOutput struct {
	Reply string
}

func NewChatService(llm LLMClient, extractor QuestionExtractor, knowledgeBase string, opts ...Option) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if extractor == nil {
		return nil, errors.New("usecase: question extractor must not be nil")
	}
	knowledgeBase = strings.TrimSpace(knowledgeBase)
	if knowledgeBase == "" {
		return nil, errors.New("usecase: knowledge base must not be empty")
	}
	return &ChatService{
		llm:       llm,
		extractor: extractor,
		knowledge: knowledgeBase,
		options:   buildOptions(opts),
	}, nil
}

func (s *ChatService) Reply(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if !s.llm.HasCredentials() {
		return ChatOutput{}, newError(ErrorConfiguration, "gemini_key_missing", "Server configuration error: Missing API Key.", nil)
	}

	question, ok := s.extractor.Latest(domain.Chronological(in.Messages, in.Order))
	if !ok || s.extractor.IsGreeting(question) {
		return ChatOutput{Reply: GreetingReply}, nil
	}

	if err := s.checkQuota(ctx, ScopeChat, in.ClientID); err != nil {
		return ChatOutput{}, err
	}

	text, err := s.generate(ctx, domain.Generation{
		Prompt:          buildPrompt(s.knowledge, question),
		Temperature:     primaryTemperature,
		MaxOutputTokens: primaryMaxTokens,
	})
	if err != nil {
		return ChatOutput{}, err
	}
	if text != "" {
		return ChatOutput{Reply: text}, nil
	}

	s.logger.WarnContext(ctx, "empty model answer, retrying with relaxed prompt")
	text, err = s.generate(ctx, domain.Generation{
		Prompt:          buildRelaxedPrompt(s.knowledge, question),
		Temperature:     primaryTemperature,
		MaxOutputTokens: relaxedMaxTokens,
	})
	if err != nil {
		return ChatOutput{}, err
	}
	if text == "" {
		return ChatOutput{}, newError(ErrorNoContent, "gemini_empty_answer", "No content in AI response", nil)
	}
	return ChatOutput{Reply: text}, nil
}

func (s *ChatService) generate(ctx context.Context, in domain.Generation) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Generate(callCtx, in)
	if err == nil {
		return strings.TrimSpace(text), nil
	}
	if status, ok := upstreamStatusCode(err); ok {
		e := newError(ErrorUpstream, "gemini_error", "Failed to get response from AI", err)
		e.Status = status
		e.Details = upstreamDetails(err)
		if status == http.StatusTooManyRequests {
			e.Code = ErrorRateLimited
			e.Reason = "gemini_rate_limited"
		}
		return "", e
	}
	e := newError(ErrorInternal, "gemini_transport_error", "Something went wrong on the server.", err)
	e.Details = err.Error()
	return "", e
}

// checkQuota fails open: a broken quota store must not take the chat down.
func (o options) checkQuota(ctx context.Context, scope, clientID string) error {
	if o.limiter == nil {
		return nil
	}
	allowed, err := o.limiter.Allow(ctx, scope, clientID)
	if err != nil {
		o.logger.WarnContext(ctx, "quota check failed, allowing request", "scope", scope, "err", err)
		return nil
	}
	if !allowed {
		return newError(ErrorRateLimited, scope+"_quota_exceeded", "Too many requests. Please try again tomorrow.", nil)
	}
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func upstreamDetails(err error) any {
	var d detailer
	if !errors.As(err, &d) {
		return nil
	}
	return d.Details()
}
