// Package config resolves process settings once at startup. Flags and
// environment come from kong; secrets may be overlaid from SSM.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"portfolio-api/internal/knowledge"
	"portfolio-api/internal/question"
)

// Parameter names under Flags.ParamPrefix.
const (
	ParamGeminiAPIKey  = "/gemini-api-key"
	ParamResendAPIKey  = "/resend-api-key"
	ParamEmailTo       = "/email-to"
	ParamKnowledgeBase = "/knowledge-base"
)

// Flags is parsed by kong. Every flag can also be set through its env var.
type Flags struct {
	GeminiAPIKey  string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key."`
	GeminiModel   string `name:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash-latest" help:"Gemini model name."`
	GeminiBaseURL string `name:"gemini-base-url" env:"GEMINI_BASE_URL" help:"Override the Gemini API base URL."`

	ResendAPIKey string `name:"resend-api-key" env:"RESEND_API_KEY" help:"Resend API key."`
	EmailTo      string `name:"email-to" env:"EMAIL_TO" help:"Recipient of contact form messages."`
	EmailFrom    string `name:"email-from" env:"EMAIL_FROM" help:"Sender identity for contact form messages."`

	ParamPrefix   string `name:"param-prefix" env:"PARAM_PREFIX" help:"SSM parameter prefix for secrets. Empty disables the overlay."`
	KnowledgeFile string `name:"knowledge-file" env:"KNOWLEDGE_BASE_FILE" help:"Replace the embedded knowledge base with this file."`
	RulesFile     string `name:"rules-file" env:"EXTRACTION_RULES_FILE" help:"YAML file with question extraction rules."`

	UpstreamTimeout time.Duration `name:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"8s" help:"Timeout for each Gemini or Resend call."`

	QuotaTable        string `name:"quota-table" env:"QUOTA_TABLE" help:"DynamoDB table for per-client daily quotas. Empty disables quotas."`
	ChatDailyLimit    int    `name:"chat-daily-limit" env:"CHAT_DAILY_LIMIT" default:"50" help:"Chat requests per client per day. 0 is unlimited."`
	ContactDailyLimit int    `name:"contact-daily-limit" env:"CONTACT_DAILY_LIMIT" default:"5" help:"Contact messages per client per day. 0 is unlimited."`

	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"info" help:"debug, info, warn or error."`
}

// ParamGetter fetches decrypted parameters by full name. Names that do not
// exist are omitted from the result.
type ParamGetter interface {
	GetParameters(ctx context.Context, names []string) (map[string]string, error)
}

type Config struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	ResendAPIKey string
	EmailTo      string
	EmailFrom    string

	KnowledgeBase string
	Extractor     *question.Extractor

	UpstreamTimeout time.Duration

	QuotaTable        string
	ChatDailyLimit    int
	ContactDailyLimit int

	LogLevel slog.Level
}

// Load builds the Config. Explicit flags and env vars win over SSM values,
// and SSM only fills what is left blank. Missing API keys are not an error
// here; the affected endpoint reports them per request.
func Load(ctx context.Context, f Flags, params ParamGetter) (Config, error) {
	cfg := Config{
		GeminiAPIKey:      strings.TrimSpace(f.GeminiAPIKey),
		GeminiModel:       strings.TrimSpace(f.GeminiModel),
		GeminiBaseURL:     strings.TrimSpace(f.GeminiBaseURL),
		ResendAPIKey:      strings.TrimSpace(f.ResendAPIKey),
		EmailTo:           strings.TrimSpace(f.EmailTo),
		EmailFrom:         strings.TrimSpace(f.EmailFrom),
		UpstreamTimeout:   f.UpstreamTimeout,
		QuotaTable:        strings.TrimSpace(f.QuotaTable),
		ChatDailyLimit:    f.ChatDailyLimit,
		ContactDailyLimit: f.ContactDailyLimit,
	}

	level, err := parseLevel(f.LogLevel)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	var overlay map[string]string
	prefix := strings.TrimRight(strings.TrimSpace(f.ParamPrefix), "/")
	if prefix != "" && params != nil {
		overlay, err = params.GetParameters(ctx, []string{
			prefix + ParamGeminiAPIKey,
			prefix + ParamResendAPIKey,
			prefix + ParamEmailTo,
			prefix + ParamKnowledgeBase,
		})
		if err != nil {
			return Config{}, fmt.Errorf("config: load parameters: %w", err)
		}
	}
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = secretValue(overlay[prefix+name])
		}
	}
	fill(&cfg.GeminiAPIKey, ParamGeminiAPIKey)
	fill(&cfg.ResendAPIKey, ParamResendAPIKey)
	fill(&cfg.EmailTo, ParamEmailTo)

	// A knowledge file beats SSM, which beats the embedded profile.
	if kb := strings.TrimSpace(overlay[prefix+ParamKnowledgeBase]); kb != "" && strings.TrimSpace(f.KnowledgeFile) == "" {
		cfg.KnowledgeBase = kb
	} else if cfg.KnowledgeBase, err = knowledge.Load(f.KnowledgeFile); err != nil {
		return Config{}, err
	}

	rules, err := question.LoadRules(f.RulesFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Extractor, err = question.Compile(rules)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LogValue keeps secrets out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("gemini_key_set", c.GeminiAPIKey != ""),
		slog.String("gemini_model", c.GeminiModel),
		slog.Bool("resend_key_set", c.ResendAPIKey != ""),
		slog.Bool("email_to_set", c.EmailTo != ""),
		slog.Int("knowledge_bytes", len(c.KnowledgeBase)),
		slog.Duration("upstream_timeout", c.UpstreamTimeout),
		slog.String("quota_table", c.QuotaTable),
		slog.Int("chat_daily_limit", c.ChatDailyLimit),
		slog.Int("contact_daily_limit", c.ContactDailyLimit),
		slog.String("log_level", c.LogLevel.String()),
	)
}

// secretValue accepts either a raw secret or a {"token":"..."} document.
func secretValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return raw
	}
	if tok := gjson.Get(raw, "token"); tok.Exists() {
		return strings.TrimSpace(tok.String())
	}
	return raw
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q: %w", s, err)
	}
	return level, nil
}
