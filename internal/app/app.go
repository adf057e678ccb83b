// Package app wires configuration, integrations and use cases into a
// handler. Both entry points share it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-api/handler"
	"portfolio-api/internal/config"
	"portfolio-api/internal/integrations/gemini"
	"portfolio-api/internal/integrations/mailer"
	"portfolio-api/internal/integrations/paramstore"
	"portfolio-api/internal/repository"
	"portfolio-api/internal/usecase"
)

// App is the wired process.
type App struct {
	Config  config.Config
	Handler *handler.Handler
	Logger  *slog.Logger
}

// Build resolves configuration and constructs the handler. AWS config is only
// loaded when SSM or DynamoDB is in use, so the dev server runs without
// credentials.
func Build(ctx context.Context, flags config.Flags, logOut io.Writer) (*App, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	var params config.ParamGetter
	if strings.TrimSpace(flags.ParamPrefix) != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		ps, err := paramstore.New(awsssm.NewFromConfig(c))
		if err != nil {
			return nil, fmt.Errorf("app: create SSM client: %w", err)
		}
		params = ps
	}

	cfg, err := config.Load(ctx, flags, params)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(logOut, cfg.LogLevel)

	var limiter usecase.Limiter
	if cfg.QuotaTable != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		store, err := repository.New(awsdynamodb.NewFromConfig(c), cfg.QuotaTable)
		if err != nil {
			return nil, fmt.Errorf("app: create quota store: %w", err)
		}
		lim, err := repository.NewLimiter(store, map[string]int{
			usecase.ScopeChat:    cfg.ChatDailyLimit,
			usecase.ScopeContact: cfg.ContactDailyLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("app: create limiter: %w", err)
		}
		limiter = lim
	}

	h, err := NewHandler(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", "config", cfg)
	return &App{Config: cfg, Handler: h, Logger: logger}, nil
}

// NewHandler builds the use cases for cfg. limiter may be nil.
func NewHandler(cfg config.Config, limiter usecase.Limiter, logger *slog.Logger) (*handler.Handler, error) {
	opts := []usecase.Option{
		usecase.WithTimeout(cfg.UpstreamTimeout),
		usecase.WithLogger(logger),
	}
	if limiter != nil {
		opts = append(opts, usecase.WithLimiter(limiter))
	}

	llm := gemini.NewClient(cfg.GeminiAPIKey,
		gemini.WithBaseURL(cfg.GeminiBaseURL),
		gemini.WithModel(cfg.GeminiModel),
	)
	chat, err := usecase.NewChatService(llm, cfg.Extractor, cfg.KnowledgeBase, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	contact, err := usecase.NewContactService(mailer.New(cfg.ResendAPIKey), cfg.EmailFrom, cfg.EmailTo, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create contact service: %w", err)
	}

	h, err := handler.NewHandler(chat, contact, handler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}

// NewLogger returns a JSON logger at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
