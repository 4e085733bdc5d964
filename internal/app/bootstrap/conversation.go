package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/neoimplant/dental-assistant/internal/config"
	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/internal/notify"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// BuildLLMClient wires Gemini as the primary provider with Bedrock as the
// fallback. Either provider may be unconfigured; at least one is required.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var primary, fallback conversation.LLMClient

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		primary = gemini
	}

	if strings.TrimSpace(cfg.BedrockModelID) != "" {
		awsCfg, err := BuildAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		fallback = conversation.PinModel(
			conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)),
			cfg.BedrockModelID,
		)
	}

	switch {
	case primary != nil && fallback != nil:
		logger.Info("llm providers configured", "primary", "gemini", "fallback", "bedrock")
		return conversation.NewFallbackLLMClient(primary, fallback, logger.Logger), nil
	case primary != nil:
		logger.Info("llm provider configured", "primary", "gemini")
		return primary, nil
	case fallback != nil:
		logger.Info("llm provider configured", "primary", "bedrock")
		return fallback, nil
	default:
		return nil, fmt.Errorf("bootstrap: no LLM provider configured (set GEMINI_API_KEY or BEDROCK_MODEL_ID)")
	}
}

// BuildSnippetStore seeds knowledge snippets into Redis, falling back to an
// in-process store when Redis is unavailable.
func BuildSnippetStore(ctx context.Context, redisClient *redis.Client, kb *conversation.KnowledgeBase, logger *logging.Logger) conversation.SnippetStore {
	if logger == nil {
		logger = logging.Default()
	}

	var store conversation.SnippetStore
	if redisClient != nil {
		store = conversation.NewRedisSnippetStore(redisClient)
	} else {
		logger.Warn("redis unavailable, knowledge snippets held in memory")
		store = conversation.NewMemorySnippetStore()
	}

	if kb != nil {
		if err := store.Replace(ctx, kb.Snippets()); err != nil {
			logger.Error("failed to seed knowledge snippets", "error", err)
		}
	}
	return store
}

// BuildEmailSender selects the configured email provider. Returns nil when no
// provider is configured; confirmation emails are then skipped with a log.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := BuildAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil, nil
		}
		return sender, nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY empty, email disabled")
			return nil, nil
		}
		return sender, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}
