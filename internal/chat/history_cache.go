package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/neoimplant/dental-assistant/internal/conversation"
)

const historyTTL = 24 * time.Hour

// HistoryCache keeps the recent-turn window of each session in Redis so a
// turn does not re-query Postgres for history it appended moments ago.
type HistoryCache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewHistoryCache(client *redis.Client, tracer trace.Tracer) *HistoryCache {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("dental.internal.chat.history")
	}
	return &HistoryCache{redis: client, tracer: tracer}
}

// Save stores the session's recent turns, replacing any cached window.
func (c *HistoryCache) Save(ctx context.Context, sessionID string, turns []conversation.Turn) error {
	ctx, span := c.tracer.Start(ctx, "chat.save_history")
	defer span.End()

	data, err := json.Marshal(turns)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: marshal history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(sessionID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: cache history: %w", err)
	}
	return nil
}

// Load returns the cached window, or (nil, false, nil) on a cache miss.
func (c *HistoryCache) Load(ctx context.Context, sessionID string) ([]conversation.Turn, bool, error) {
	ctx, span := c.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := c.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("chat: load cached history: %w", err)
	}

	var turns []conversation.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("chat: decode cached history: %w", err)
	}
	return turns, true, nil
}

// Invalidate drops the cached window, forcing the next read through to
// Postgres.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID string) error {
	ctx, span := c.tracer.Start(ctx, "chat.invalidate_history")
	defer span.End()

	if err := c.redis.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: invalidate history: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}
