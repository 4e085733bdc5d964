package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// CachedStore layers the Redis history cache over the Postgres store. Reads
// prefer the cache; writes go to Postgres first and then update the cached
// window, so Postgres stays the source of truth.
type CachedStore struct {
	*Store
	cache  *HistoryCache
	window int
	logger *logging.Logger
}

func NewCachedStore(store *Store, cache *HistoryCache, window int, logger *logging.Logger) *CachedStore {
	if store == nil {
		panic("chat: store required")
	}
	if window <= 0 {
		window = 20
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{Store: store, cache: cache, window: window, logger: logger}
}

// Recent serves from the cache when the window is warm. Cache failures fall
// back to Postgres rather than surface.
func (c *CachedStore) Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]conversation.Turn, error) {
	if c.cache != nil && limit <= c.window {
		turns, ok, err := c.cache.Load(ctx, sessionID.String())
		if err != nil {
			c.logger.Warn("history cache read failed", "error", err, "session_id", sessionID)
		} else if ok {
			if len(turns) > limit {
				turns = turns[len(turns)-limit:]
			}
			return turns, nil
		}
	}

	turns, err := c.Store.Recent(ctx, sessionID, c.window)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Save(ctx, sessionID.String(), turns); err != nil {
			c.logger.Warn("history cache fill failed", "error", err, "session_id", sessionID)
		}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// AppendTurn writes through to the cached window after the durable insert.
func (c *CachedStore) AppendTurn(ctx context.Context, sessionID uuid.UUID, turn conversation.Turn) error {
	if err := c.Store.AppendTurn(ctx, sessionID, turn); err != nil {
		return err
	}
	if c.cache == nil {
		return nil
	}

	turns, ok, err := c.cache.Load(ctx, sessionID.String())
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("history cache read failed", "error", err, "session_id", sessionID)
		}
		return nil
	}
	turns = append(turns, turn)
	if len(turns) > c.window {
		turns = turns[len(turns)-c.window:]
	}
	if err := c.cache.Save(ctx, sessionID.String(), turns); err != nil {
		c.logger.Warn("history cache update failed", "error", err, "session_id", sessionID)
		if derr := c.cache.Invalidate(ctx, sessionID.String()); derr != nil {
			c.logger.Warn("history cache invalidate failed", "error", derr, "session_id", sessionID)
		}
	}
	return nil
}
