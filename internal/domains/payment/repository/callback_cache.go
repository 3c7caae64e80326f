package repository

import (
	"context"
	"fmt"
	"time"

	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/cache"
)

const (
	processedKeyFmt = "payment:processed:%s:%s"
	reviewKeyFmt    = "payment:review:%d"

	reviewTTL = 48 * time.Hour
)

type callbackCache struct {
	cache cache.Cache
}

func NewCallbackCache(c cache.Cache) CallbackCacheInterface {
	return &callbackCache{cache: c}
}

func (c *callbackCache) MarkProcessed(ctx context.Context, processorName, transactionID string) (bool, error) {
	key := fmt.Sprintf(processedKeyFmt, processorName, transactionID)
	claimed, err := c.cache.SetNX(ctx, key, time.Now().UTC(), model.ProcessedMarkTTLHours*time.Hour)
	if err != nil {
		return false, fmt.Errorf("failed to mark callback processed: %w", err)
	}
	return claimed, nil
}

func (c *callbackCache) IsProcessed(ctx context.Context, processorName, transactionID string) (bool, error) {
	return c.cache.Exists(ctx, fmt.Sprintf(processedKeyFmt, processorName, transactionID))
}

func (c *callbackCache) SetAwaitingReview(ctx context.Context, basketID int64) error {
	return c.cache.Set(ctx, fmt.Sprintf(reviewKeyFmt, basketID), time.Now().UTC(), reviewTTL)
}

func (c *callbackCache) IsAwaitingReview(ctx context.Context, basketID int64) (bool, error) {
	return c.cache.Exists(ctx, fmt.Sprintf(reviewKeyFmt, basketID))
}

func (c *callbackCache) ClearAwaitingReview(ctx context.Context, basketID int64) error {
	return c.cache.Delete(ctx, fmt.Sprintf(reviewKeyFmt, basketID))
}
