package repository

import (
	"context"

	"github.com/google/uuid"

	"coursestore-backend/internal/domains/payment/model"
)

type ResponseRepoInterface interface {
	// RecordResponse appends a raw processor payload. Records are never
	// updated or deleted; the table is the audit trail reconciliation
	// falls back to when anything downstream fails.
	RecordResponse(ctx context.Context, processorName string, basketID int64, transactionID string, payload map[string]any) (uuid.UUID, error)

	// LatestTransactionID returns the newest non-empty processor
	// transaction reference recorded for the basket, "" when none exists.
	LatestTransactionID(ctx context.Context, processorName string, basketID int64) (string, error)

	// GetByID fetches a single record for support tooling.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProcessorResponseRecord, error)

	// ListByBasket returns every recorded interaction for a basket,
	// newest first.
	ListByBasket(ctx context.Context, basketID int64) ([]*model.ProcessorResponseRecord, error)
}

// CallbackCacheInterface is the Redis fast path in front of the
// response table. Misses are always answered by Postgres; the cache
// only short-circuits obvious duplicate deliveries and remembers
// pending-review state for the wait page.
type CallbackCacheInterface interface {
	// MarkProcessed claims a (processor, transaction) pair. Only called
	// after the order is durably placed - a claim taken earlier would
	// turn a transient placement failure into a permanently lost
	// payment, because every redelivery would short-circuit. Returns
	// false when a previous delivery already claimed it.
	MarkProcessed(ctx context.Context, processorName, transactionID string) (bool, error)

	IsProcessed(ctx context.Context, processorName, transactionID string) (bool, error)

	// SetAwaitingReview flags a basket whose payment is held for
	// secondary review so the browser wait page can poll it.
	SetAwaitingReview(ctx context.Context, basketID int64) error

	IsAwaitingReview(ctx context.Context, basketID int64) (bool, error)

	ClearAwaitingReview(ctx context.Context, basketID int64) error
}
