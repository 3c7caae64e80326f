package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcessorResponseRecord is an append-only audit row capturing the raw
// payload of every processor interaction that passed signature
// verification, whether or not an order was ultimately placed.
type ProcessorResponseRecord struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	ProcessorName string         `json:"processor_name" db:"processor_name"`
	BasketID      int64          `json:"basket_id" db:"basket_id"`
	TransactionID string         `json:"transaction_id" db:"transaction_id"`
	Response      map[string]any `json:"response" db:"response"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}
