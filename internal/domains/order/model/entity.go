package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNumberExists surfaces the unique constraint on order
	// number. Callers treat it as "the order already exists", never as
	// a failure - this is what makes concurrent callback delivery safe.
	ErrOrderNumberExists = errors.New("order number already exists")
)

// Order statuses
const (
	OrderStatusPlaced = "placed"
)

// Order is the durable record created once payment for a basket is
// accepted. At most one order exists per basket, enforced by the unique
// constraint on Number.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Number        string          `json:"number" db:"number"`
	BasketID      int64           `json:"basket_id" db:"basket_id"`
	OwnerUsername string          `json:"owner_username" db:"owner_username"`
	TotalInclTax  decimal.Decimal `json:"total_incl_tax" db:"total_incl_tax"`
	Currency      string          `json:"currency" db:"currency"`
	Status        string          `json:"status" db:"status"`
	PlacedAt      time.Time       `json:"placed_at" db:"placed_at"`
}
