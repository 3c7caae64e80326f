package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrBasketNotFound = errors.New("basket not found")
)

// Basket statuses
const (
	BasketStatusOpen      = "open"
	BasketStatusSubmitted = "submitted"
)

// Line is a purchasable item in a basket.
type Line struct {
	ProductTitle string          `json:"product_title" db:"product_title"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// Basket is a pending, unpaid collection of purchasable items tied to a
// buyer. Payment callbacks reconcile against it; it moves from open to
// submitted exactly once.
type Basket struct {
	ID            int64           `json:"id" db:"id"`
	OwnerUsername string          `json:"owner_username" db:"owner_username"`
	PartnerCode   string          `json:"partner_code" db:"partner_code"`
	Currency      string          `json:"currency" db:"currency"`
	TotalInclTax  decimal.Decimal `json:"total_incl_tax" db:"total_incl_tax"`
	Status        string          `json:"status" db:"status"`
	Lines         []Line          `json:"lines"`
}

// CourseTitle derives the human-readable course name from the first line
// item, stripping the catalog phrasing the storefront wraps titles in.
// Deterministic so processor descriptions and refund messages agree.
func (b *Basket) CourseTitle() string {
	if len(b.Lines) == 0 {
		return ""
	}

	title := b.Lines[0].ProductTitle
	title = strings.ReplaceAll(title, "Seat in ", "")
	title = strings.ReplaceAll(title, " with professional certificate", "")
	return title
}

func (b *Basket) IsOpen() bool {
	return b.Status == BasketStatusOpen
}
