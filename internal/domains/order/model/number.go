package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedOrderNumber = errors.New("malformed order number")

// NumberCodec encodes basket ids into order numbers and back.
//
// Format: "{prefix}-{basketID + offset}". The offset keeps externally
// visible numbers from starting at 1; every processor callback echoes
// the order number, so decoding must be exact.
type NumberCodec struct {
	Prefix string
	Offset int64
}

// OrderNumber encodes a basket id.
func (c NumberCodec) OrderNumber(basketID int64) string {
	return fmt.Sprintf("%s-%d", c.Prefix, basketID+c.Offset)
}

// BasketID decodes an order number back to a basket id.
// Returns ErrMalformedOrderNumber for anything this codec did not produce.
func (c NumberCodec) BasketID(orderNumber string) (int64, error) {
	prefix := c.Prefix + "-"
	if !strings.HasPrefix(orderNumber, prefix) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOrderNumber, orderNumber)
	}

	n, err := strconv.ParseInt(strings.TrimPrefix(orderNumber, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOrderNumber, orderNumber)
	}

	basketID := n - c.Offset
	if basketID <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOrderNumber, orderNumber)
	}

	return basketID, nil
}
