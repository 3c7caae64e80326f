package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	basketModel "coursestore-backend/internal/domains/basket/model"
	"coursestore-backend/internal/domains/order/model"
	"coursestore-backend/pkg/database"
)

const pgUniqueViolation = "23505"

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepoInterface {
	return &orderRepository{pool: pool}
}

// Create inserts the order and flips the basket to submitted in one
// transaction. A unique-violation on the order number means another
// delivery of the same callback won the race; map it to
// ErrOrderNumberExists so the caller can degrade to a no-op.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		insertOrder := `
			INSERT INTO orders (
				id, number, basket_id, owner_username, total_incl_tax,
				currency, status, placed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err := tx.Exec(ctx, insertOrder,
			order.ID,
			order.Number,
			order.BasketID,
			order.OwnerUsername,
			order.TotalInclTax,
			order.Currency,
			order.Status,
			order.PlacedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return model.ErrOrderNumberExists
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		markSubmitted := `
			UPDATE baskets SET status = $1 WHERE id = $2
		`

		if _, err := tx.Exec(ctx, markSubmitted, basketModel.BasketStatusSubmitted, order.BasketID); err != nil {
			return fmt.Errorf("failed to mark basket submitted: %w", err)
		}

		return nil
	})
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	query := `
		SELECT id, number, basket_id, owner_username, total_incl_tax,
		       currency, status, placed_at
		FROM orders
		WHERE number = $1
	`

	order := &model.Order{}
	err := r.pool.QueryRow(ctx, query, number).Scan(
		&order.ID,
		&order.Number,
		&order.BasketID,
		&order.OwnerUsername,
		&order.TotalInclTax,
		&order.Currency,
		&order.Status,
		&order.PlacedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE number = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}

	return exists, nil
}
