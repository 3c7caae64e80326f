package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursestore-backend/internal/domains/basket/model"
)

type basketRepository struct {
	pool *pgxpool.Pool
}

func NewBasketRepository(pool *pgxpool.Pool) BasketRepoInterface {
	return &basketRepository{pool: pool}
}

func (r *basketRepository) GetByID(ctx context.Context, id int64) (*model.Basket, error) {
	query := `
		SELECT id, owner_username, partner_code, currency, total_incl_tax, status
		FROM baskets
		WHERE id = $1
	`

	basket := &model.Basket{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&basket.ID,
		&basket.OwnerUsername,
		&basket.PartnerCode,
		&basket.Currency,
		&basket.TotalInclTax,
		&basket.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBasketNotFound
		}
		return nil, fmt.Errorf("failed to get basket: %w", err)
	}

	lines, err := r.getLines(ctx, id)
	if err != nil {
		return nil, err
	}
	basket.Lines = lines

	return basket, nil
}

func (r *basketRepository) getLines(ctx context.Context, basketID int64) ([]model.Line, error) {
	query := `
		SELECT product_title, quantity, unit_price
		FROM basket_lines
		WHERE basket_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, basketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get basket lines: %w", err)
	}
	defer rows.Close()

	var lines []model.Line
	for rows.Next() {
		var line model.Line
		if err := rows.Scan(&line.ProductTitle, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan basket line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read basket lines: %w", err)
	}

	return lines, nil
}
