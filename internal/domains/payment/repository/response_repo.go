package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursestore-backend/internal/domains/payment/model"
)

var ErrResponseRecordNotFound = errors.New("processor response record not found")

type responseRepository struct {
	pool *pgxpool.Pool
}

func NewResponseRepository(pool *pgxpool.Pool) ResponseRepoInterface {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) RecordResponse(ctx context.Context, processorName string, basketID int64, transactionID string, payload map[string]any) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal processor payload: %w", err)
	}

	query := `
		INSERT INTO processor_responses (
			id, processor_name, basket_id, transaction_id, response, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := uuid.New()
	_, err = r.pool.Exec(ctx, query,
		id,
		processorName,
		basketID,
		transactionID,
		raw,
		time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record processor response: %w", err)
	}

	return id, nil
}

func (r *responseRepository) LatestTransactionID(ctx context.Context, processorName string, basketID int64) (string, error) {
	query := `
		SELECT transaction_id
		FROM processor_responses
		WHERE processor_name = $1 AND basket_id = $2 AND transaction_id <> ''
		ORDER BY created_at DESC
		LIMIT 1
	`

	var transactionID string
	err := r.pool.QueryRow(ctx, query, processorName, basketID).Scan(&transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up transaction reference: %w", err)
	}

	return transactionID, nil
}

func (r *responseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProcessorResponseRecord, error) {
	query := `
		SELECT id, processor_name, basket_id, transaction_id, response, created_at
		FROM processor_responses
		WHERE id = $1
	`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResponseRecordNotFound
		}
		return nil, fmt.Errorf("failed to get processor response: %w", err)
	}

	return record, nil
}

func (r *responseRepository) ListByBasket(ctx context.Context, basketID int64) ([]*model.ProcessorResponseRecord, error) {
	query := `
		SELECT id, processor_name, basket_id, transaction_id, response, created_at
		FROM processor_responses
		WHERE basket_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, basketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processor responses: %w", err)
	}
	defer rows.Close()

	var records []*model.ProcessorResponseRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processor response: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ProcessorResponseRecord, error) {
	record := &model.ProcessorResponseRecord{}
	var raw []byte

	if err := row.Scan(
		&record.ID,
		&record.ProcessorName,
		&record.BasketID,
		&record.TransactionID,
		&raw,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &record.Response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored payload: %w", err)
	}

	return record, nil
}
