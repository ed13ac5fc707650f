package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const insertTransferQuery = `
	INSERT INTO transfers (
		token_address, tx_hash, from_address, to_address, raw_amount, decimals, value_usd, block_time
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectTransferColumns = `
	token_address, tx_hash, from_address, to_address, raw_amount, decimals, value_usd::text, block_time
`

// Insert adds a new transfer. Returns ErrDuplicateKey if the composite key exists.
func (s *TransferStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TokenAddress == "" || r.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTransferQuery, insertArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.TokenAddress == "" || r.TxHash == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTransferQuery, insertArgs(r)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByToken retrieves all transfers for a token, ordered by block_time ASC, tx_hash ASC.
func (s *TransferStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TransferRecord, error) {
	if tokenAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + selectTransferColumns + `
		FROM transfers
		WHERE token_address = $1
		ORDER BY block_time ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get transfers by token: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers for a token within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, tokenAddress string, start, end int64) ([]*domain.TransferRecord, error) {
	if tokenAddress == "" || start > end {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + selectTransferColumns + `
		FROM transfers
		WHERE token_address = $1 AND block_time >= $2 AND block_time <= $3
		ORDER BY block_time ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// insertArgs maps a record to insert parameters. A missing USD value is
// stored as NULL, never as zero.
func insertArgs(r *domain.TransferRecord) []any {
	var value any
	if r.HasValueUSD {
		value = r.ValueUSD.String()
	}
	return []any{
		r.TokenAddress,
		r.TxHash,
		r.FromAddress,
		r.ToAddress,
		r.RawAmount,
		r.Decimals,
		value,
		r.Timestamp,
	}
}

func scanTransfers(rows pgx.Rows) ([]*domain.TransferRecord, error) {
	var result []*domain.TransferRecord
	for rows.Next() {
		var r domain.TransferRecord
		var value *string
		if err := rows.Scan(
			&r.TokenAddress,
			&r.TxHash,
			&r.FromAddress,
			&r.ToAddress,
			&r.RawAmount,
			&r.Decimals,
			&value,
			&r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if value != nil {
			usd, err := decimal.NewFromString(*value)
			if err != nil {
				return nil, fmt.Errorf("parse value_usd %q: %w", *value, err)
			}
			r.ValueUSD = usd
			r.HasValueUSD = true
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return result, nil
}
