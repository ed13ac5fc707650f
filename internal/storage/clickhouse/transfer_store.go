package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// TransferStore implements storage.TransferStore using ClickHouse. It is
// the analytics-grade backend for large transfer sets; the netting queries
// downstream benefit from columnar scans over block_time.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// Insert adds a new transfer. Returns ErrDuplicateKey if the composite key exists.
func (s *TransferStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TokenAddress == "" || r.TxHash == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.TransferRecord{r})
}

// InsertBulk adds multiple transfers. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness at insert time, so duplicates are
// checked explicitly before the batch is sent.
func (s *TransferStore) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.TokenAddress == "" || r.TxHash == "" {
			return storage.ErrInvalidInput
		}
		k := transferKey(r)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			token_address, tx_hash, from_address, to_address, raw_amount, decimals, value_usd, has_value_usd, block_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		value := decimal.Zero
		if r.HasValueUSD {
			value = r.ValueUSD
		}
		err = batch.Append(
			r.TokenAddress, r.TxHash, r.FromAddress, r.ToAddress,
			r.RawAmount, r.Decimals, value.InexactFloat64(), r.HasValueUSD,
			uint64(r.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all transfers for a token, ordered by block_time ASC, tx_hash ASC.
func (s *TransferStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TransferRecord, error) {
	if tokenAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT token_address, tx_hash, from_address, to_address, raw_amount, decimals, value_usd, has_value_usd, block_time
		FROM transfers
		WHERE token_address = ?
		ORDER BY block_time ASC, tx_hash ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
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
		SELECT token_address, tx_hash, from_address, to_address, raw_amount, decimals, value_usd, has_value_usd, block_time
		FROM transfers
		WHERE token_address = ? AND block_time >= ? AND block_time <= ?
		ORDER BY block_time ASC, tx_hash ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// exists checks if a transfer with the same composite key is already stored.
func (s *TransferStore) exists(ctx context.Context, r *domain.TransferRecord) (bool, error) {
	query := `
		SELECT count(*) FROM transfers
		WHERE token_address = ? AND tx_hash = ? AND from_address = ? AND to_address = ? AND raw_amount = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query,
		r.TokenAddress, r.TxHash, r.FromAddress, r.ToAddress, r.RawAmount,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func transferKey(r *domain.TransferRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", r.TokenAddress, r.TxHash, r.FromAddress, r.ToAddress, r.RawAmount)
}

func scanTransfers(rows driver.Rows) ([]*domain.TransferRecord, error) {
	var result []*domain.TransferRecord
	for rows.Next() {
		var (
			r         domain.TransferRecord
			value     float64
			blockTime uint64
		)
		if err := rows.Scan(
			&r.TokenAddress, &r.TxHash, &r.FromAddress, &r.ToAddress,
			&r.RawAmount, &r.Decimals, &value, &r.HasValueUSD, &blockTime,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		r.Timestamp = int64(blockTime)
		if r.HasValueUSD {
			r.ValueUSD = decimal.NewFromFloat(value)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return result, nil
}
