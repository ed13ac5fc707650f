package storage

import (
	"context"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// TransferStore provides access to transfer record storage.
type TransferStore interface {
	// Insert adds a new transfer. Returns ErrDuplicateKey if the
	// (token_address, tx_hash, from_address, to_address, raw_amount)
	// combination exists.
	Insert(ctx context.Context, r *domain.TransferRecord) error

	// InsertBulk adds multiple transfers atomically. Fails the entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.TransferRecord) error

	// GetByToken retrieves all transfers for a token, ordered by
	// timestamp ASC, tx_hash ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TransferRecord, error)

	// GetByTimeRange retrieves transfers for a token within [start, end]
	// (inclusive), ordered by timestamp ASC, tx_hash ASC.
	GetByTimeRange(ctx context.Context, tokenAddress string, start, end int64) ([]*domain.TransferRecord, error)
}

// TokenMetaStore provides access to token metadata storage.
type TokenMetaStore interface {
	// Insert adds new metadata. Returns ErrDuplicateKey if the token
	// address exists.
	Insert(ctx context.Context, m *domain.TokenMeta) error

	// GetByAddress retrieves metadata by mint address. Returns
	// ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.TokenMeta, error)
}
