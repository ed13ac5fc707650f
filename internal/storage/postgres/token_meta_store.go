package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// TokenMetaStore implements storage.TokenMetaStore using PostgreSQL.
type TokenMetaStore struct {
	pool *Pool
}

// NewTokenMetaStore creates a new TokenMetaStore.
func NewTokenMetaStore(pool *Pool) *TokenMetaStore {
	return &TokenMetaStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetaStore = (*TokenMetaStore)(nil)

// Insert adds new metadata. Returns ErrDuplicateKey if the address exists.
func (s *TokenMetaStore) Insert(ctx context.Context, m *domain.TokenMeta) error {
	if m == nil || m.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_meta (
			address, name, symbol, decimals, supply_raw
		) VALUES ($1, $2, $3, $4, $5::numeric)
	`

	var supply *string
	if m.HasSupply {
		v := m.SupplyRaw.String()
		supply = &v
	}

	_, err := s.pool.Exec(ctx, query,
		m.Address,
		m.Name,
		m.Symbol,
		m.Decimals,
		supply,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token meta: %w", err)
	}
	return nil
}

// GetByAddress retrieves metadata by mint address. Returns ErrNotFound if
// not exists.
func (s *TokenMetaStore) GetByAddress(ctx context.Context, address string) (*domain.TokenMeta, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT address, name, symbol, decimals, supply_raw::text
		FROM token_meta
		WHERE address = $1
	`

	var m domain.TokenMeta
	var supply *string

	row := s.pool.QueryRow(ctx, query, address)
	err := row.Scan(&m.Address, &m.Name, &m.Symbol, &m.Decimals, &supply)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token meta: %w", err)
	}

	if supply != nil {
		raw, err := decimal.NewFromString(*supply)
		if err != nil {
			return nil, fmt.Errorf("parse supply_raw %q: %w", *supply, err)
		}
		m.SupplyRaw = raw
		m.Supply = raw.Shift(-m.Decimals)
		m.HasSupply = true
	}

	return &m, nil
}
