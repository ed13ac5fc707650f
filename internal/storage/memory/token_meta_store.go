package memory

import (
	"context"
	"sync"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// TokenMetaStore is an in-memory implementation of storage.TokenMetaStore.
type TokenMetaStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenMeta // keyed by mint address
}

// NewTokenMetaStore creates a new in-memory token metadata store.
func NewTokenMetaStore() *TokenMetaStore {
	return &TokenMetaStore{
		data: make(map[string]*domain.TokenMeta),
	}
}

// Compile-time interface check.
var _ storage.TokenMetaStore = (*TokenMetaStore)(nil)

// Insert adds new metadata. Returns ErrDuplicateKey if the address exists.
func (s *TokenMetaStore) Insert(_ context.Context, m *domain.TokenMeta) error {
	if m == nil || m.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.Address]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *m
	s.data[m.Address] = &copy
	return nil
}

// GetByAddress retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetaStore) GetByAddress(_ context.Context, address string) (*domain.TokenMeta, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}
