package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by composite key
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// transferKey generates a unique key for a transfer. A transaction can move
// the same token between several account pairs, so the pair and amount are
// part of the key.
func transferKey(r *domain.TransferRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", r.TokenAddress, r.TxHash, r.FromAddress, r.ToAddress, r.RawAmount)
}

// Insert adds a new transfer. Returns ErrDuplicateKey if exists.
func (s *TransferStore) Insert(_ context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TokenAddress == "" || r.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := transferKey(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(_ context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.TokenAddress == "" || r.TxHash == "" {
			return storage.ErrInvalidInput
		}
		key := transferKey(r)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert
	for _, r := range records {
		copy := *r
		s.data[transferKey(r)] = &copy
	}
	return nil
}

// GetByToken retrieves all transfers for a token, ordered by timestamp ASC, tx_hash ASC.
func (s *TransferStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.TransferRecord, error) {
	if tokenAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.TokenAddress == tokenAddress {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortTransfers(result)
	return result, nil
}

// GetByTimeRange retrieves transfers for a token within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(_ context.Context, tokenAddress string, start, end int64) ([]*domain.TransferRecord, error) {
	if tokenAddress == "" || start > end {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.TokenAddress == tokenAddress && r.Timestamp >= start && r.Timestamp <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortTransfers(result)
	return result, nil
}

func sortTransfers(records []*domain.TransferRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].TxHash < records[j].TxHash
	})
}
