package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

func testTransfer(txHash string, timestamp int64) *domain.TransferRecord {
	return &domain.TransferRecord{
		TxHash:       txHash,
		TokenAddress: "mint1",
		Timestamp:    timestamp,
		FromAddress:  "alice",
		ToAddress:    "bob",
		RawAmount:    1500000,
		Decimals:     6,
	}
}

func TestTransferStore_InsertAndGet(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTransfer("sig1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByToken(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 transfer, got %d", len(result))
	}
	if result[0].TxHash != "sig1" {
		t.Errorf("TxHash mismatch: got %s", result[0].TxHash)
	}
	if result[0].RawAmount != 1500000 {
		t.Errorf("RawAmount mismatch: got %d", result[0].RawAmount)
	}
}

func TestTransferStore_DuplicateKey(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTransfer("sig1", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testTransfer("sig1", 1000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransferStore_SameTxDifferentPair(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	first := testTransfer("sig1", 1000)
	second := testTransfer("sig1", 1000)
	second.ToAddress = "carol"

	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	// Same transaction, different receiver: a distinct transfer.
	if err := store.Insert(ctx, second); err != nil {
		t.Errorf("Second insert failed: %v", err)
	}
}

func TestTransferStore_InsertBulkAtomic(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTransfer("sig1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	batch := []*domain.TransferRecord{
		testTransfer("sig2", 2000),
		testTransfer("sig1", 1000), // duplicate of existing
	}
	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Nothing from the failed batch may be visible.
	result, err := store.GetByToken(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("Expected 1 transfer after failed batch, got %d", len(result))
	}
}

func TestTransferStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.TransferRecord{
		testTransfer("sig1", 1000),
		testTransfer("sig1", 1000),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransferStore_GetByTokenOrdering(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.TransferRecord{
		testTransfer("sigC", 3000),
		testTransfer("sigA", 1000),
		testTransfer("sigB", 1000),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByToken(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}

	want := []string{"sigA", "sigB", "sigC"}
	if len(result) != len(want) {
		t.Fatalf("Expected %d transfers, got %d", len(want), len(result))
	}
	for i, w := range want {
		if result[i].TxHash != w {
			t.Errorf("Position %d: got %s, want %s", i, result[i].TxHash, w)
		}
	}
}

func TestTransferStore_GetByTimeRange(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.TransferRecord{
		testTransfer("sig1", 1000),
		testTransfer("sig2", 2000),
		testTransfer("sig3", 3000),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "mint1", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 transfers in range, got %d", len(result))
	}

	if _, err := store.GetByTimeRange(ctx, "mint1", 2000, 1000); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for inverted range, got %v", err)
	}
}

func TestTransferStore_InvalidInput(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.TransferRecord{TxHash: "sig1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing token, got %v", err)
	}
	if _, err := store.GetByToken(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty token, got %v", err)
	}
}

func TestTokenMetaStore_InsertAndGet(t *testing.T) {
	store := NewTokenMetaStore()
	ctx := context.Background()

	meta := &domain.TokenMeta{Address: "mint1", Name: "Spark", Symbol: "SPARK", Decimals: 6}
	if err := store.Insert(ctx, meta); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByAddress(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if got.Symbol != "SPARK" {
		t.Errorf("Symbol mismatch: got %s", got.Symbol)
	}

	if err := store.Insert(ctx, meta); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByAddress(ctx, "unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
