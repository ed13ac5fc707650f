package solscan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// transferResponse is the raw API response for /v2/token/transfer.
type transferResponse struct {
	Success bool               `json:"success"`
	Data    []transferWireItem `json:"data"`
}

// transferWireItem is one transfer object on the wire.
type transferWireItem struct {
	TransID       string   `json:"trans_id"`
	BlockTime     int64    `json:"block_time"`
	FromAddress   string   `json:"from_address"`
	ToAddress     string   `json:"to_address"`
	Amount        int64    `json:"amount"`
	TokenDecimals int32    `json:"token_decimals"`
	Value         *float64 `json:"value"` // USD, null when unpriced
	TokenAddress  string   `json:"token_address"`
}

// toDomain validates the wire object against the record invariants and
// converts it. Records without a USD value are kept, never filtered.
func (w *transferWireItem) toDomain() (domain.TransferRecord, error) {
	if w.TransID == "" {
		return domain.TransferRecord{}, fmt.Errorf("missing trans_id")
	}
	if w.FromAddress == "" || w.ToAddress == "" {
		return domain.TransferRecord{}, fmt.Errorf("missing from/to address on %s", w.TransID)
	}
	if w.Amount < 0 {
		return domain.TransferRecord{}, fmt.Errorf("negative amount %d on %s", w.Amount, w.TransID)
	}
	if w.TokenDecimals < 0 {
		return domain.TransferRecord{}, fmt.Errorf("negative decimals %d on %s", w.TokenDecimals, w.TransID)
	}

	rec := domain.TransferRecord{
		TxHash:       w.TransID,
		TokenAddress: w.TokenAddress,
		Timestamp:    w.BlockTime,
		FromAddress:  w.FromAddress,
		ToAddress:    w.ToAddress,
		RawAmount:    w.Amount,
		Decimals:     w.TokenDecimals,
	}
	if w.Value != nil {
		rec.ValueUSD = decimal.NewFromFloat(*w.Value)
		rec.HasValueUSD = true
	}
	return rec, nil
}

// accountResponse is the raw API response for /v2/account?view_as=token.
type accountResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TokenInfo struct {
			Name     string `json:"name"`
			Symbol   string `json:"symbol"`
			Decimals int32  `json:"decimals"`
			Supply   string `json:"supply"` // smallest units, may be empty
		} `json:"tokenInfo"`
	} `json:"data"`
}

func (r *accountResponse) toDomain(address string) (*domain.TokenMeta, error) {
	info := r.Data.TokenInfo
	if info.Decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrMalformed, info.Decimals)
	}

	meta := &domain.TokenMeta{
		Address:  address,
		Name:     info.Name,
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
	}

	if info.Supply != "" {
		raw, err := decimal.NewFromString(info.Supply)
		if err != nil {
			return nil, fmt.Errorf("%w: supply %q: %v", ErrMalformed, info.Supply, err)
		}
		meta.SupplyRaw = raw
		meta.Supply = raw.Shift(-info.Decimals)
		meta.HasSupply = true
	}

	return meta, nil
}
