package domain

import "github.com/shopspring/decimal"

// TransferRecord represents one token transfer event as reported by the
// upstream explorer API. Records are created by the crawler from wire
// responses and never mutated afterwards.
type TransferRecord struct {
	TxHash       string          // transaction signature
	TokenAddress string          // mint of the transferred token
	Timestamp    int64           // Unix timestamp in seconds
	FromAddress  string          // sender token account owner
	ToAddress    string          // receiver token account owner
	RawAmount    int64           // amount in the token's smallest unit, >= 0
	Decimals     int32           // token decimals, >= 0
	ValueUSD     decimal.Decimal // USD value at transfer time
	HasValueUSD  bool            // false when upstream reported no USD value
}

// Amount returns the human-readable token amount (raw / 10^decimals).
func (r *TransferRecord) Amount() decimal.Decimal {
	return decimal.New(r.RawAmount, -r.Decimals)
}

// IsSelfTransfer reports whether sender and receiver are the same address.
// Self-transfers are kept in the record set but excluded from net-flow
// netting, both sides cancel.
func (r *TransferRecord) IsSelfTransfer() bool {
	return r.FromAddress == r.ToAddress
}

// PageResult is the outcome of one page fetch attempt.
type PageResult struct {
	PageNumber int
	Records    []TransferRecord
	IsBlocked  bool // anti-bot challenge detected
	IsLastPage bool // empty body, no further pages
}

// TokenMeta describes the token whose transfers are being analyzed.
type TokenMeta struct {
	Address   string
	Name      string
	Symbol    string
	Decimals  int32
	SupplyRaw decimal.Decimal // smallest units
	Supply    decimal.Decimal // human units
	HasSupply bool
}
