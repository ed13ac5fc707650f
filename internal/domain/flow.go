package domain

import "github.com/shopspring/decimal"

// AddressFlowStat aggregates inbound and outbound transfer volume for a
// single address over the analyzed window. Amounts are in human token units.
// Built once per analysis run and read-only afterwards.
type AddressFlowStat struct {
	Address    string
	TotalIn    decimal.Decimal
	TotalOut   decimal.Decimal
	NetFlow    decimal.Decimal // TotalIn - TotalOut
	InTxCount  int
	OutTxCount int
	Tier       AddressTier // empty when token supply was unknown
}

// AddressTier classifies an address by the size of its net position
// relative to token supply and by how actively it traded. Whale moves are
// at least 0.1% of supply, large 0.05%, medium 0.01%. An address with ten
// or more transfers but near-zero net flow is treated as a market maker.
type AddressTier string

const (
	TierWhaleBuyer       AddressTier = "whale_buyer"
	TierWhaleSeller      AddressTier = "whale_seller"
	TierLargeBuyer       AddressTier = "large_buyer"
	TierLargeSeller      AddressTier = "large_seller"
	TierMediumBuyer      AddressTier = "medium_buyer"
	TierMediumSeller     AddressTier = "medium_seller"
	TierActiveBuyer      AddressTier = "active_buyer"
	TierActiveSeller     AddressTier = "active_seller"
	TierLargeMarketMaker AddressTier = "large_market_maker"
	TierMarketMaker      AddressTier = "market_maker"
	TierBuyer            AddressTier = "buyer"
	TierSeller           AddressTier = "seller"
	TierNeutral          AddressTier = "neutral"
)

// FlowSummary contains overall statistics over the full record set.
// Self-transfers count here even though they are excluded from netting.
type FlowSummary struct {
	TotalRecords    int
	UniqueSenders   int
	UniqueReceivers int
	EarliestTime    int64 // Unix seconds, 0 when empty
	LatestTime      int64
	TotalAmount     decimal.Decimal // human units
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	MeanAmount      decimal.Decimal
	MedianAmount    decimal.Decimal
	TotalValueUSD   decimal.Decimal // sum over records with a USD value
	MeanValueUSD    decimal.Decimal
	MedianValueUSD  decimal.Decimal
	ValuedRecords   int // records carrying a USD value

	// Activity ranking by transaction count.
	TopSenders   []AddressActivity
	TopReceivers []AddressActivity
}

// AddressActivity is one row of the sender/receiver activity ranking.
type AddressActivity struct {
	Address string
	TxCount int
}

// Completeness marks whether a report covers the full upstream record set.
type Completeness string

const (
	// CompletenessFull means the crawl terminated by natural exhaustion or
	// the max-pages soft cap.
	CompletenessFull Completeness = "complete"
	// CompletenessPartial means the crawl failed part-way and the report
	// covers only the records accumulated before the failure.
	CompletenessPartial Completeness = "partial"
)

// FlowReport is the full analysis artifact: overall summary, the four
// truncated leaderboards, and the complete per-address stat mapping for
// downstream consumers.
type FlowReport struct {
	Token   *TokenMeta // nil when metadata was not fetched
	Summary FlowSummary

	// Leaderboards, descending by their key, ties broken by address
	// lexical order, truncated to the display limit.
	TopNetInflow    []AddressFlowStat // NetFlow > 0
	TopNetOutflow   []AddressFlowStat // NetFlow < 0, most negative first
	TopGrossInflow  []AddressFlowStat
	TopGrossOutflow []AddressFlowStat

	// Stats is the full address -> stat mapping, never truncated.
	Stats map[string]AddressFlowStat

	Completeness  Completeness
	PartialReason string // failure kind when Completeness is partial
}
