// Package flow aggregates transfer records into per-address net-flow
// statistics and leaderboards. Analysis is a pure computation: it never
// fails on well-formed input and an empty record set yields a zero report.
package flow

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// DefaultLimit is the leaderboard display limit.
const DefaultLimit = 20

// DefaultActivityLimit is the sender/receiver activity ranking limit.
const DefaultActivityLimit = 10

// Options control report shape. Zero values take defaults.
type Options struct {
	Limit         int // leaderboard truncation
	ActivityLimit int // top sender/receiver ranking truncation

	// Supply is the token supply in human units. When positive, each
	// address stat gets a tier label; when zero, tiers stay empty.
	Supply decimal.Decimal
}

// Analyze builds a FlowReport from the record set. Completeness is left at
// its zero value; the caller stamps it from the crawl outcome.
func Analyze(records []domain.TransferRecord, opts Options) *domain.FlowReport {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = DefaultActivityLimit
	}

	stats := computeStats(records)
	if opts.Supply.IsPositive() {
		for addr, s := range stats {
			s.Tier = ClassifyAddress(s, opts.Supply)
			stats[addr] = s
		}
	}

	report := &domain.FlowReport{
		Summary: computeSummary(records, opts.ActivityLimit),
		Stats:   stats,
	}

	report.TopNetInflow = leaderboard(report.Stats, opts.Limit,
		func(s domain.AddressFlowStat) decimal.Decimal { return s.NetFlow },
		func(s domain.AddressFlowStat) bool { return s.NetFlow.IsPositive() })
	report.TopNetOutflow = leaderboard(report.Stats, opts.Limit,
		func(s domain.AddressFlowStat) decimal.Decimal { return s.NetFlow.Neg() },
		func(s domain.AddressFlowStat) bool { return s.NetFlow.IsNegative() })
	report.TopGrossInflow = leaderboard(report.Stats, opts.Limit,
		func(s domain.AddressFlowStat) decimal.Decimal { return s.TotalIn },
		func(s domain.AddressFlowStat) bool { return s.InTxCount > 0 })
	report.TopGrossOutflow = leaderboard(report.Stats, opts.Limit,
		func(s domain.AddressFlowStat) decimal.Decimal { return s.TotalOut },
		func(s domain.AddressFlowStat) bool { return s.OutTxCount > 0 })

	return report
}

// computeSummary is pass 1: whole-set statistics. Self-transfers count here.
func computeSummary(records []domain.TransferRecord, activityLimit int) domain.FlowSummary {
	summary := domain.FlowSummary{TotalRecords: len(records)}
	if len(records) == 0 {
		return summary
	}

	senders := make(map[string]int)
	receivers := make(map[string]int)
	amounts := make([]decimal.Decimal, 0, len(records))
	values := make([]decimal.Decimal, 0, len(records))

	summary.EarliestTime = records[0].Timestamp
	summary.LatestTime = records[0].Timestamp
	summary.MinAmount = records[0].Amount()
	summary.MaxAmount = records[0].Amount()

	for _, r := range records {
		senders[r.FromAddress]++
		receivers[r.ToAddress]++

		if r.Timestamp < summary.EarliestTime {
			summary.EarliestTime = r.Timestamp
		}
		if r.Timestamp > summary.LatestTime {
			summary.LatestTime = r.Timestamp
		}

		amount := r.Amount()
		if amount.LessThan(summary.MinAmount) {
			summary.MinAmount = amount
		}
		if amount.GreaterThan(summary.MaxAmount) {
			summary.MaxAmount = amount
		}
		summary.TotalAmount = summary.TotalAmount.Add(amount)
		amounts = append(amounts, amount)

		if r.HasValueUSD {
			summary.TotalValueUSD = summary.TotalValueUSD.Add(r.ValueUSD)
			values = append(values, r.ValueUSD)
		}
	}

	summary.UniqueSenders = len(senders)
	summary.UniqueReceivers = len(receivers)
	summary.ValuedRecords = len(values)

	summary.MeanAmount = summary.TotalAmount.Div(decimal.NewFromInt(int64(len(records))))
	summary.MedianAmount = median(amounts)

	if len(values) > 0 {
		summary.MeanValueUSD = summary.TotalValueUSD.Div(decimal.NewFromInt(int64(len(values))))
		summary.MedianValueUSD = median(values)
	}

	summary.TopSenders = topActivity(senders, activityLimit)
	summary.TopReceivers = topActivity(receivers, activityLimit)

	return summary
}

// computeStats is pass 2: per-address netting. Self-transfers touch neither
// side so they cannot distort net flow.
func computeStats(records []domain.TransferRecord) map[string]domain.AddressFlowStat {
	stats := make(map[string]domain.AddressFlowStat)

	for _, r := range records {
		if r.IsSelfTransfer() {
			continue
		}
		amount := r.Amount()

		out := stats[r.FromAddress]
		out.Address = r.FromAddress
		out.TotalOut = out.TotalOut.Add(amount)
		out.OutTxCount++
		stats[r.FromAddress] = out

		in := stats[r.ToAddress]
		in.Address = r.ToAddress
		in.TotalIn = in.TotalIn.Add(amount)
		in.InTxCount++
		stats[r.ToAddress] = in
	}

	for addr, s := range stats {
		s.NetFlow = s.TotalIn.Sub(s.TotalOut)
		stats[addr] = s
	}

	return stats
}

// leaderboard ranks the addresses passing keep by key descending, ties
// broken by address lexical order, truncated to limit.
func leaderboard(stats map[string]domain.AddressFlowStat, limit int,
	key func(domain.AddressFlowStat) decimal.Decimal,
	keep func(domain.AddressFlowStat) bool) []domain.AddressFlowStat {

	ranked := make([]domain.AddressFlowStat, 0, len(stats))
	for _, s := range stats {
		if keep(s) {
			ranked = append(ranked, s)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		cmp := key(ranked[i]).Cmp(key(ranked[j]))
		if cmp != 0 {
			return cmp > 0
		}
		return ranked[i].Address < ranked[j].Address
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func topActivity(counts map[string]int, limit int) []domain.AddressActivity {
	ranked := make([]domain.AddressActivity, 0, len(counts))
	for addr, n := range counts {
		ranked = append(ranked, domain.AddressActivity{Address: addr, TxCount: n})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TxCount != ranked[j].TxCount {
			return ranked[i].TxCount > ranked[j].TxCount
		}
		return ranked[i].Address < ranked[j].Address
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// median of a decimal set. The input slice is not modified.
func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
