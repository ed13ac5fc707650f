// Package reporting renders flow reports for human and machine consumers.
// Renderers are pure: they format an already-computed report and never
// touch storage or the network.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// RenderMarkdown renders a flow report as a Markdown string.
func RenderMarkdown(r *domain.FlowReport, generatedAt time.Time) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Token Flow Report\n\n")
	if r.Token != nil {
		name := r.Token.Name
		if name == "" {
			name = r.Token.Address
		}
		sb.WriteString(fmt.Sprintf("Token: %s (%s)\n\n", name, r.Token.Symbol))
		sb.WriteString(fmt.Sprintf("Mint: `%s`\n\n", r.Token.Address))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))

	// Completeness always leads: a partial report must not read as a full one.
	if r.Completeness == domain.CompletenessPartial {
		sb.WriteString(fmt.Sprintf("**Partial report** (%s): leaderboards cover only the records fetched before the failure.\n\n", r.PartialReason))
	} else {
		sb.WriteString("Coverage: complete\n\n")
	}

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Transfers | %d |\n", s.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Unique Senders | %d |\n", s.UniqueSenders))
	sb.WriteString(fmt.Sprintf("| Unique Receivers | %d |\n", s.UniqueReceivers))
	sb.WriteString(fmt.Sprintf("| Total Amount | %s |\n", s.TotalAmount))
	sb.WriteString(fmt.Sprintf("| Mean Amount | %s |\n", s.MeanAmount))
	sb.WriteString(fmt.Sprintf("| Median Amount | %s |\n", s.MedianAmount))
	sb.WriteString(fmt.Sprintf("| Min / Max Amount | %s / %s |\n", s.MinAmount, s.MaxAmount))
	sb.WriteString(fmt.Sprintf("| Total Value (USD) | %s |\n", s.TotalValueUSD))
	sb.WriteString(fmt.Sprintf("| Mean Value (USD) | %s |\n", s.MeanValueUSD))
	sb.WriteString(fmt.Sprintf("| Median Value (USD) | %s |\n", s.MedianValueUSD))
	sb.WriteString(fmt.Sprintf("| Priced Transfers | %d |\n", s.ValuedRecords))
	if s.TotalRecords > 0 {
		sb.WriteString(fmt.Sprintf("| Time Range | %s to %s |\n",
			time.Unix(s.EarliestTime, 0).UTC().Format(time.RFC3339),
			time.Unix(s.LatestTime, 0).UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	writeFlowBoard(&sb, "Top Net Inflow", r.TopNetInflow)
	writeFlowBoard(&sb, "Top Net Outflow", r.TopNetOutflow)
	writeFlowBoard(&sb, "Top Gross Inflow", r.TopGrossInflow)
	writeFlowBoard(&sb, "Top Gross Outflow", r.TopGrossOutflow)

	writeActivityBoard(&sb, "Most Active Senders", s.TopSenders)
	writeActivityBoard(&sb, "Most Active Receivers", s.TopReceivers)

	return sb.String()
}

func writeFlowBoard(sb *strings.Builder, title string, board []domain.AddressFlowStat) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(board) == 0 {
		sb.WriteString("No entries.\n\n")
		return
	}

	sb.WriteString("| # | Address | Type | Net Flow | Total In | Total Out | In Txs | Out Txs |\n")
	sb.WriteString("|---|---------|------|----------|----------|-----------|--------|--------|\n")
	for i, stat := range board {
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %s | %s | %s | %s | %d | %d |\n",
			i+1, stat.Address, stat.Tier, stat.NetFlow, stat.TotalIn, stat.TotalOut,
			stat.InTxCount, stat.OutTxCount))
	}
	sb.WriteString("\n")
}

func writeActivityBoard(sb *strings.Builder, title string, board []domain.AddressActivity) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(board) == 0 {
		sb.WriteString("No entries.\n\n")
		return
	}

	sb.WriteString("| # | Address | Transfers |\n")
	sb.WriteString("|---|---------|-----------|\n")
	for i, a := range board {
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %d |\n", i+1, a.Address, a.TxCount))
	}
	sb.WriteString("\n")
}
