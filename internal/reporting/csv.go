package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// RenderStatsCSV renders the full per-address stat mapping as a CSV string,
// sorted by address for deterministic output.
func RenderStatsCSV(stats map[string]domain.AddressFlowStat) string {
	var sb strings.Builder

	sb.WriteString("address,total_in,total_out,net_flow,in_tx_count,out_tx_count,tier\n")

	addrs := make([]string, 0, len(stats))
	for addr := range stats {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		s := stats[addr]
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%s\n",
			s.Address,
			s.TotalIn,
			s.TotalOut,
			s.NetFlow,
			s.InTxCount,
			s.OutTxCount,
			s.Tier,
		))
	}

	return sb.String()
}

// RenderLeaderboardCSV renders one leaderboard in ranked order.
func RenderLeaderboardCSV(board []domain.AddressFlowStat) string {
	var sb strings.Builder

	sb.WriteString("rank,address,net_flow,total_in,total_out,in_tx_count,out_tx_count,tier\n")
	for i, s := range board {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%d,%d,%s\n",
			i+1,
			s.Address,
			s.NetFlow,
			s.TotalIn,
			s.TotalOut,
			s.InTxCount,
			s.OutTxCount,
			s.Tier,
		))
	}

	return sb.String()
}

// RenderTransfersCSV renders raw transfer records, one row per record.
// Records without a USD value get an empty value_usd column, not zero.
func RenderTransfersCSV(records []domain.TransferRecord) string {
	var sb strings.Builder

	sb.WriteString("tx_hash,block_time,from_address,to_address,amount,value_usd\n")
	for _, r := range records {
		value := ""
		if r.HasValueUSD {
			value = r.ValueUSD.String()
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s\n",
			r.TxHash,
			r.Timestamp,
			r.FromAddress,
			r.ToAddress,
			r.Amount(),
			value,
		))
	}

	return sb.String()
}
