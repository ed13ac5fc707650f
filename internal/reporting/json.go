package reporting

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// jsonReport is the serialized shape of a flow report. Decimals are
// rendered as strings so consumers never round-trip through float64.
type jsonReport struct {
	GeneratedAt   string         `json:"generated_at"`
	Token         *jsonToken     `json:"token,omitempty"`
	Completeness  string         `json:"completeness"`
	PartialReason string         `json:"partial_reason,omitempty"`
	Summary       jsonSummary    `json:"summary"`
	NetInflow     []jsonFlowStat `json:"top_net_inflow"`
	NetOutflow    []jsonFlowStat `json:"top_net_outflow"`
	GrossInflow   []jsonFlowStat `json:"top_gross_inflow"`
	GrossOutflow  []jsonFlowStat `json:"top_gross_outflow"`
	Stats         []jsonFlowStat `json:"stats"`
}

type jsonToken struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int32  `json:"decimals"`
	Supply   string `json:"supply,omitempty"`
}

type jsonSummary struct {
	TotalRecords    int            `json:"total_records"`
	UniqueSenders   int            `json:"unique_senders"`
	UniqueReceivers int            `json:"unique_receivers"`
	EarliestTime    int64          `json:"earliest_time"`
	LatestTime      int64          `json:"latest_time"`
	TotalAmount     string         `json:"total_amount"`
	MinAmount       string         `json:"min_amount"`
	MaxAmount       string         `json:"max_amount"`
	MeanAmount      string         `json:"mean_amount"`
	MedianAmount    string         `json:"median_amount"`
	TotalValueUSD   string         `json:"total_value_usd"`
	MeanValueUSD    string         `json:"mean_value_usd"`
	MedianValueUSD  string         `json:"median_value_usd"`
	ValuedRecords   int            `json:"valued_records"`
	TopSenders      []jsonActivity `json:"top_senders"`
	TopReceivers    []jsonActivity `json:"top_receivers"`
}

type jsonActivity struct {
	Address string `json:"address"`
	TxCount int    `json:"tx_count"`
}

type jsonFlowStat struct {
	Address    string `json:"address"`
	TotalIn    string `json:"total_in"`
	TotalOut   string `json:"total_out"`
	NetFlow    string `json:"net_flow"`
	InTxCount  int    `json:"in_tx_count"`
	OutTxCount int    `json:"out_tx_count"`
	Tier       string `json:"tier,omitempty"`
}

// RenderJSON renders a flow report as indented JSON.
func RenderJSON(r *domain.FlowReport, generatedAt time.Time) ([]byte, error) {
	out := jsonReport{
		GeneratedAt:   generatedAt.UTC().Format(time.RFC3339),
		Completeness:  string(r.Completeness),
		PartialReason: r.PartialReason,
		Summary: jsonSummary{
			TotalRecords:    r.Summary.TotalRecords,
			UniqueSenders:   r.Summary.UniqueSenders,
			UniqueReceivers: r.Summary.UniqueReceivers,
			EarliestTime:    r.Summary.EarliestTime,
			LatestTime:      r.Summary.LatestTime,
			TotalAmount:     r.Summary.TotalAmount.String(),
			MinAmount:       r.Summary.MinAmount.String(),
			MaxAmount:       r.Summary.MaxAmount.String(),
			MeanAmount:      r.Summary.MeanAmount.String(),
			MedianAmount:    r.Summary.MedianAmount.String(),
			TotalValueUSD:   r.Summary.TotalValueUSD.String(),
			MeanValueUSD:    r.Summary.MeanValueUSD.String(),
			MedianValueUSD:  r.Summary.MedianValueUSD.String(),
			ValuedRecords:   r.Summary.ValuedRecords,
			TopSenders:      toJSONActivity(r.Summary.TopSenders),
			TopReceivers:    toJSONActivity(r.Summary.TopReceivers),
		},
		NetInflow:    toJSONStats(r.TopNetInflow),
		NetOutflow:   toJSONStats(r.TopNetOutflow),
		GrossInflow:  toJSONStats(r.TopGrossInflow),
		GrossOutflow: toJSONStats(r.TopGrossOutflow),
		Stats:        statsToSorted(r.Stats),
	}

	if r.Token != nil {
		out.Token = &jsonToken{
			Address:  r.Token.Address,
			Name:     r.Token.Name,
			Symbol:   r.Token.Symbol,
			Decimals: r.Token.Decimals,
		}
		if r.Token.HasSupply {
			out.Token.Supply = r.Token.Supply.String()
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

func toJSONStats(board []domain.AddressFlowStat) []jsonFlowStat {
	out := make([]jsonFlowStat, len(board))
	for i, s := range board {
		out[i] = jsonFlowStat{
			Address:    s.Address,
			TotalIn:    s.TotalIn.String(),
			TotalOut:   s.TotalOut.String(),
			NetFlow:    s.NetFlow.String(),
			InTxCount:  s.InTxCount,
			OutTxCount: s.OutTxCount,
			Tier:       string(s.Tier),
		}
	}
	return out
}

func toJSONActivity(board []domain.AddressActivity) []jsonActivity {
	out := make([]jsonActivity, len(board))
	for i, a := range board {
		out[i] = jsonActivity{Address: a.Address, TxCount: a.TxCount}
	}
	return out
}

func statsToSorted(stats map[string]domain.AddressFlowStat) []jsonFlowStat {
	addrs := make([]string, 0, len(stats))
	for addr := range stats {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	out := make([]jsonFlowStat, 0, len(addrs))
	for _, addr := range addrs {
		s := stats[addr]
		out = append(out, jsonFlowStat{
			Address:    s.Address,
			TotalIn:    s.TotalIn.String(),
			TotalOut:   s.TotalOut.String(),
			NetFlow:    s.NetFlow.String(),
			InTxCount:  s.InTxCount,
			OutTxCount: s.OutTxCount,
			Tier:       string(s.Tier),
		})
	}
	return out
}
