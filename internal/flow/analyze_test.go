package flow

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

func record(from, to string, rawAmount int64) domain.TransferRecord {
	return domain.TransferRecord{
		TxHash:      fmt.Sprintf("%s-%s-%d", from, to, rawAmount),
		Timestamp:   1756540000,
		FromAddress: from,
		ToAddress:   to,
		RawAmount:   rawAmount,
		Decimals:    6,
	}
}

func valuedRecord(from, to string, rawAmount int64, usd float64) domain.TransferRecord {
	r := record(from, to, rawAmount)
	r.ValueUSD = decimal.NewFromFloat(usd)
	r.HasValueUSD = true
	return r
}

func TestAnalyze_EmptyInput(t *testing.T) {
	report := Analyze(nil, Options{})

	if report.Summary.TotalRecords != 0 {
		t.Errorf("TotalRecords: got %d", report.Summary.TotalRecords)
	}
	if !report.Summary.TotalAmount.IsZero() || !report.Summary.TotalValueUSD.IsZero() {
		t.Error("expected zero totals")
	}
	if len(report.TopNetInflow) != 0 || len(report.TopNetOutflow) != 0 ||
		len(report.TopGrossInflow) != 0 || len(report.TopGrossOutflow) != 0 {
		t.Error("expected empty leaderboards")
	}
	if len(report.Stats) != 0 {
		t.Errorf("expected empty stats, got %d entries", len(report.Stats))
	}
}

func TestAnalyze_ConservationLaw(t *testing.T) {
	records := []domain.TransferRecord{
		record("alice", "bob", 5_000_000),
		record("bob", "carol", 2_000_000),
		record("carol", "alice", 1_500_000),
		record("alice", "carol", 3_250_000),
		record("dave", "dave", 9_000_000), // self-transfer, excluded from netting
	}

	report := Analyze(records, Options{})

	totalIn := decimal.Zero
	totalOut := decimal.Zero
	for _, s := range report.Stats {
		totalIn = totalIn.Add(s.TotalIn)
		totalOut = totalOut.Add(s.TotalOut)
	}
	if !totalIn.Equal(totalOut) {
		t.Errorf("conservation violated: in=%s out=%s", totalIn, totalOut)
	}

	// The self-transfer address must not appear in the netting at all.
	if _, ok := report.Stats["dave"]; ok {
		t.Error("self-transfer leaked into per-address stats")
	}
	// But it still counts in the overall summary.
	if report.Summary.TotalRecords != 5 {
		t.Errorf("TotalRecords: got %d, want 5", report.Summary.TotalRecords)
	}
	want := decimal.RequireFromString("20.75")
	if !report.Summary.TotalAmount.Equal(want) {
		t.Errorf("TotalAmount: got %s, want %s", report.Summary.TotalAmount, want)
	}
}

func TestAnalyze_NetLeaderboardsDisjointAndCover(t *testing.T) {
	records := []domain.TransferRecord{
		record("a", "b", 10_000_000),
		record("b", "c", 4_000_000),
		record("c", "a", 6_000_000),
		record("d", "e", 2_000_000),
		record("e", "d", 2_000_000), // d and e net to zero
	}

	report := Analyze(records, Options{})

	inflow := make(map[string]bool)
	for _, s := range report.TopNetInflow {
		if !s.NetFlow.IsPositive() {
			t.Errorf("%s on net-inflow board with NetFlow %s", s.Address, s.NetFlow)
		}
		inflow[s.Address] = true
	}
	for _, s := range report.TopNetOutflow {
		if !s.NetFlow.IsNegative() {
			t.Errorf("%s on net-outflow board with NetFlow %s", s.Address, s.NetFlow)
		}
		if inflow[s.Address] {
			t.Errorf("%s appears on both net boards", s.Address)
		}
	}

	// Together the boards cover exactly the nonzero net-flow addresses.
	covered := len(report.TopNetInflow) + len(report.TopNetOutflow)
	nonzero := 0
	for _, s := range report.Stats {
		if !s.NetFlow.IsZero() {
			nonzero++
		}
	}
	if covered != nonzero {
		t.Errorf("net boards cover %d addresses, want %d", covered, nonzero)
	}
}

func TestAnalyze_NetOutflowMostNegativeFirst(t *testing.T) {
	records := []domain.TransferRecord{
		record("big", "sink", 50_000_000),
		record("small", "sink", 1_000_000),
	}

	report := Analyze(records, Options{})

	if len(report.TopNetOutflow) != 2 {
		t.Fatalf("net-outflow entries: got %d, want 2", len(report.TopNetOutflow))
	}
	if report.TopNetOutflow[0].Address != "big" {
		t.Errorf("most negative first: got %s", report.TopNetOutflow[0].Address)
	}
}

func TestAnalyze_TieBrokenByAddressOrder(t *testing.T) {
	// zebra and apple receive identical amounts from distinct senders.
	records := []domain.TransferRecord{
		record("s1", "zebra", 7_000_000),
		record("s2", "apple", 7_000_000),
	}

	for run := 0; run < 10; run++ {
		report := Analyze(records, Options{})
		if len(report.TopNetInflow) != 2 {
			t.Fatalf("net-inflow entries: got %d", len(report.TopNetInflow))
		}
		if report.TopNetInflow[0].Address != "apple" || report.TopNetInflow[1].Address != "zebra" {
			t.Fatalf("run %d: tie not broken lexically: %s, %s",
				run, report.TopNetInflow[0].Address, report.TopNetInflow[1].Address)
		}
	}
}

func TestAnalyze_LeaderboardTruncation(t *testing.T) {
	var records []domain.TransferRecord
	for i := 0; i < 30; i++ {
		records = append(records, record(fmt.Sprintf("sender%02d", i), "sink", int64((i+1)*1_000_000)))
	}

	report := Analyze(records, Options{Limit: 5})

	if len(report.TopNetOutflow) != 5 {
		t.Errorf("truncation: got %d entries, want 5", len(report.TopNetOutflow))
	}
	// The full mapping is never truncated.
	if len(report.Stats) != 31 {
		t.Errorf("full stats: got %d entries, want 31", len(report.Stats))
	}
	// Largest outflow first.
	if report.TopNetOutflow[0].Address != "sender29" {
		t.Errorf("top outflow: got %s", report.TopNetOutflow[0].Address)
	}
}

func TestAnalyze_USDStatistics(t *testing.T) {
	records := []domain.TransferRecord{
		valuedRecord("a", "b", 1_000_000, 10),
		valuedRecord("b", "c", 1_000_000, 20),
		valuedRecord("c", "d", 1_000_000, 90),
		record("d", "e", 1_000_000), // null USD, excluded from value stats
	}

	report := Analyze(records, Options{})
	s := report.Summary

	if s.ValuedRecords != 3 {
		t.Errorf("ValuedRecords: got %d, want 3", s.ValuedRecords)
	}
	if !s.TotalValueUSD.Equal(decimal.NewFromInt(120)) {
		t.Errorf("TotalValueUSD: got %s, want 120", s.TotalValueUSD)
	}
	if !s.MeanValueUSD.Equal(decimal.NewFromInt(40)) {
		t.Errorf("MeanValueUSD: got %s, want 40", s.MeanValueUSD)
	}
	if !s.MedianValueUSD.Equal(decimal.NewFromInt(20)) {
		t.Errorf("MedianValueUSD: got %s, want 20", s.MedianValueUSD)
	}
}

func TestAnalyze_AmountStatistics(t *testing.T) {
	records := []domain.TransferRecord{
		record("a", "b", 1_000_000),  // 1
		record("b", "c", 2_000_000),  // 2
		record("c", "d", 3_000_000),  // 3
		record("d", "e", 10_000_000), // 10
	}

	report := Analyze(records, Options{})
	s := report.Summary

	if !s.MinAmount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("MinAmount: got %s, want 1", s.MinAmount)
	}
	if !s.MaxAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("MaxAmount: got %s, want 10", s.MaxAmount)
	}
	if !s.MeanAmount.Equal(decimal.NewFromInt(4)) {
		t.Errorf("MeanAmount: got %s, want 4", s.MeanAmount)
	}
	if !s.MedianAmount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("MedianAmount: got %s, want 2.5", s.MedianAmount)
	}
}

func TestAnalyze_MedianEvenCount(t *testing.T) {
	records := []domain.TransferRecord{
		valuedRecord("a", "b", 1_000_000, 10),
		valuedRecord("b", "c", 1_000_000, 30),
	}

	report := Analyze(records, Options{})
	if !report.Summary.MedianValueUSD.Equal(decimal.NewFromInt(20)) {
		t.Errorf("MedianValueUSD: got %s, want 20", report.Summary.MedianValueUSD)
	}
}

func TestAnalyze_ActivityRanking(t *testing.T) {
	records := []domain.TransferRecord{
		record("busy", "x", 1_000_000),
		record("busy", "y", 1_000_000),
		record("busy", "z", 1_000_000),
		record("quiet", "x", 1_000_000),
	}

	report := Analyze(records, Options{})

	if len(report.Summary.TopSenders) != 2 {
		t.Fatalf("TopSenders: got %d entries", len(report.Summary.TopSenders))
	}
	if report.Summary.TopSenders[0].Address != "busy" || report.Summary.TopSenders[0].TxCount != 3 {
		t.Errorf("top sender: %+v", report.Summary.TopSenders[0])
	}
	if report.Summary.UniqueSenders != 2 || report.Summary.UniqueReceivers != 3 {
		t.Errorf("unique counts: senders=%d receivers=%d", report.Summary.UniqueSenders, report.Summary.UniqueReceivers)
	}
}

func TestAnalyze_TimeBounds(t *testing.T) {
	early := record("a", "b", 1_000_000)
	early.Timestamp = 100
	late := record("b", "c", 1_000_000)
	late.Timestamp = 900
	mid := record("c", "a", 1_000_000)
	mid.Timestamp = 500

	report := Analyze([]domain.TransferRecord{mid, late, early}, Options{})

	if report.Summary.EarliestTime != 100 || report.Summary.LatestTime != 900 {
		t.Errorf("time bounds: got [%d, %d], want [100, 900]",
			report.Summary.EarliestTime, report.Summary.LatestTime)
	}
}

func TestAnalyze_GrossBoards(t *testing.T) {
	records := []domain.TransferRecord{
		record("hub", "a", 10_000_000),
		record("b", "hub", 4_000_000),
	}

	report := Analyze(records, Options{})

	// hub appears on both gross boards but only one net board.
	foundIn, foundOut := false, false
	for _, s := range report.TopGrossInflow {
		if s.Address == "hub" {
			foundIn = true
		}
	}
	for _, s := range report.TopGrossOutflow {
		if s.Address == "hub" {
			foundOut = true
		}
	}
	if !foundIn || !foundOut {
		t.Errorf("hub on gross boards: in=%v out=%v", foundIn, foundOut)
	}

	hub := report.Stats["hub"]
	if !hub.NetFlow.Equal(decimal.NewFromInt(-6)) {
		t.Errorf("hub net flow: got %s, want -6", hub.NetFlow)
	}
}
