// Package main provides the offline analysis entry point.
// Reads previously stored transfers from PostgreSQL or ClickHouse and
// regenerates the flow report without touching the upstream API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/flow"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/reporting"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage/clickhouse"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage/postgres"
)

func main() {
	// Parse flags
	address := flag.String("address", "", "Token address to analyze (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN")
	fromTime := flag.Int64("from", 0, "Window start as Unix seconds (0 for open)")
	toTime := flag.Int64("to", 0, "Window end as Unix seconds (0 for open)")
	limit := flag.Int("limit", 0, "Leaderboard size (default 20)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated reports")
	flag.Parse()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "Usage: analyze -address <mint> (-postgres-dsn <dsn> | -clickhouse-dsn <dsn>)")
		os.Exit(1)
	}
	if (*postgresDSN == "") == (*clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Exactly one of -postgres-dsn and -clickhouse-dsn is required")
		os.Exit(1)
	}

	ctx := context.Background()

	transferStore, tokenMetaStore, closeStores, err := openStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStores()

	records, err := loadTransfers(ctx, transferStore, *address, *fromTime, *toTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading transfers: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No stored transfers for %s in the requested window\n", *address)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d transfers for %s\n", len(records), *address)

	// Metadata is optional; analysis of a token crawled without it still
	// works, just without supply-based address tiers.
	var meta *domain.TokenMeta
	if tokenMetaStore != nil {
		if m, err := tokenMetaStore.GetByAddress(ctx, *address); err == nil {
			meta = m
		}
	}

	opts := flow.Options{Limit: *limit}
	if meta != nil && meta.HasSupply {
		opts.Supply = meta.Supply
	}
	report := flow.Analyze(records, opts)
	report.Token = meta
	report.Completeness = domain.CompletenessFull

	offCurve := 0
	for addr := range report.Stats {
		if !domain.IsOnCurve(addr) {
			offCurve++
		}
	}
	fmt.Printf("Participants: %d (%d program-derived)\n", len(report.Stats), offCurve)

	if err := writeReports(report, records, *address, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing reports: %v\n", err)
		os.Exit(1)
	}
}

// openStores connects to whichever backend the flags selected. The
// ClickHouse path has no token metadata table, so the meta store is nil
// there.
func openStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.TransferStore, storage.TokenMetaStore, func(), error) {
	if postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewTransferStore(pool), postgres.NewTokenMetaStore(pool), pool.Close, nil
	}

	conn, err := clickhouse.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing clickhouse connection: %v\n", err)
		}
	}
	return clickhouse.NewTransferStore(conn), nil, closeConn, nil
}

func loadTransfers(ctx context.Context, store storage.TransferStore, address string, from, to int64) ([]domain.TransferRecord, error) {
	var rows []*domain.TransferRecord
	var err error

	if from == 0 && to == 0 {
		rows, err = store.GetByToken(ctx, address)
	} else {
		if to == 0 {
			to = time.Now().Unix()
		}
		rows, err = store.GetByTimeRange(ctx, address, from, to)
	}
	if err != nil {
		return nil, err
	}

	records := make([]domain.TransferRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, *r)
	}
	return records, nil
}

func writeReports(report *domain.FlowReport, records []domain.TransferRecord, address, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	base := strings.ToLower(address)
	if len(base) > 12 {
		base = base[:12]
	}
	generatedAt := time.Now().UTC()

	md := reporting.RenderMarkdown(report, generatedAt)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_flow.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	jsonData, err := reporting.RenderJSON(report, generatedAt)
	if err != nil {
		return fmt.Errorf("render json report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, base+"_flow.json"), jsonData, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}

	stats := reporting.RenderStatsCSV(report.Stats)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_stats.csv"), []byte(stats), 0o644); err != nil {
		return fmt.Errorf("write stats csv: %w", err)
	}

	inflow := reporting.RenderLeaderboardCSV(report.TopNetInflow)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_net_inflow.csv"), []byte(inflow), 0o644); err != nil {
		return fmt.Errorf("write inflow csv: %w", err)
	}

	outflow := reporting.RenderLeaderboardCSV(report.TopNetOutflow)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_net_outflow.csv"), []byte(outflow), 0o644); err != nil {
		return fmt.Errorf("write outflow csv: %w", err)
	}

	transfers := reporting.RenderTransfersCSV(records)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_transfers.csv"), []byte(transfers), 0o644); err != nil {
		return fmt.Errorf("write transfers csv: %w", err)
	}

	fmt.Printf("Reports written to %s/%s_*\n", outputDir, base)
	return nil
}
