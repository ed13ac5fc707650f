// Package main provides the full pipeline entry point.
// Executes: crawl → metadata → flow analysis → persistence → reporting
// for every target token in the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/clearance"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/config"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/crawler"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/flow"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/observability"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/orchestrator"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/reporting"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/solscan"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage/memory"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage/migrations"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (defaults used when empty)")
	address := flag.String("address", "", "Token address to crawl (overrides config targets)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated reports")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for persistence (in-memory when empty)")
	fromTime := flag.Int64("from", 0, "Window start as Unix seconds (0 for open)")
	toTime := flag.Int64("to", 0, "Window end as Unix seconds (0 for open)")
	minValue := flag.Int("min-value", 0, "Minimum per-record USD value filter (0 disables)")
	metricsAddr := flag.String("metrics-addr", "", "Address for the Prometheus metrics endpoint (disabled when empty)")
	tokenFile := flag.String("token-file", "", "File to persist a refreshed clearance token into (not persisted when empty)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	targets := cfg.Tokens
	if *address != "" {
		targets = []config.TargetToken{{Address: *address}}
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "No target tokens: pass -address or list target_tokens in the config")
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	transferStore, tokenMetaStore, closeStores, err := createStores(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer closeStores()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	// A token file written by a previous run takes precedence over the
	// config value.
	if *tokenFile != "" {
		if data, err := os.ReadFile(*tokenFile); err == nil && len(data) > 0 {
			cfg.Credential.ClearanceToken = string(data)
		}
	}

	orch, holder, err := createOrchestrator(cfg, transferStore, tokenMetaStore, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating orchestrator: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Token Flow Pipeline ===")
	window := crawler.Params{FromTime: *fromTime, ToTime: *toTime, MinValueUSD: *minValue}
	failures := 0
	for _, target := range targets {
		if err := runTarget(ctx, orch, cfg, target, window, *outputDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error for %s: %v\n", target.Address, err)
			failures++
		}
		if ctx.Err() != nil {
			break
		}
	}

	// The token may have been refreshed during recovery; carry it over to
	// the next run instead of burning a refresh on startup.
	if *tokenFile != "" {
		err := holder.Flush(func(token string) error {
			return os.WriteFile(*tokenFile, []byte(token), 0o600)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error persisting clearance token: %v\n", err)
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// createStores wires persistence. With a DSN the run persists to
// PostgreSQL (migrations applied first); without one everything stays
// in memory and is discarded at exit.
func createStores(ctx context.Context, dsn string) (storage.TransferStore, storage.TokenMetaStore, func(), error) {
	if dsn == "" {
		return memory.NewTransferStore(), memory.NewTokenMetaStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.NewTransferStore(pool), postgres.NewTokenMetaStore(pool), pool.Close, nil
}

func createOrchestrator(cfg *config.Config, transferStore storage.TransferStore, tokenMetaStore storage.TokenMetaStore, verbose bool) (*orchestrator.Orchestrator, *clearance.Holder, error) {
	holder := clearance.NewHolder(cfg.Credential.ClearanceToken)

	opts := []solscan.ClientOption{
		solscan.WithTimeout(cfg.API.Timeout),
		solscan.WithBlockStatusCodes(cfg.Block.StatusCodes),
		solscan.WithBlockSignatures(cfg.Block.BodySignatures),
	}
	if cfg.Credential.AuthToken != "" {
		opts = append(opts, solscan.WithAuthToken(cfg.Credential.AuthToken))
	}
	if cfg.Proxy.Enabled {
		proxyURL, err := url.Parse(cfg.Proxy.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse proxy url: %w", err)
		}
		opts = append(opts, solscan.WithProxy(proxyURL))
	}
	client := solscan.NewClient(cfg.API.BaseURL, holder, opts...)

	refresher := clearance.NewSerialRefresher(
		clearance.NewHTTPRefresher(cfg.API.Timeout, ""),
		holder,
	)

	crawl, err := crawler.New(crawler.Options{
		Fetcher:       client,
		Refresher:     refresher,
		Holder:        holder,
		TargetURL:     cfg.API.BaseURL,
		MaxBlockRetry: cfg.Retry.MaxBlockRetry,
		MaxTransient:  cfg.Retry.MaxTransient,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		PageDelay:     cfg.Pagination.PageDelay,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create crawler: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Crawler:        crawl,
		Meta:           client,
		TransferStore:  transferStore,
		TokenMetaStore: tokenMetaStore,
		FlowOptions:    flow.Options{},
		Verbose:        verbose,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create orchestrator: %w", err)
	}
	return orch, holder, nil
}

func runTarget(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, target config.TargetToken, window crawler.Params, outputDir string) error {
	label := target.Address
	if target.Symbol != "" {
		label = fmt.Sprintf("%s (%s)", target.Symbol, target.Address)
	}
	fmt.Printf("\n--- %s ---\n", label)

	started := time.Now()
	result, err := orch.Run(ctx, crawler.Params{
		Address:     target.Address,
		FromTime:    window.FromTime,
		ToTime:      window.ToTime,
		MinValueUSD: window.MinValueUSD,
		PageSize:    cfg.Pagination.PageSize,
		MaxPages:    cfg.Pagination.MaxPages,
	})
	if err != nil {
		observability.RecordCrawl("failed", time.Since(started).Seconds())
		return err
	}

	recordRunMetrics(result, time.Since(started))
	printRunSummary(result)

	return writeReports(result, target, outputDir)
}

// recordRunMetrics feeds the run counters into the Prometheus collectors.
func recordRunMetrics(result *orchestrator.RunResult, elapsed time.Duration) {
	outcome := "complete"
	if result.CrawlErr != nil {
		outcome = "partial"
	}
	observability.RecordCrawl(outcome, elapsed.Seconds())
	observability.RecordRecordsFetched(len(result.Records))
	for i := 0; i < result.Refreshes; i++ {
		observability.RecordRefresh("ok", 0)
	}
	observability.RecordReport(len(result.Report.Stats))
}

func printRunSummary(result *orchestrator.RunResult) {
	fmt.Printf("Run completed:\n")
	fmt.Printf("  Records:   %d\n", len(result.Records))
	fmt.Printf("  Pages:     %d\n", result.PagesFetched)
	fmt.Printf("  Addresses: %d\n", len(result.Report.Stats))
	fmt.Printf("  Stored:    %d\n", result.Stored)
	fmt.Printf("  Coverage:  %s\n", result.Report.Completeness)
	if result.CrawlErr != nil {
		fmt.Printf("  Crawl stopped early: %v\n", result.CrawlErr)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}

// writeReports renders the markdown, JSON and CSV artifacts for one run.
func writeReports(result *orchestrator.RunResult, target config.TargetToken, outputDir string) error {
	base := reportBaseName(target)
	generatedAt := time.Now().UTC()

	md := reporting.RenderMarkdown(result.Report, generatedAt)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_flow.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	jsonData, err := reporting.RenderJSON(result.Report, generatedAt)
	if err != nil {
		return fmt.Errorf("render json report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, base+"_flow.json"), jsonData, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}

	stats := reporting.RenderStatsCSV(result.Report.Stats)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_stats.csv"), []byte(stats), 0o644); err != nil {
		return fmt.Errorf("write stats csv: %w", err)
	}

	transfers := reporting.RenderTransfersCSV(result.Records)
	if err := os.WriteFile(filepath.Join(outputDir, base+"_transfers.csv"), []byte(transfers), 0o644); err != nil {
		return fmt.Errorf("write transfers csv: %w", err)
	}

	fmt.Printf("  Reports written to %s/%s_*\n", outputDir, base)
	return nil
}

func reportBaseName(target config.TargetToken) string {
	if target.Symbol != "" {
		return strings.ToLower(target.Symbol)
	}
	addr := target.Address
	if len(addr) > 12 {
		addr = addr[:12]
	}
	return strings.ToLower(addr)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	fmt.Printf("Metrics endpoint listening on %s/metrics\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "Metrics endpoint error: %v\n", err)
	}
}
