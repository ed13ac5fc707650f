// Package main provides the standalone crawl entry point.
// Fetches the full transfer set for one token and writes it as CSV,
// without analysis or persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/clearance"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/config"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/crawler"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/reporting"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/solscan"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (defaults used when empty)")
	address := flag.String("address", "", "Token address to crawl (required)")
	output := flag.String("output", "", "Output CSV path (stdout when empty)")
	fromTime := flag.Int64("from", 0, "Window start as Unix seconds (0 for open)")
	toTime := flag.Int64("to", 0, "Window end as Unix seconds (0 for open)")
	minValue := flag.Int("min-value", 0, "Minimum per-record USD value filter (0 disables)")
	tokenFile := flag.String("token-file", "", "File to persist a refreshed clearance token into (not persisted when empty)")
	noRefresh := flag.Bool("no-refresh", false, "Fail immediately on an anti-bot block instead of refreshing the credential")
	flag.Parse()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "Usage: crawl -address <mint> [-config file] [-output file]")
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling crawl...\n", sig)
		cancel()
	}()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// A token file written by a previous run takes precedence over the
	// config value.
	if *tokenFile != "" {
		if data, err := os.ReadFile(*tokenFile); err == nil && len(data) > 0 {
			cfg.Credential.ClearanceToken = string(data)
		}
	}

	crawl, holder, err := createCrawler(cfg, *noRefresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating crawler: %v\n", err)
		os.Exit(1)
	}

	result, err := crawl.Crawl(ctx, crawler.Params{
		Address:     *address,
		FromTime:    *fromTime,
		ToTime:      *toTime,
		MinValueUSD: *minValue,
		PageSize:    cfg.Pagination.PageSize,
		MaxPages:    cfg.Pagination.MaxPages,
	})
	if err != nil {
		// A failed crawl may still carry everything fetched so far.
		records, reason, ok := crawler.PartialRecords(err)
		if !ok {
			fmt.Fprintf(os.Stderr, "Crawl error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Crawl stopped early (%s): %v\n", reason, err)
		fmt.Fprintf(os.Stderr, "Writing %d partial records\n", len(records))
		if err := writeCSV(*output, records); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		}
		flushToken(holder, *tokenFile)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Fetched %d records over %d pages (%d refreshes, %d transient retries)\n",
		len(result.Records), result.PagesFetched, result.Refreshes, result.TransientRetries)
	if result.SoftCapped {
		fmt.Fprintln(os.Stderr, "Page cap reached, more data may be available upstream")
	}

	if err := writeCSV(*output, result.Records); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	flushToken(holder, *tokenFile)
}

// flushToken carries a refreshed clearance token over to the next run.
func flushToken(holder *clearance.Holder, path string) {
	if path == "" {
		return
	}
	err := holder.Flush(func(token string) error {
		return os.WriteFile(path, []byte(token), 0o600)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error persisting clearance token: %v\n", err)
	}
}

func createCrawler(cfg *config.Config, noRefresh bool) (*crawler.Crawler, *clearance.Holder, error) {
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

	inner := clearance.Refresher(clearance.NewHTTPRefresher(cfg.API.Timeout, ""))
	if noRefresh {
		inner = clearance.Unavailable()
	}
	refresher := clearance.NewSerialRefresher(inner, holder)

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
	return crawl, holder, nil
}

func writeCSV(path string, records []domain.TransferRecord) error {
	csv := reporting.RenderTransfersCSV(records)
	if path == "" {
		_, err := os.Stdout.WriteString(csv)
		return err
	}
	return os.WriteFile(path, []byte(csv), 0o644)
}
