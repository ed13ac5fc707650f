// Package orchestrator provides end-to-end run orchestration.
// It coordinates: crawl → token metadata → flow analysis → persistence,
// and always produces a best-effort report: a failed crawl downgrades the
// report to partial instead of suppressing it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/crawler"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/flow"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/storage"
)

// Crawler fetches the full transfer set for one token.
type Crawler interface {
	Crawl(ctx context.Context, p crawler.Params) (*crawler.Result, error)
}

// MetaFetcher resolves token metadata. Metadata is decoration; a failure
// never fails the run.
type MetaFetcher interface {
	TokenMeta(ctx context.Context, address string) (*domain.TokenMeta, error)
}

// Orchestrator coordinates one analysis run per token address.
type Orchestrator struct {
	crawler Crawler
	meta    MetaFetcher

	transferStore  storage.TransferStore
	tokenMetaStore storage.TokenMetaStore

	flowOptions flow.Options
	verbose     bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Required
	Crawler Crawler

	// Optional collaborators; nil disables the corresponding phase.
	Meta           MetaFetcher
	TransferStore  storage.TransferStore
	TokenMetaStore storage.TokenMetaStore

	FlowOptions flow.Options
	Verbose     bool
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Crawler == nil {
		return nil, errors.New("orchestrator: crawler is required")
	}
	return &Orchestrator{
		crawler:        opts.Crawler,
		meta:           opts.Meta,
		transferStore:  opts.TransferStore,
		tokenMetaStore: opts.TokenMetaStore,
		flowOptions:    opts.FlowOptions,
		verbose:        opts.Verbose,
	}, nil
}

// RunResult contains results from one orchestrated run.
type RunResult struct {
	Report       *domain.FlowReport
	Records      []domain.TransferRecord
	PagesFetched int
	Refreshes    int
	Stored       int
	CrawlErr     error    // the crawl failure behind a partial report, nil when complete
	Errors       []string // non-fatal issues (metadata, persistence)
}

// Run executes the full pipeline for one token.
// Phases:
//  1. Crawl all transfer pages
//  2. Fetch token metadata (best effort)
//  3. Analyze flows
//  4. Persist records and metadata (best effort)
//
// A crawl failure that carries partial records still yields a report,
// marked partial with the failure reason. Only failures with no usable
// data at all (bad parameters, cancelled before page 1) return an error.
func (o *Orchestrator) Run(ctx context.Context, p crawler.Params) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: crawl
	o.log("Phase 1: crawling transfers for %s...", p.Address)
	records, partialReason, err := o.crawl(ctx, p, result)
	if err != nil {
		return nil, err
	}
	result.Records = records
	o.log("  Fetched %d records", len(records))

	// Phase 2: token metadata
	var meta *domain.TokenMeta
	if o.meta != nil {
		o.log("Phase 2: fetching token metadata...")
		meta, err = o.meta.TokenMeta(ctx, p.Address)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("token metadata: %v", err))
			meta = nil
		}
	}

	// Phase 3: analysis, never skipped. Supply from the metadata fetch
	// enables address tiering.
	o.log("Phase 3: analyzing flows...")
	flowOpts := o.flowOptions
	if meta != nil && meta.HasSupply {
		flowOpts.Supply = meta.Supply
	}
	report := flow.Analyze(records, flowOpts)
	report.Token = meta
	if partialReason != "" {
		report.Completeness = domain.CompletenessPartial
		report.PartialReason = partialReason
	} else {
		report.Completeness = domain.CompletenessFull
	}
	result.Report = report
	o.log("  Aggregated %d addresses", len(report.Stats))

	// Phase 4: persistence
	if o.transferStore != nil {
		o.log("Phase 4: persisting records...")
		stored, persistErrs := o.persist(ctx, records)
		result.Stored = stored
		result.Errors = append(result.Errors, persistErrs...)
		o.log("  Stored %d records (%d errors)", stored, len(persistErrs))
	}
	if o.tokenMetaStore != nil && meta != nil {
		if err := o.tokenMetaStore.Insert(ctx, meta); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			result.Errors = append(result.Errors, fmt.Sprintf("store metadata: %v", err))
		}
	}

	return result, nil
}

// crawl runs the fetch phase and classifies the outcome. A failure kind
// that carries partial records is downgraded to a partial-report reason.
func (o *Orchestrator) crawl(ctx context.Context, p crawler.Params, result *RunResult) ([]domain.TransferRecord, string, error) {
	crawled, err := o.crawler.Crawl(ctx, p)
	if err == nil {
		result.PagesFetched = crawled.PagesFetched
		result.Refreshes = crawled.Refreshes
		return crawled.Records, "", nil
	}

	records, reason, ok := crawler.PartialRecords(err)
	if !ok {
		return nil, "", fmt.Errorf("crawl %s: %w", p.Address, err)
	}

	result.PagesFetched, result.Refreshes, _ = crawler.PartialProgress(err)
	result.CrawlErr = err
	o.log("  Crawl failed (%s), continuing with %d partial records", reason, len(records))
	return records, reason, nil
}

// persist inserts records one by one, skipping duplicates so re-runs over
// an already-stored window stay idempotent.
func (o *Orchestrator) persist(ctx context.Context, records []domain.TransferRecord) (int, []string) {
	var stored int
	var errs []string

	for i := range records {
		err := o.transferStore.Insert(ctx, &records[i])
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			errs = append(errs, fmt.Sprintf("store %s: %v", records[i].TxHash, err))
			continue
		}
		stored++
	}

	return stored, errs
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
