// Package crawler drives the paginated transfer fetch loop: strictly
// sequential pages, transient-error backoff, and anti-bot block recovery
// through credential refresh. All retry state lives in a per-call session,
// so a crawl can be repeated with identical parameters and no carryover.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/clearance"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/solscan"
)

// Default retry policy bounds.
const (
	DefaultMaxBlockRetry      = 3
	DefaultMaxTransient       = 5
	DefaultMalformedTolerance = 2
	DefaultBaseDelay          = 1 * time.Second
	DefaultMaxDelay           = 10 * time.Second
)

// PageFetcher is the slice of the API client the crawler needs.
type PageFetcher interface {
	TransferPage(ctx context.Context, q solscan.TransferQuery) (domain.PageResult, error)
}

// TokenRefresher obtains a fresh clearance token when the current one is
// rejected. Implementations must serialize concurrent refreshes.
type TokenRefresher interface {
	RefreshFor(ctx context.Context, targetURL, staleToken string) (string, error)
}

// Compile-time interface checks.
var (
	_ PageFetcher    = (*solscan.Client)(nil)
	_ TokenRefresher = (*clearance.SerialRefresher)(nil)
)

// Crawler fetches all transfer pages for one token address.
type Crawler struct {
	fetcher   PageFetcher
	refresher TokenRefresher
	holder    *clearance.Holder
	logger    *log.Logger

	targetURL          string
	maxBlockRetry      int
	maxTransient       int
	malformedTolerance int
	baseDelay          time.Duration
	maxDelay           time.Duration
	pageDelay          time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options for creating a Crawler. Fetcher is required; a nil Refresher
// disables block recovery (the first block fails the crawl).
type Options struct {
	Fetcher   PageFetcher
	Refresher TokenRefresher
	Holder    *clearance.Holder
	Logger    *log.Logger

	TargetURL          string // page the refresher warms up against
	MaxBlockRetry      int
	MaxTransient       int
	MalformedTolerance int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	PageDelay          time.Duration
}

// New creates a new Crawler.
func New(opts Options) (*Crawler, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("crawler: fetcher is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxBlockRetry <= 0 {
		opts.MaxBlockRetry = DefaultMaxBlockRetry
	}
	if opts.MaxTransient <= 0 {
		opts.MaxTransient = DefaultMaxTransient
	}
	if opts.MalformedTolerance <= 0 {
		opts.MalformedTolerance = DefaultMalformedTolerance
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}

	return &Crawler{
		fetcher:            opts.Fetcher,
		refresher:          opts.Refresher,
		holder:             opts.Holder,
		logger:             opts.Logger,
		targetURL:          opts.TargetURL,
		maxBlockRetry:      opts.MaxBlockRetry,
		maxTransient:       opts.MaxTransient,
		malformedTolerance: opts.MalformedTolerance,
		baseDelay:          opts.BaseDelay,
		maxDelay:           opts.MaxDelay,
		pageDelay:          opts.PageDelay,
		sleep:              sleepCtx,
	}, nil
}

// Params identifies one crawl: the token address plus the server-side
// filters and pagination bounds.
type Params struct {
	Address     string
	FromTime    int64 // Unix seconds, 0 to omit
	ToTime      int64
	MinValueUSD int // minimum per-record USD value, 0 to omit
	PageSize    int
	MaxPages    int // soft cap; reaching it is not an error
}

// Result is a completed crawl. Records are in upstream page order.
type Result struct {
	Records          []domain.TransferRecord
	PagesFetched     int
	Refreshes        int
	TransientRetries int
	MalformedPages   int
	SoftCapped       bool // stopped by MaxPages with data still available
}

// crawl loop states. Transitions are driven by the classified outcome of
// each page fetch, which keeps the retry bounds and the failure kind
// attribution in one place.
type state int

const (
	stateFetching state = iota
	stateBlockedRecovering
	stateTransientRetrying
	stateDone
	stateFailed
)

// session holds all mutable state of one Crawl call.
type session struct {
	params  Params
	page    int
	records []domain.TransferRecord

	blockAttempts     int // consecutive, reset on any successful page
	transientAttempts int // consecutive, reset on any successful page
	malformedTotal    int // cumulative over the whole crawl

	refreshes        int
	transientRetries int
	pagesFetched     int
	softCapped       bool

	lastErr error
	failure error
}

// Crawl fetches every transfer page for p.Address until natural exhaustion,
// the MaxPages soft cap, or an unrecoverable failure. On failure the
// returned error carries the records accumulated so far; they are never
// discarded.
func (c *Crawler) Crawl(ctx context.Context, p Params) (*Result, error) {
	if p.Address == "" {
		return nil, errors.New("crawler: address is required")
	}
	if !domain.IsValidAddress(p.Address) {
		return nil, fmt.Errorf("crawler: %q is not a valid address", p.Address)
	}
	if p.PageSize <= 0 {
		return nil, errors.New("crawler: page size must be positive")
	}

	s := &session{params: p, page: 1}
	st := stateFetching

	for st != stateDone && st != stateFailed {
		switch st {
		case stateFetching:
			st = c.fetchPage(ctx, s)
		case stateBlockedRecovering:
			st = c.recoverBlock(ctx, s)
		case stateTransientRetrying:
			st = c.retryTransient(ctx, s)
		}
	}

	if st == stateFailed {
		return nil, s.failure
	}

	return &Result{
		Records:          s.records,
		PagesFetched:     s.pagesFetched,
		Refreshes:        s.refreshes,
		TransientRetries: s.transientRetries,
		MalformedPages:   s.malformedTotal,
		SoftCapped:       s.softCapped,
	}, nil
}

// fetchPage performs one page request and classifies the outcome into the
// next state.
func (c *Crawler) fetchPage(ctx context.Context, s *session) state {
	if s.params.MaxPages > 0 && s.page > s.params.MaxPages {
		s.softCapped = true
		c.logger.Printf("[crawler] %s: page cap %d reached, stopping with %d records",
			s.params.Address, s.params.MaxPages, len(s.records))
		return stateDone
	}

	page, err := c.fetcher.TransferPage(ctx, solscan.TransferQuery{
		Address:     s.params.Address,
		Page:        s.page,
		PageSize:    s.params.PageSize,
		FromTime:    s.params.FromTime,
		ToTime:      s.params.ToTime,
		MinValueUSD: s.params.MinValueUSD,
	})

	switch {
	case err == nil && page.IsBlocked:
		c.logger.Printf("[crawler] %s: blocked on page %d", s.params.Address, s.page)
		return stateBlockedRecovering

	case err == nil:
		s.pagesFetched++
		s.blockAttempts = 0
		s.transientAttempts = 0
		s.records = append(s.records, page.Records...)
		if page.IsLastPage {
			c.logger.Printf("[crawler] %s: exhausted after page %d, %d records",
				s.params.Address, s.page, len(s.records))
			return stateDone
		}
		s.page++
		if c.pageDelay > 0 {
			if serr := c.sleep(ctx, c.pageDelay); serr != nil {
				s.failure = &ExhaustedError{Page: s.page, Attempts: s.transientRetries,
					PagesFetched: s.pagesFetched, Refreshes: s.refreshes, Records: s.records, Err: serr}
				return stateFailed
			}
		}
		return stateFetching

	case solscan.IsTransient(err):
		s.lastErr = err
		return stateTransientRetrying

	case errors.Is(err, solscan.ErrMalformed):
		s.malformedTotal++
		if s.malformedTotal > c.malformedTolerance {
			s.failure = &MalformedError{Page: s.page, Count: s.malformedTotal,
				PagesFetched: s.pagesFetched, Refreshes: s.refreshes, Records: s.records, Err: err}
			return stateFailed
		}
		// Single-page failure: skip it and keep going.
		c.logger.Printf("[crawler] %s: malformed response on page %d (%d/%d tolerated), skipping",
			s.params.Address, s.page, s.malformedTotal, c.malformedTolerance)
		s.page++
		return stateFetching

	default:
		// Context cancellation and everything unclassified.
		s.failure = &ExhaustedError{Page: s.page, Attempts: s.transientAttempts,
			PagesFetched: s.pagesFetched, Refreshes: s.refreshes, Records: s.records, Err: err}
		return stateFailed
	}
}

// recoverBlock swaps in a fresh clearance token and retries the same page.
func (c *Crawler) recoverBlock(ctx context.Context, s *session) state {
	s.blockAttempts++
	if s.blockAttempts > c.maxBlockRetry {
		s.failure = &BlockedError{
			Page:         s.page,
			PagesFetched: s.pagesFetched,
			Refreshes:    s.refreshes,
			Records:      s.records,
			Err:          fmt.Errorf("block recovery exhausted after %d attempts", c.maxBlockRetry),
		}
		return stateFailed
	}
	if c.refresher == nil {
		s.failure = &BlockedError{Page: s.page, PagesFetched: s.pagesFetched,
			Refreshes: s.refreshes, Records: s.records, Err: clearance.ErrRefreshUnavailable}
		return stateFailed
	}

	stale := ""
	if c.holder != nil {
		stale = c.holder.Token()
	}
	if _, err := c.refresher.RefreshFor(ctx, c.targetURL, stale); err != nil {
		// No bypass path exists: fail now instead of burning the
		// remaining attempts on the same answer.
		s.failure = &BlockedError{Page: s.page, PagesFetched: s.pagesFetched,
			Refreshes: s.refreshes, Records: s.records, Err: err}
		return stateFailed
	}
	s.refreshes++
	c.logger.Printf("[crawler] %s: clearance refreshed (attempt %d/%d), retrying page %d",
		s.params.Address, s.blockAttempts, c.maxBlockRetry, s.page)
	return stateFetching
}

// retryTransient sleeps the backoff delay and retries the same page.
func (c *Crawler) retryTransient(ctx context.Context, s *session) state {
	s.transientAttempts++
	if s.transientAttempts > c.maxTransient {
		s.failure = &ExhaustedError{Page: s.page, Attempts: s.transientAttempts - 1,
			PagesFetched: s.pagesFetched, Refreshes: s.refreshes, Records: s.records, Err: s.lastErr}
		return stateFailed
	}

	delay := backoffDelay(c.baseDelay, c.maxDelay, s.transientAttempts)
	c.logger.Printf("[crawler] %s: transient error on page %d (attempt %d/%d), retrying in %s: %v",
		s.params.Address, s.page, s.transientAttempts, c.maxTransient, delay, s.lastErr)
	if err := c.sleep(ctx, delay); err != nil {
		s.failure = &ExhaustedError{Page: s.page, Attempts: s.transientAttempts,
			PagesFetched: s.pagesFetched, Refreshes: s.refreshes, Records: s.records, Err: err}
		return stateFailed
	}
	s.transientRetries++
	return stateFetching
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
