package crawler

import (
	"errors"
	"fmt"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// BlockedError is returned when block recovery is exhausted or the refresh
// capability is unavailable. It carries everything accumulated before the
// block so callers can still analyze partial data.
type BlockedError struct {
	Page         int // page that kept coming back blocked
	PagesFetched int // pages completed before the failure
	Refreshes    int // refresh attempts spent this crawl
	Records      []domain.TransferRecord
	Err          error
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked on page %d after %d refresh attempts: %v", e.Page, e.Refreshes, e.Err)
}

func (e *BlockedError) Unwrap() error { return e.Err }

// ExhaustedError is returned when transient-error retries run out on a
// single page. Like BlockedError it carries the partial record set.
type ExhaustedError struct {
	Page         int
	Attempts     int
	PagesFetched int
	Refreshes    int
	Records      []domain.TransferRecord
	Err          error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("page %d failed after %d attempts: %v", e.Page, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// MalformedError is returned when malformed pages recur beyond the
// configured tolerance.
type MalformedError struct {
	Page         int
	Count        int
	PagesFetched int
	Refreshes    int
	Records      []domain.TransferRecord
	Err          error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response on page %d (%d total): %v", e.Page, e.Count, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// PartialRecords extracts accumulated records from a crawl failure, if the
// error kind carries them. ok is false for errors with no partial data.
func PartialRecords(err error) (records []domain.TransferRecord, reason string, ok bool) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked.Records, "blocked", true
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Records, "transient retries exhausted", true
	}
	var malformed *MalformedError
	if errors.As(err, &malformed) {
		return malformed.Records, "malformed responses", true
	}
	return nil, "", false
}

// PartialProgress extracts the page and refresh counters from a crawl
// failure, so partial runs still report how far they got.
func PartialProgress(err error) (pagesFetched, refreshes int, ok bool) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked.PagesFetched, blocked.Refreshes, true
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.PagesFetched, exhausted.Refreshes, true
	}
	var malformed *MalformedError
	if errors.As(err, &malformed) {
		return malformed.PagesFetched, malformed.Refreshes, true
	}
	return 0, 0, false
}
