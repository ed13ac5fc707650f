// Package clearance manages the anti-bot session credential: an injected
// mutable holder for the active token and the refresher capability that
// obtains a new one when the upstream starts serving challenge pages.
package clearance

import (
	"context"
	"errors"
)

// ErrRefreshUnavailable is returned when no bypass environment exists.
// A crawl hitting this error has no recovery path and fails immediately.
var ErrRefreshUnavailable = errors.New("clearance refresh unavailable")

// Refresher obtains a fresh clearance token for the given target URL.
type Refresher interface {
	Refresh(ctx context.Context, targetURL string) (string, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, targetURL string) (string, error)

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context, targetURL string) (string, error) {
	return f(ctx, targetURL)
}

// Unavailable returns a Refresher that always fails with
// ErrRefreshUnavailable, for environments without a bypass capability.
func Unavailable() Refresher {
	return RefresherFunc(func(context.Context, string) (string, error) {
		return "", ErrRefreshUnavailable
	})
}
