package clearance

import (
	"context"
	"sync"
)

// SerialRefresher serializes refresh invocations across concurrent crawls.
// Only one refresh runs at a time; a caller whose stale token was already
// replaced while it waited receives the replacement instead of triggering
// another browser round-trip.
type SerialRefresher struct {
	mu     sync.Mutex
	inner  Refresher
	holder *Holder
}

// NewSerialRefresher wraps inner so concurrent crawls sharing holder do not
// race refreshes against each other.
func NewSerialRefresher(inner Refresher, holder *Holder) *SerialRefresher {
	return &SerialRefresher{inner: inner, holder: holder}
}

// RefreshFor obtains a fresh token, updates the shared holder, and returns
// the new value. staleToken is the value the caller observed when it hit the
// block; if another crawl already replaced it, the current token is returned
// without invoking the inner refresher.
func (s *SerialRefresher) RefreshFor(ctx context.Context, targetURL, staleToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.holder.Token(); current != staleToken && current != "" {
		return current, nil
	}

	token, err := s.inner.Refresh(ctx, targetURL)
	if err != nil {
		return "", err
	}
	s.holder.Set(token)
	return token, nil
}

// Refresh implements Refresher. It always performs a refresh (the caller
// did not record a stale value) but still updates the shared holder.
func (s *SerialRefresher) Refresh(ctx context.Context, targetURL string) (string, error) {
	return s.RefreshFor(ctx, targetURL, s.holder.Token())
}
