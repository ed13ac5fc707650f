package clearance

import "sync"

// PersistFunc saves a refreshed token outside the process, e.g. back into a
// config file. Invoked by callers at crawl boundaries only; the holder never
// performs file I/O itself.
type PersistFunc func(token string) error

// Holder owns the active clearance token. It is shared between the HTTP
// client building requests and the crawler swapping in refreshed values, so
// access is mutex-guarded.
type Holder struct {
	mu    sync.RWMutex
	token string
	dirty bool
}

// NewHolder creates a holder seeded with the configured token, which may be
// empty when no credential has been provisioned yet.
func NewHolder(token string) *Holder {
	return &Holder{token: token}
}

// Token returns the current clearance token.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Set replaces the active token and marks the holder dirty.
func (h *Holder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.dirty = true
}

// Dirty reports whether the token changed since the holder was created or
// last flushed.
func (h *Holder) Dirty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dirty
}

// Flush invokes persist with the current token if it changed, then clears
// the dirty flag. Callers run this once per crawl, never mid-crawl.
func (h *Holder) Flush(persist PersistFunc) error {
	h.mu.Lock()
	token, dirty := h.token, h.dirty
	h.mu.Unlock()

	if !dirty || persist == nil {
		return nil
	}
	if err := persist(token); err != nil {
		return err
	}

	h.mu.Lock()
	h.dirty = false
	h.mu.Unlock()
	return nil
}
