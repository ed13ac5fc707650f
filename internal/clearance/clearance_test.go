package clearance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestHolder_SetAndFlush(t *testing.T) {
	h := NewHolder("initial")

	if h.Token() != "initial" {
		t.Errorf("Token: got %q", h.Token())
	}
	if h.Dirty() {
		t.Error("fresh holder should not be dirty")
	}

	h.Set("replaced")
	if !h.Dirty() {
		t.Error("holder should be dirty after Set")
	}

	var persisted string
	err := h.Flush(func(token string) error {
		persisted = token
		return nil
	})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if persisted != "replaced" {
		t.Errorf("persisted: got %q", persisted)
	}
	if h.Dirty() {
		t.Error("holder should be clean after Flush")
	}
}

func TestHolder_FlushCleanIsNoop(t *testing.T) {
	h := NewHolder("tok")
	called := false
	if err := h.Flush(func(string) error { called = true; return nil }); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if called {
		t.Error("persist should not run for a clean holder")
	}
}

func TestSerialRefresher_SkipsRefreshWhenTokenAlreadyReplaced(t *testing.T) {
	holder := NewHolder("fresh")
	calls := 0
	inner := RefresherFunc(func(context.Context, string) (string, error) {
		calls++
		return "newer", nil
	})

	s := NewSerialRefresher(inner, holder)

	// Caller observed "stale" but the holder already carries "fresh":
	// reuse it instead of refreshing again.
	token, err := s.RefreshFor(context.Background(), "https://solscan.io/", "stale")
	if err != nil {
		t.Fatalf("RefreshFor: %v", err)
	}
	if token != "fresh" {
		t.Errorf("token: got %q, want reuse of holder value", token)
	}
	if calls != 0 {
		t.Errorf("inner refresher called %d times, want 0", calls)
	}
}

func TestSerialRefresher_RefreshesAndUpdatesHolder(t *testing.T) {
	holder := NewHolder("stale")
	inner := RefresherFunc(func(context.Context, string) (string, error) {
		return "newer", nil
	})

	s := NewSerialRefresher(inner, holder)

	token, err := s.RefreshFor(context.Background(), "https://solscan.io/", "stale")
	if err != nil {
		t.Fatalf("RefreshFor: %v", err)
	}
	if token != "newer" {
		t.Errorf("token: got %q", token)
	}
	if holder.Token() != "newer" {
		t.Errorf("holder not updated: got %q", holder.Token())
	}
}

func TestSerialRefresher_ConcurrentCallersSingleRefresh(t *testing.T) {
	holder := NewHolder("stale")
	calls := 0
	inner := RefresherFunc(func(context.Context, string) (string, error) {
		calls++
		time.Sleep(10 * time.Millisecond)
		return "newer", nil
	})

	s := NewSerialRefresher(inner, holder)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RefreshFor(context.Background(), "u", "stale"); err != nil {
				t.Errorf("RefreshFor: %v", err)
			}
		}()
	}
	wg.Wait()

	// One caller refreshes; the rest see the replaced token and reuse it.
	if calls != 1 {
		t.Errorf("inner refresher called %d times, want 1", calls)
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable().Refresh(context.Background(), "https://solscan.io/")
	if !errors.Is(err, ErrRefreshUnavailable) {
		t.Errorf("expected ErrRefreshUnavailable, got %v", err)
	}
}

func TestHTTPRefresher_LiftsCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: clearanceCookie, Value: "issued-token", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewHTTPRefresher(5*time.Second, "test-agent")
	token, err := r.Refresh(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token != "issued-token" {
		t.Errorf("token: got %q", token)
	}
}

func TestHTTPRefresher_NoCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewHTTPRefresher(5*time.Second, "test-agent")
	_, err := r.Refresh(context.Background(), server.URL)
	if !errors.Is(err, ErrRefreshUnavailable) {
		t.Errorf("expected ErrRefreshUnavailable, got %v", err)
	}
}
