package clearance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Cookie name set by the upstream's anti-bot layer.
const clearanceCookie = "cf_clearance"

// HTTPRefresher attempts to obtain a clearance token with a plain HTTP
// warmup request against the target page, lifting the cookie from the
// response jar. This only works when the upstream does not force an
// interactive challenge; full browser automation remains an external
// capability plugged in through the Refresher interface.
type HTTPRefresher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPRefresher creates an HTTP warmup refresher. userAgent should match
// the profile the API client sends, otherwise the credential is rejected.
func NewHTTPRefresher(timeout time.Duration, userAgent string) *HTTPRefresher {
	return &HTTPRefresher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Refresh implements Refresher.
func (r *HTTPRefresher) Refresh(ctx context.Context, targetURL string) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", fmt.Errorf("create cookie jar: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("create warmup request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := *r.client
	client.Jar = jar

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("warmup request: %w", err)
	}
	resp.Body.Close()

	for _, c := range jar.Cookies(req.URL) {
		if c.Name == clearanceCookie && c.Value != "" {
			return c.Value, nil
		}
	}

	return "", fmt.Errorf("%w: no %s cookie issued for %s", ErrRefreshUnavailable, clearanceCookie, targetURL)
}
