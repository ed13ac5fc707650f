// Package solscan implements the HTTP client for the Solscan v2 API:
// request construction with a browser header profile and cookie-borne
// clearance credential, plus block and exhaustion detection on responses.
// Retry policy belongs to the crawler, not here: every method performs
// exactly one request so failure kinds stay attributable.
package solscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/clearance"
	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api-v2.solscan.io"
	DefaultTimeout   = 30 * time.Second
	DefaultPageSize  = 100
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

	transferPath = "/v2/token/transfer"
	accountPath  = "/v2/account"

	originSite = "https://solscan.io"
)

// Client is an HTTP client for the Solscan v2 API.
type Client struct {
	baseURL   string
	client    *http.Client
	holder    *clearance.Holder
	authToken string
	userAgent string

	blockStatus map[int]struct{}
	blockSigs   []string
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithProxy routes requests through an outbound proxy.
func WithProxy(proxyURL *url.URL) ClientOption {
	return func(c *Client) {
		transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		c.client.Transport = transport
	}
}

// WithUserAgent overrides the browser profile user agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithAuthToken sets the auth-token cookie sent alongside the clearance.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithBlockStatusCodes replaces the set of HTTP statuses treated as an
// anti-bot challenge.
func WithBlockStatusCodes(codes []int) ClientOption {
	return func(c *Client) {
		c.blockStatus = make(map[int]struct{}, len(codes))
		for _, code := range codes {
			c.blockStatus[code] = struct{}{}
		}
	}
}

// WithBlockSignatures replaces the body substrings recognized as a
// challenge page. Matching is case-insensitive.
func WithBlockSignatures(sigs []string) ClientOption {
	return func(c *Client) {
		c.blockSigs = make([]string, len(sigs))
		for i, s := range sigs {
			c.blockSigs[i] = strings.ToLower(s)
		}
	}
}

// NewClient creates a Solscan API client. holder supplies the active
// clearance token for every request; the crawler swaps refreshed values
// into it mid-crawl.
func NewClient(baseURL string, holder *clearance.Holder, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		holder:      holder,
		userAgent:   DefaultUserAgent,
		blockStatus: map[int]struct{}{http.StatusForbidden: {}},
		blockSigs:   []string{"cloudflare"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TransferQuery describes one transfer page request. The minimum-USD value
// filter is applied server-side; the client never re-filters locally.
type TransferQuery struct {
	Address     string
	Page        int
	PageSize    int
	FromTime    int64 // Unix seconds, 0 to omit
	ToTime      int64 // Unix seconds, 0 to omit
	MinValueUSD int   // 0 to omit
}

// TransferPage fetches one page of transfer records. A detected challenge
// yields a PageResult with IsBlocked set rather than an error; transient
// failures (network, 5xx) and schema violations come back as errors the
// caller can classify with IsTransient and errors.Is(err, ErrMalformed).
func (c *Client) TransferPage(ctx context.Context, q TransferQuery) (domain.PageResult, error) {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("address", q.Address)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_size", strconv.Itoa(q.PageSize))
	params.Set("remove_spam", "true")
	params.Set("exclude_amount_zero", "true")
	if q.FromTime > 0 {
		params.Set("from_time", strconv.FormatInt(q.FromTime, 10))
	}
	if q.ToTime > 0 {
		params.Set("to_time", strconv.FormatInt(q.ToTime, 10))
	}
	if q.MinValueUSD > 0 {
		params.Set("value[]", strconv.Itoa(q.MinValueUSD))
	}

	status, body, err := c.get(ctx, transferPath, params)
	if err != nil {
		return domain.PageResult{}, err
	}

	if c.isBlocked(status, body) {
		return domain.PageResult{PageNumber: q.Page, IsBlocked: true}, nil
	}
	if status >= 500 {
		return domain.PageResult{}, &TransientError{Status: status}
	}
	if status != http.StatusOK {
		return domain.PageResult{}, fmt.Errorf("%w: unexpected status %d", ErrMalformed, status)
	}

	var resp transferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PageResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	records := make([]domain.TransferRecord, 0, len(resp.Data))
	for i, item := range resp.Data {
		rec, err := item.toDomain()
		if err != nil {
			return domain.PageResult{}, fmt.Errorf("%w: record %d on page %d: %v", ErrMalformed, i, q.Page, err)
		}
		records = append(records, rec)
	}

	return domain.PageResult{
		PageNumber: q.Page,
		Records:    records,
		IsLastPage: len(records) == 0,
	}, nil
}

// TokenMeta fetches token metadata (name, symbol, decimals, supply).
func (c *Client) TokenMeta(ctx context.Context, address string) (*domain.TokenMeta, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("view_as", "token")

	status, body, err := c.get(ctx, accountPath, params)
	if err != nil {
		return nil, err
	}

	if c.isBlocked(status, body) {
		return nil, ErrBlockedMeta
	}
	if status >= 500 {
		return nil, &TransientError{Status: status}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformed, status)
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return resp.toDomain(address)
}

// get performs a single GET with the browser header profile and the
// current cookies. Network failures map to TransientError.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", originSite)
	req.Header.Set("Referer", originSite+"/")
	req.Header.Set("User-Agent", c.userAgent)

	if token := c.holder.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: "cf_clearance", Value: token})
	}
	if c.authToken != "" {
		req.AddCookie(&http.Cookie{Name: "auth-token", Value: c.authToken})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	return resp.StatusCode, body, nil
}

// isBlocked applies the configured challenge heuristic: a listed status
// code, or a known signature in a non-200 body.
func (c *Client) isBlocked(status int, body []byte) bool {
	if _, ok := c.blockStatus[status]; ok {
		return true
	}
	if status == http.StatusOK || len(c.blockSigs) == 0 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, sig := range c.blockSigs {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
