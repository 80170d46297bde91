package chartink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stock_recommendation_backend/models"
)

const (
	DefaultBaseURL   = "https://chartink.com"
	screenerPath     = "/screener"
	processPath      = "/screener/process"
	tokenMaxAge      = 10 * time.Minute
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ScreenerClient executes one opaque query string against the screener and
// returns raw stock rows. Implemented here by Client; the aggregator only
// depends on this interface.
type ScreenerClient interface {
	RunQuery(ctx context.Context, query string, limit int) ([]models.RawStockRow, error)
}

// Client scrapes the Chartink screener. The screener endpoint requires a
// CSRF token embedded in the dashboard page plus the session cookie it was
// issued with, so the client keeps a cookie jar and refreshes the token when
// it ages out or the server rejects it.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.Mutex
	csrfToken    string
	tokenFetched time.Time
}

// processResponse maps the screener process API wrapper
type processResponse struct {
	Data []processRow `json:"data"`
}

// processRow represents a single row from a scan result
type processRow struct {
	NSECode       string  `json:"nsecode"`
	Name          string  `json:"name"`
	Close         float64 `json:"close"`
	PercentChange float64 `json:"per_chg"`
	Volume        int64   `json:"volume"`
}

// NewClient creates a new Chartink client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// RunQuery executes a scan clause and returns up to limit rows. The query
// string is passed through unmodified; its grammar is Chartink's business.
func (c *Client) RunQuery(ctx context.Context, query string, limit int) ([]models.RawStockRow, error) {
	token, err := c.csrf(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain csrf token: %w", err)
	}

	rows, status, err := c.process(ctx, token, query)
	if status == http.StatusForbidden || status == 419 {
		// Session or token expired; refresh once and retry
		token, err = c.csrf(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh csrf token: %w", err)
		}
		rows, _, err = c.process(ctx, token, query)
	}
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// process posts the scan clause and decodes the result rows
func (c *Client) process(ctx context.Context, token, query string) ([]models.RawStockRow, int, error) {
	form := url.Values{}
	form.Set("scan_clause", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Csrf-Token", token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL+screenerPath)
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("screener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("screener returned status %d", resp.StatusCode)
	}

	var payload processResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode screener response: %w", err)
	}

	rows := make([]models.RawStockRow, 0, len(payload.Data))
	for _, r := range payload.Data {
		if r.NSECode == "" {
			continue
		}
		rows = append(rows, models.RawStockRow{
			Symbol:        r.NSECode,
			Name:          r.Name,
			Close:         r.Close,
			PercentChange: r.PercentChange,
			Volume:        r.Volume,
		})
	}
	return rows, resp.StatusCode, nil
}

// csrf returns a valid token, fetching the screener page when the cached
// token is missing, stale, or force is set
func (c *Client) csrf(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.csrfToken != "" && time.Since(c.tokenFetched) < tokenMaxAge {
		return c.csrfToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+screenerPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to load screener page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("screener page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse screener page: %w", err)
	}

	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		return "", fmt.Errorf("csrf token not found in screener page")
	}

	c.csrfToken = token
	c.tokenFetched = time.Now()
	log.Println("Chartink CSRF token refreshed")
	return token, nil
}
