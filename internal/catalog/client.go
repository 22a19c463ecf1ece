// Package catalog is the HTTP client for the book-catalog connector,
// the service that owns canonical book identities. The connector is a
// black box to the import pipeline: it either returns a book identity
// or not-found.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/openshelf/openshelf/internal/services"
)

// Client talks to the catalog connector with request rate limiting.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewClient creates a catalog client. interval throttles outbound
// requests; zero disables throttling.
func NewClient(baseURL, userAgent string, interval time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		rateLimiter: newRateLimiter(interval),
	}
}

// ResolveByISBN looks up a book by ISBN-13.
func (c *Client) ResolveByISBN(ctx context.Context, isbn string) (*services.CatalogBook, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	endpoint := fmt.Sprintf("%s/isbn/%s", c.baseURL, url.PathEscape(isbn))
	return c.fetchBook(ctx, endpoint)
}

// SearchOrCreate searches the catalog by title and author. The
// connector creates an entry when it knows the book but has no local
// record, so a not-found here means the book is genuinely unknown.
func (c *Client) SearchOrCreate(ctx context.Context, title, author string) (*services.CatalogBook, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	query := url.Values{}
	query.Set("title", title)
	query.Set("author", author)
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())
	return c.fetchBook(ctx, endpoint)
}

func (c *Client) fetchBook(ctx context.Context, endpoint string) (*services.CatalogBook, error) {
	c.rateLimiter.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, services.ErrBookNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var book services.CatalogBook
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if book.Title == "" {
		return nil, services.ErrBookNotFound
	}

	return &book, nil
}

// NormalizeISBN strips separators and validates the length of an ISBN.
func NormalizeISBN(isbn string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(isbn))

	if len(cleaned) != 10 && len(cleaned) != 13 {
		return ""
	}
	return cleaned
}

// Compile-time interface check
var _ services.Catalog = (*Client)(nil)
