package ham

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.harvardartmuseums.org/object"

	maxErrorBodySize = 4 * 1024
)

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int
}

// PageCursor caches the catalog's total page count for the life of the
// process. Zero means unknown. Writes are single idempotent stores.
type PageCursor struct {
	pages atomic.Int64
}

func (p *PageCursor) Get() (int, bool) {
	n := p.pages.Load()
	return int(n), n > 0
}

func (p *PageCursor) Set(pages int) {
	p.pages.Store(int64(pages))
}

func (p *PageCursor) Reset() {
	p.pages.Store(0)
}

// Client is the catalog gateway. It never retries a failed call itself;
// retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	timeout    time.Duration
	limiter    *rate.Limiter
	pages      PageCursor
	group      singleflight.Group
	intn       func(n int) int
}

func NewClient(httpClient *http.Client, config ClientConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(config.APIKey),
		userAgent:  config.UserAgent,
		timeout:    config.Timeout,
		limiter:    limiter,
		intn:       rand.IntN,
	}
}

// SetRandom replaces the page picker. intn must return a value in [0, n).
func (c *Client) SetRandom(intn func(n int) int) {
	c.intn = intn
}

func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// CachedPages reports the cached page count without touching the network.
func (c *Client) CachedPages() (int, bool) {
	return c.pages.Get()
}

func (c *Client) ResetPageCount() {
	c.pages.Reset()
}

func (c *Client) GetTotalPages(ctx context.Context) (int, error) {
	if !c.HasAPIKey() {
		return 0, ErrMissingAPIKey
	}
	if pages, ok := c.pages.Get(); ok {
		return pages, nil
	}

	// The shared fetch must outlive any single caller; query still bounds it
	// with the client timeout.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("pages", func() (any, error) {
		if pages, ok := c.pages.Get(); ok {
			return pages, nil
		}

		params := url.Values{}
		params.Set("fields", "id")
		params.Set("page", "1")

		resp, err := c.query(fetchCtx, params)
		if err != nil {
			return 0, fmt.Errorf("failed to get pages: %w", err)
		}

		pages := 1
		if resp.Info != nil && resp.Info.Pages > 0 {
			pages = resp.Info.Pages
		}
		c.pages.Set(pages)

		slog.Debug("Catalog page count cached", "pages", pages)
		return pages, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}

// FetchOneRandomRecord returns the single record on a random page, or nil
// when that page came back empty.
func (c *Client) FetchOneRandomRecord(ctx context.Context) (*Record, error) {
	if !c.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	pages, err := c.GetTotalPages(ctx)
	if err != nil {
		return nil, err
	}
	page := 1 + c.intn(pages)

	params := url.Values{}
	params.Set("fields", RecordFields)
	params.Set("page", strconv.Itoa(page))

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}

	if len(resp.Records) == 0 {
		slog.Debug("Catalog page returned no records", "page", page, "pages", pages)
		return nil, nil
	}
	record := resp.Records[0]
	return &record, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*ObjectResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params.Set("hasimage", "1")
	params.Set("size", "1")
	redacted := c.baseURL + "?" + params.Encode()
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redacted
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{URL: redacted, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out ObjectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
