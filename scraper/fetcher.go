package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pricewatch/models"

	"github.com/gocolly/colly/v2"
)

const (
	ctxStatusKey = "status"
	ctxBodyKey   = "body"
)

// Fetcher retrieves a product page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
}

// FetcherOptions configures a CollyFetcher
type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// Parallelism caps simultaneous requests across all hosts; zero means unlimited.
	Parallelism int
	RandomDelay time.Duration
}

// CollyFetcher issues single GET requests through a shared colly collector.
// It never retries; retry cadence belongs to the recheck schedule.
type CollyFetcher struct {
	collector *colly.Collector
	detector  *BotDetector
}

// NewCollyFetcher builds a fetcher with a spoofed browser identity and bounded timeout.
func NewCollyFetcher(opts FetcherOptions) (*CollyFetcher, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(opts.Timeout)
	// Deliver 4xx/5xx bodies to OnResponse so blocked pages can be recognised.
	c.ParseHTTPErrorResponse = true
	c.DisableCookies()

	if opts.Parallelism > 0 || opts.RandomDelay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: opts.Parallelism,
			RandomDelay: opts.RandomDelay,
		}); err != nil {
			return nil, fmt.Errorf("failed to configure fetch limits: %w", err)
		}
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatusKey, r.StatusCode)
		r.Ctx.Put(ctxBodyKey, string(r.Body))
	})

	return &CollyFetcher{
		collector: c,
		detector:  NewBotDetector(),
	}, nil
}

// Fetch performs one GET and classifies the response as OK, Blocked or a network error.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) models.FetchResult {
	if err := ctx.Err(); err != nil {
		return models.FetchResult{Err: &models.NetworkError{URL: url, Err: err}}
	}

	reqCtx := colly.NewContext()
	hdr := http.Header{}
	// colly only applies its UserAgent when no header map is passed
	hdr.Set("User-Agent", f.collector.UserAgent)
	hdr.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	hdr.Set("Accept-Language", "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7")

	start := time.Now()
	if err := f.collector.Request(http.MethodGet, url, nil, reqCtx, hdr); err != nil {
		slog.Warn("Fetch failed", "url", url, "error", err, "duration", time.Since(start))
		return models.FetchResult{Err: &models.NetworkError{URL: url, Err: err}}
	}

	status, _ := reqCtx.GetAny(ctxStatusKey).(int)
	body := reqCtx.Get(ctxBodyKey)

	if blocked, reason := f.detector.IsBlocked(status, body); blocked {
		slog.Warn("Fetch blocked by retailer", "url", url, "status", status, "reason", reason)
		return models.FetchResult{HTML: body, StatusCode: status, Blocked: true}
	}

	if status < 200 || status > 299 {
		slog.Warn("Fetch returned unexpected status", "url", url, "status", status)
		return models.FetchResult{
			HTML:       body,
			StatusCode: status,
			Err:        &models.NetworkError{URL: url, StatusCode: status, Err: errors.New(http.StatusText(status))},
		}
	}

	slog.Debug("Fetched page", "url", url, "status", status, "bytes", len(body), "duration", time.Since(start))
	return models.FetchResult{OK: true, HTML: body, StatusCode: status}
}
