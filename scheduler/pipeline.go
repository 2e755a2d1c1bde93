package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"pricewatch/models"
	"pricewatch/notifier"
	"pricewatch/repository"

	"github.com/shopspring/decimal"
)

// PriceSource produces a snapshot for a product URL. *scraper.Scraper implements it.
type PriceSource interface {
	Scrape(ctx context.Context, url string) models.PriceSnapshot
}

// DefaultNotifyTimeout bounds a single alert delivery.
const DefaultNotifyTimeout = 30 * time.Second

// PipelineOptions bounds a recheck batch.
type PipelineOptions struct {
	Workers      int
	PerHostLimit int
	BatchTimeout time.Duration
	// NotifyTimeout bounds each alert; zero means DefaultNotifyTimeout.
	NotifyTimeout time.Duration
}

// Pipeline rechecks every tracked item, alerts on drops and persists the results.
type Pipeline struct {
	source   PriceSource
	store    repository.Store
	notifier notifier.Notifier
	opts     PipelineOptions
	now      func() time.Time

	// one batch at a time
	runMu sync.Mutex

	lastMu sync.RWMutex
	last   *models.BatchSummary
}

// NewPipeline creates a pipeline. Worker and per-host counts below one become one.
func NewPipeline(source PriceSource, store repository.Store, n notifier.Notifier, opts PipelineOptions) *Pipeline {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PerHostLimit <= 0 {
		opts.PerHostLimit = 1
	}
	return &Pipeline{
		source:   source,
		store:    store,
		notifier: n,
		opts:     opts,
		now:      time.Now,
	}
}

// itemOutcome is what one worker learned about one item.
type itemOutcome struct {
	checked   bool
	usable    bool
	drop      bool
	newPrice  decimal.Decimal
	checkedAt time.Time
	notified  bool
	notifyErr bool
}

// Run performs one batch. An unreadable store is treated as empty. The returned error
// is non-nil only when the results could not be persisted.
func (p *Pipeline) Run(ctx context.Context) (summary models.BatchSummary, err error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	summary.StartedAt = p.now()
	defer func() {
		summary.Duration = p.now().Sub(summary.StartedAt)
		p.setLast(summary)
	}()

	slog.Info("Starting price check batch")

	items, err := p.store.LoadAll(ctx)
	if err != nil {
		slog.Warn("Tracking store unavailable, nothing to check", "error", err)
		return summary, nil
	}
	summary.Total = len(items)
	if len(items) == 0 {
		slog.Info("No items to check")
		return summary, nil
	}

	outcomes := p.checkAll(ctx, items)

	byID := make(map[string]itemOutcome, len(items))
	for i, item := range items {
		o := outcomes[i]
		switch {
		case !o.checked:
			summary.Skipped++
		case !o.usable:
			summary.Checked++
			summary.Failed++
		default:
			summary.Checked++
		}
		if o.drop {
			summary.Drops++
		}
		if o.notified {
			summary.Notified++
		}
		if o.notifyErr {
			summary.NotifyErrs++
		}
		if o.checked {
			byID[item.ID] = o
		}
	}

	// Merge into the collection as it is now, so items created or deleted
	// while the batch was running are respected.
	err = p.store.Update(ctx, func(current []models.TrackedItem) ([]models.TrackedItem, error) {
		for i := range current {
			o, ok := byID[current[i].ID]
			if !ok {
				continue
			}
			current[i].LastChecked = o.checkedAt
			if o.drop && o.newPrice.LessThan(current[i].LastKnownPrice) {
				current[i].LastKnownPrice = o.newPrice
			}
		}
		return current, nil
	})
	if err != nil {
		slog.Error("Failed to save price check results", "error", err)
		return summary, fmt.Errorf("failed to save price check results: %w", err)
	}

	slog.Info("Price check batch completed",
		"total", summary.Total, "checked", summary.Checked, "drops", summary.Drops,
		"failed", summary.Failed, "skipped", summary.Skipped, "duration", p.now().Sub(summary.StartedAt))
	return summary, nil
}

// checkAll fans items out to the worker pool. Items not started before the
// batch deadline come back unchecked.
func (p *Pipeline) checkAll(ctx context.Context, items []models.TrackedItem) []itemOutcome {
	batchCtx := ctx
	if p.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, p.opts.BatchTimeout)
		defer cancel()
	}

	outcomes := make([]itemOutcome, len(items))
	limiter := newHostLimiter(p.opts.PerHostLimit)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.checkItem(batchCtx, ctx, limiter, items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-batchCtx.Done():
			slog.Warn("Batch deadline reached, skipping remaining items", "remaining", len(items)-i)
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (p *Pipeline) checkItem(batchCtx, notifyCtx context.Context, limiter *hostLimiter, item models.TrackedItem) itemOutcome {
	host := hostKey(item.URL)
	if err := limiter.acquire(batchCtx, host); err != nil {
		slog.Warn("Skipping item, batch deadline reached", "id", item.ID, "url", item.URL)
		return itemOutcome{}
	}
	snapshot, ok := p.scrape(batchCtx, item.URL)
	limiter.release(host)

	out := itemOutcome{checked: true, checkedAt: p.now()}
	if !ok || !snapshot.HasObservedPrice() {
		slog.Warn("No usable price, keeping previous values",
			"id", item.ID, "url", item.URL, "blocked", snapshot.Blocked, "error", snapshot.Error)
		return out
	}

	out.usable = true
	out.newPrice = snapshot.CurrentPrice
	if !snapshot.CurrentPrice.LessThan(item.LastKnownPrice) {
		slog.Debug("No price drop", "id", item.ID, "url", item.URL,
			"price", snapshot.CurrentPrice, "last_known_price", item.LastKnownPrice)
		return out
	}

	out.drop = true
	slog.Info("Price drop detected", "id", item.ID, "url", item.URL,
		"old_price", item.LastKnownPrice, "new_price", snapshot.CurrentPrice)

	title := snapshot.Title
	if title == "" {
		title = models.DefaultTitle
	}
	alert := models.Alert{
		Email:    item.Email,
		URL:      item.URL,
		OldPrice: item.LastKnownPrice,
		NewPrice: snapshot.CurrentPrice,
		Title:    title,
		ImageURL: snapshot.ImageURL,
		Currency: item.Currency,
	}
	if err := p.notify(notifyCtx, alert); err != nil {
		slog.Error("Failed to send price drop alert", "id", item.ID, "email", item.Email, "error", err)
		out.notifyErr = true
	} else {
		out.notified = true
	}
	return out
}

// scrape isolates a panicking fetch so one page cannot take down the batch.
func (p *Pipeline) scrape(ctx context.Context, rawURL string) (snapshot models.PriceSnapshot, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Price check panicked", "url", rawURL, "panic", r)
			ok = false
		}
	}()
	return p.source.Scrape(ctx, rawURL), true
}

// notify delivers one alert within NotifyTimeout. A notifier that ignores its
// context is abandoned once the timeout passes.
func (p *Pipeline) notify(ctx context.Context, alert models.Alert) error {
	if p.notifier == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.NotifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panicked: %v", r)
			}
		}()
		done <- p.notifier.Notify(ctx, alert)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("alert to %s not delivered: %w", alert.Email, ctx.Err())
	}
}

// LastSummary returns the most recent batch summary, if any batch has run.
func (p *Pipeline) LastSummary() (models.BatchSummary, bool) {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return models.BatchSummary{}, false
	}
	return *p.last, true
}

func (p *Pipeline) setLast(s models.BatchSummary) {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	p.last = &s
}

// hostLimiter caps simultaneous fetches per host.
type hostLimiter struct {
	mu    sync.Mutex
	limit int
	sems  map[string]chan struct{}
}

func newHostLimiter(limit int) *hostLimiter {
	return &hostLimiter{limit: limit, sems: make(map[string]chan struct{})}
}

func (l *hostLimiter) sem(host string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[host]
	if !ok {
		s = make(chan struct{}, l.limit)
		l.sems[host] = s
	}
	return s
}

func (l *hostLimiter) acquire(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l.sem(host) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *hostLimiter) release(host string) {
	<-l.sem(host)
}

func hostKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return rawURL
}
