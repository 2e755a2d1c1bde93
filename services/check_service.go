package services

import (
	"context"
	"fmt"
	"log/slog"

	"pricewatch/cache"
	"pricewatch/models"
	"pricewatch/scraper"

	"github.com/shopspring/decimal"
)

// PriceSource produces a snapshot for a product URL. *scraper.Scraper implements it.
type PriceSource interface {
	Scrape(ctx context.Context, url string) models.PriceSnapshot
}

// CheckService answers interactive price checks.
type CheckService struct {
	source PriceSource
	cache  cache.SnapshotCache
}

// NewCheckService creates a check service. A nil cache disables caching.
func NewCheckService(source PriceSource, snapshots cache.SnapshotCache) *CheckService {
	if snapshots == nil {
		snapshots = cache.NoopCache{}
	}
	return &CheckService{source: source, cache: snapshots}
}

// Check extracts the price for url and classifies it. A blocked page yields a gray
// result; a zero price on an unblocked page yields ErrNoPrice.
func (s *CheckService) Check(ctx context.Context, url string) (models.CheckResult, error) {
	snapshot, cached := s.cache.Get(ctx, url)
	if !cached {
		snapshot = s.source.Scrape(ctx, url)
		if snapshot.HasObservedPrice() && !scraper.IsMockURL(url) {
			s.cache.Set(ctx, url, snapshot)
		}
	} else {
		slog.Debug("Serving cached snapshot", "url", url)
	}

	if snapshot.Blocked {
		return blockedResult(snapshot), nil
	}

	if !snapshot.CurrentPrice.IsPositive() {
		if snapshot.Error != "" {
			return models.CheckResult{}, fmt.Errorf("%w: %s", models.ErrNoPrice, snapshot.Error)
		}
		return models.CheckResult{}, models.ErrNoPrice
	}

	verdict, savings := Evaluate(snapshot.CurrentPrice, snapshot.Lowest30DPrice)
	return models.CheckResult{
		CurrentPrice: snapshot.CurrentPrice,
		Lowest30D:    snapshot.Lowest30DPrice,
		Status:       verdict,
		Savings:      savings,
		Currency:     snapshot.Currency,
		IsSimulated:  snapshot.IsSimulated,
		Warning:      snapshot.Warning,
		Title:        snapshot.Title,
		Description:  snapshot.Description,
		ImageURL:     snapshot.ImageURL,
		StatusCode:   snapshot.StatusCode,
	}, nil
}

// blockedResult skips the verdict entirely and reports zero prices.
func blockedResult(snapshot models.PriceSnapshot) models.CheckResult {
	return models.CheckResult{
		CurrentPrice: decimal.Zero,
		Lowest30D:    decimal.Zero,
		Status:       models.VerdictGray,
		Savings:      decimal.Zero,
		Currency:     snapshot.Currency,
		IsSimulated:  true,
		Warning:      snapshot.Warning,
		Title:        snapshot.Title,
		Description:  snapshot.Description,
		ImageURL:     snapshot.ImageURL,
		Blocked:      true,
		StatusCode:   snapshot.StatusCode,
	}
}
