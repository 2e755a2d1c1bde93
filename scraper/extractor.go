package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	BlockedWarning  = "Strona blokuje automatyczne pobieranie. Użyto danych symulowanych dla pokazu PoC."
	DemoTitle       = models.DemoTitlePrefix + " Przykładowy Produkt"
	DemoDescription = "To jest opis pokazowy dla produktu, którego nie udało się sparsować."
	DemoImageURL    = "https://via.placeholder.com/150"
)

var (
	MockCurrentPrice    = decimal.RequireFromString("2999.00")
	MockLowestPrice     = decimal.RequireFromString("3499.00")
	BlockedCurrentPrice = decimal.RequireFromString("2499.00")
	BlockedLowestPrice  = decimal.RequireFromString("2799.00")
	DemoPrice           = decimal.RequireFromString("149.99")

	demoLowestFactor = decimal.RequireFromString("1.2")
)

// IsMockURL reports whether a URL is a test/demo URL answered without any network call.
func IsMockURL(rawURL string) bool {
	return strings.Contains(rawURL, "example.com") || strings.Contains(rawURL, "mock")
}

// MockSnapshot is the canned result for mock URLs.
func MockSnapshot() models.PriceSnapshot {
	return models.PriceSnapshot{
		CurrentPrice:   MockCurrentPrice,
		Lowest30DPrice: MockLowestPrice,
		Currency:       models.Currency,
	}
}

// Extractor turns a fetched page into a PriceSnapshot. It never fails:
// every problem degrades into a simulated or fallback snapshot.
type Extractor struct {
	registry *Registry
	generic  Adapter
}

// NewExtractor creates an extractor dispatching to the given registry.
func NewExtractor(registry *Registry) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Extractor{
		registry: registry,
		generic:  GenericAdapter{},
	}
}

// Extract resolves a snapshot through the mock, blocked, adapter, generic and demo tiers.
func (e *Extractor) Extract(pageURL string, res models.FetchResult) (snapshot models.PriceSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Extraction panicked", "url", pageURL, "panic", r)
			snapshot = failedSnapshot(fmt.Sprint(r), res.StatusCode)
		}
	}()

	if IsMockURL(pageURL) {
		return MockSnapshot()
	}

	if res.Blocked {
		return blockedSnapshot(res.StatusCode)
	}

	if res.Err != nil {
		slog.Warn("Error parsing page", "url", pageURL, "error", res.Err)
		return failedSnapshot(res.Err.Error(), res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		slog.Warn("Error parsing page", "url", pageURL, "error", err)
		return failedSnapshot(err.Error(), res.StatusCode)
	}

	var partial models.PartialSnapshot
	adapter, found := e.registry.Lookup(pageURL)
	if found {
		partial = adapter.Extract(doc)
		slog.Debug("Adapter extraction", "url", pageURL, "adapter", adapter.Name(),
			"current", partial.CurrentPrice, "lowest_30d", partial.Lowest30DPrice)
	}
	partial.Merge(e.generic.Extract(doc))
	if b, ok := adapter.(Backfiller); ok {
		b.Backfill(doc, &partial)
	}

	return finalize(pageURL, partial, res.StatusCode)
}

// finalize applies the demo fallback and the 30-day-low defaults.
func finalize(pageURL string, partial models.PartialSnapshot, statusCode int) models.PriceSnapshot {
	snapshot := models.PriceSnapshot{
		Currency:    models.Currency,
		StatusCode:  statusCode,
		Title:       partial.Title,
		Description: partial.Description,
		ImageURL:    partial.ImageURL,
	}

	if partial.CurrentPrice.Valid && partial.CurrentPrice.Decimal.IsPositive() {
		slog.Info("Successfully parsed current price", "url", pageURL, "current_price", partial.CurrentPrice.Decimal)
		snapshot.CurrentPrice = partial.CurrentPrice.Decimal
	} else {
		slog.Warn("Falling back to demo current price", "url", pageURL)
		snapshot.CurrentPrice = DemoPrice
		snapshot.Title = DemoTitle
		snapshot.Description = DemoDescription
		snapshot.ImageURL = DemoImageURL
	}

	if !partial.Lowest30DPrice.Valid {
		slog.Info("No lowest 30-day price found, assuming current price", "url", pageURL)
	}
	snapshot.Lowest30DPrice = resolveLowest(snapshot.CurrentPrice, partial.Lowest30DPrice)

	if snapshot.Title == "" {
		snapshot.Title = models.DefaultTitle
	}
	return snapshot
}

// resolveLowest treats today's price as the baseline when no history is published.
func resolveLowest(current decimal.Decimal, lowest decimal.NullDecimal) decimal.Decimal {
	switch {
	case lowest.Valid && lowest.Decimal.IsPositive():
		return lowest.Decimal
	case current.IsPositive():
		return current
	default:
		return DemoPrice.Mul(demoLowestFactor).Round(2)
	}
}

func blockedSnapshot(statusCode int) models.PriceSnapshot {
	return models.PriceSnapshot{
		CurrentPrice:   BlockedCurrentPrice,
		Lowest30DPrice: BlockedLowestPrice,
		Currency:       models.Currency,
		IsSimulated:    true,
		Warning:        BlockedWarning,
		Blocked:        true,
		StatusCode:     statusCode,
	}
}

func failedSnapshot(message string, statusCode int) models.PriceSnapshot {
	return models.PriceSnapshot{
		CurrentPrice:   decimal.Zero,
		Lowest30DPrice: decimal.Zero,
		Currency:       models.Currency,
		IsSimulated:    true,
		StatusCode:     statusCode,
		Error:          message,
	}
}
