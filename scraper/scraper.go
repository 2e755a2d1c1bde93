package scraper

import (
	"context"

	"pricewatch/models"
)

// Scraper runs the fetch and extract steps for one product URL.
type Scraper struct {
	fetcher   Fetcher
	extractor *Extractor
}

// NewScraper wires a fetcher to an extractor.
func NewScraper(fetcher Fetcher, extractor *Extractor) *Scraper {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	return &Scraper{fetcher: fetcher, extractor: extractor}
}

// Scrape returns a snapshot for url. Mock URLs are answered without touching the network.
func (s *Scraper) Scrape(ctx context.Context, url string) models.PriceSnapshot {
	if IsMockURL(url) {
		return MockSnapshot()
	}
	return s.extractor.Extract(url, s.fetcher.Fetch(ctx, url))
}
