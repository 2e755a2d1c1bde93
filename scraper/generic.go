package scraper

import (
	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
)

// GenericAdapter reads the metadata most shops publish for social previews.
// It never matches by host; the extractor runs it on every page to backfill gaps.
type GenericAdapter struct{}

func (GenericAdapter) Name() string { return "generic" }

func (GenericAdapter) Matches(string) bool { return true }

func (GenericAdapter) Extract(doc *goquery.Document) models.PartialSnapshot {
	return models.PartialSnapshot{
		Title:       firstText(doc, metaText("og:title"), selectorText("title")),
		Description: firstText(doc, metaText("og:description"), metaText("description")),
		ImageURL:    firstText(doc, metaText("og:image")),
		CurrentPrice: firstPrice(doc,
			metaPrice("product:price:amount"),
			metaPrice("og:price:amount"),
			selectorPrice(`[itemprop="price"]`),
		),
	}
}
