package scraper

import (
	"regexp"

	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	inkhousePricePattern   = regexp.MustCompile(`\d+(?:[ \x{00a0}]\d{3})*[,.]\d{2}\s*PLN`)
	inkhouseOmnibusPattern = regexp.MustCompile(`(?i)najniższa cena z 30 dni|30 dni przed`)
)

// InkHouseAdapter reads inkhouse.pl product pages, where the price and the
// omnibus disclosure are plain text rather than dedicated elements.
type InkHouseAdapter struct {
	hostSuffix
}

// NewInkHouseAdapter matches inkhouse.pl and its subdomains.
func NewInkHouseAdapter() *InkHouseAdapter {
	return &InkHouseAdapter{hostSuffix: "inkhouse.pl"}
}

func (a *InkHouseAdapter) Name() string { return "inkhouse" }

func (a *InkHouseAdapter) Extract(doc *goquery.Document) models.PartialSnapshot {
	return models.PartialSnapshot{
		Title: firstText(doc, metaText("og:title")),
		ImageURL: firstText(doc,
			metaText("og:image"),
			selectorAttr("#product-image", "src"),
		),
		CurrentPrice: firstPrice(doc,
			metaPrice("product:price:amount"),
			textPatternPrice(inkhousePricePattern),
		),
		Lowest30DPrice: firstPrice(doc, omnibusText(inkhouseOmnibusPattern)),
	}
}

// Backfill uses the page heading only when neither og:title nor <title> named the product.
func (a *InkHouseAdapter) Backfill(doc *goquery.Document, partial *models.PartialSnapshot) {
	if partial.Title == "" || partial.Title == models.DefaultTitle {
		partial.Title = firstText(doc, selectorText("h1"))
	}
}
