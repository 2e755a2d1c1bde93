package scraper

import (
	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
)

const tophifiFinalPriceSelector = `.product-info-main .price-box .price-container [data-price-type="finalPrice"] .price`

// TopHiFiAdapter reads tophifi.pl product pages (Magento markup with an omnibus banner).
type TopHiFiAdapter struct {
	hostSuffix
}

// NewTopHiFiAdapter matches tophifi.pl and its subdomains.
func NewTopHiFiAdapter() *TopHiFiAdapter {
	return &TopHiFiAdapter{hostSuffix: "tophifi.pl"}
}

func (a *TopHiFiAdapter) Name() string { return "tophifi" }

func (a *TopHiFiAdapter) Extract(doc *goquery.Document) models.PartialSnapshot {
	return models.PartialSnapshot{
		Title: firstText(doc, metaText("og:title")),
		ImageURL: firstText(doc,
			metaText("og:image"),
			selectorAttr(".gallery-placeholder__image", "src"),
		),
		CurrentPrice: firstPrice(doc,
			metaPrice("product:price:amount"),
			selectorPrice(tophifiFinalPriceSelector),
		),
		Lowest30DPrice: firstPrice(doc, omnibusSelector(".price-omnibus")),
	}
}
