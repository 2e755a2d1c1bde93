package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Adapter extracts product data from one retailer's markup.
type Adapter interface {
	Name() string
	// Matches is called with the lower-cased host of the product URL.
	Matches(host string) bool
	Extract(doc *goquery.Document) models.PartialSnapshot
}

// Backfiller is an optional Adapter extension that runs after the generic
// metadata pass and fills whatever is still missing.
type Backfiller interface {
	Backfill(doc *goquery.Document, partial *models.PartialSnapshot)
}

// Registry selects the adapter for a product URL. Retailers register here
// without touching the extraction control flow.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry creates a registry holding the given adapters in priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry holds every built-in retailer adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTopHiFiAdapter(),
		NewInkHouseAdapter(),
	)
}

// Register appends an adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, a)
}

// Lookup returns the first adapter whose host pattern matches the URL.
func (r *Registry) Lookup(rawURL string) (Adapter, bool) {
	host := hostOf(rawURL)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if a.Matches(host) {
			return a, true
		}
	}
	return nil, false
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(rawURL)
}

// hostSuffix matches a retailer by substring of the host.
type hostSuffix string

func (h hostSuffix) Matches(host string) bool {
	return strings.Contains(host, string(h))
}

// Strategies are tried in order; the first one yielding a value wins.
type (
	textStrategy  func(doc *goquery.Document) string
	priceStrategy func(doc *goquery.Document) (decimal.Decimal, bool)
)

func firstText(doc *goquery.Document, strategies ...textStrategy) string {
	for _, s := range strategies {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return ""
}

func firstPrice(doc *goquery.Document, strategies ...priceStrategy) decimal.NullDecimal {
	for _, s := range strategies {
		if v, ok := s(doc); ok && v.IsPositive() {
			return decimal.NullDecimal{Decimal: v, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

func metaText(property string) textStrategy {
	return func(doc *goquery.Document) string {
		return metaContent(doc, property)
	}
}

func selectorText(selector string) textStrategy {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

func selectorAttr(selector, attr string) textStrategy {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(attr)
		return v
	}
}

func metaPrice(property string) priceStrategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		content := metaContent(doc, property)
		if content == "" {
			return decimal.Zero, false
		}
		return ParsePrice(content)
	}
}

func selectorPrice(selector string) priceStrategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return decimal.Zero, false
		}
		if content, ok := sel.Attr("content"); ok && content != "" {
			return ParsePrice(content)
		}
		return ParsePrice(sel.Text())
	}
}

// omnibusSelector reads the 30-day low from a disclosure banner element.
func omnibusSelector(selector string) priceStrategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return decimal.Zero, false
		}
		return ParseOmnibusPrice(sel.Text())
	}
}

// textPatternPrice parses the first text node matching pattern.
func textPatternPrice(pattern *regexp.Regexp) priceStrategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		_, text := findTextElement(doc, pattern)
		if text == "" {
			return decimal.Zero, false
		}
		return ParsePrice(pattern.FindString(text))
	}
}

// omnibusText finds the disclosure by its wording, scanning the matching text first
// and the enclosing element's full text second.
func omnibusText(pattern *regexp.Regexp) priceStrategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		sel, text := findTextElement(doc, pattern)
		if sel == nil {
			return decimal.Zero, false
		}
		if v, ok := ParseOmnibusPrice(text); ok {
			return v, true
		}
		return ParseOmnibusPrice(sel.Text())
	}
}

// findTextElement returns the first element whose own text matches pattern.
func findTextElement(doc *goquery.Document, pattern *regexp.Regexp) (*goquery.Selection, string) {
	var (
		found *goquery.Selection
		text  string
	)
	doc.Find("body *").Not("script, style, noscript").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := ownText(s)
		if pattern.MatchString(own) {
			found, text = s, own
			return false
		}
		return true
	})
	return found, text
}

func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}
