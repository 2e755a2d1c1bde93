package scraper

import (
	"errors"
	"net/http"
	"testing"

	"pricewatch/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const tophifiMetaPage = `<html><head>
<meta property="og:title" content="Wzmacniacz Marantz PM6007">
<meta property="og:image" content="https://tophifi.pl/media/pm6007.jpg">
<meta property="product:price:amount" content="1899.00">
</head><body>
<div class="price-omnibus">Najniższa cena z 30 dni przed obniżką: 2 199,00 zł</div>
</body></html>`

const tophifiMarkupPage = `<html><head>
<meta property="og:title" content="Kolumny Dali Oberon 5">
</head><body>
<img class="gallery-placeholder__image" src="https://tophifi.pl/media/oberon5.jpg">
<div class="product-info-main"><div class="price-box"><span class="price-container">
<span data-price-type="finalPrice"><span class="price">3 499,00&nbsp;zł</span></span>
</span></div></div>
</body></html>`

const inkhousePage = `<html><head></head><body>
<h1>Tusz HP 305 Czarny</h1>
<img id="product-image" src="https://inkhouse.pl/img/hp305.png">
<div class="product-price">59,90 PLN</div>
<p>Najniższa cena z 30 dni: 64,90 PLN</p>
</body></html>`

const genericPage = `<html><head>
<title>Ekspres do kawy</title>
<meta name="description" content="Automatyczny ekspres">
<meta itemprop="price" content="1249.99">
</head><body></body></html>`

const emptyPage = `<html><head><title>Brak ceny</title></head><body><p>Produkt niedostępny</p></body></html>`

func okResult(html string) models.FetchResult {
	return models.FetchResult{OK: true, HTML: html, StatusCode: http.StatusOK}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestExtractRetailerAdapters(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		html        string
		wantCurrent string
		wantLowest  string
		wantTitle   string
		wantImage   string
	}{
		{
			name:        "tophifi meta and omnibus banner",
			url:         "https://tophifi.pl/marantz-pm6007.html",
			html:        tophifiMetaPage,
			wantCurrent: "1899.00",
			wantLowest:  "2199.00",
			wantTitle:   "Wzmacniacz Marantz PM6007",
			wantImage:   "https://tophifi.pl/media/pm6007.jpg",
		},
		{
			name:        "tophifi price box without omnibus",
			url:         "https://www.tophifi.pl/dali-oberon-5.html",
			html:        tophifiMarkupPage,
			wantCurrent: "3499.00",
			wantLowest:  "3499.00",
			wantTitle:   "Kolumny Dali Oberon 5",
			wantImage:   "https://tophifi.pl/media/oberon5.jpg",
		},
		{
			name:        "inkhouse text patterns",
			url:         "https://inkhouse.pl/tusz-hp-305",
			html:        inkhousePage,
			wantCurrent: "59.90",
			wantLowest:  "64.90",
			wantTitle:   "Tusz HP 305 Czarny",
			wantImage:   "https://inkhouse.pl/img/hp305.png",
		},
		{
			name:        "unknown host uses generic metadata",
			url:         "https://sklep.pl/ekspres",
			html:        genericPage,
			wantCurrent: "1249.99",
			wantLowest:  "1249.99",
			wantTitle:   "Ekspres do kawy",
		},
	}

	extractor := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.url, okResult(tt.html))

			if !got.CurrentPrice.Equal(dec(tt.wantCurrent)) {
				t.Errorf("current price: got %s expected %s", got.CurrentPrice, tt.wantCurrent)
			}
			if !got.Lowest30DPrice.Equal(dec(tt.wantLowest)) {
				t.Errorf("lowest 30d: got %s expected %s", got.Lowest30DPrice, tt.wantLowest)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("title: got %q expected %q", got.Title, tt.wantTitle)
			}
			if tt.wantImage != "" && got.ImageURL != tt.wantImage {
				t.Errorf("image: got %q expected %q", got.ImageURL, tt.wantImage)
			}
			if got.IsSimulated || got.Blocked {
				t.Errorf("expected an observed snapshot, got %+v", got)
			}
			if !got.HasObservedPrice() {
				t.Errorf("expected HasObservedPrice for %+v", got)
			}
		})
	}
}

func TestExtractDemoFallback(t *testing.T) {
	got := NewExtractor(nil).Extract("https://sklep.pl/brak", okResult(emptyPage))

	if !got.CurrentPrice.Equal(DemoPrice) {
		t.Errorf("current price: got %s expected %s", got.CurrentPrice, DemoPrice)
	}
	if !got.Lowest30DPrice.Equal(DemoPrice) {
		t.Errorf("lowest 30d: got %s expected %s", got.Lowest30DPrice, DemoPrice)
	}
	if got.Title != DemoTitle || got.Description != DemoDescription || got.ImageURL != DemoImageURL {
		t.Errorf("expected demo metadata, got %+v", got)
	}
	if got.IsSimulated {
		t.Error("demo fallback should not be flagged as simulated")
	}
	if !got.IsDemo() || got.HasObservedPrice() {
		t.Error("demo fallback must not count as an observed price")
	}
}

func TestResolveLowest(t *testing.T) {
	tests := []struct {
		name    string
		current decimal.Decimal
		lowest  decimal.NullDecimal
		want    string
	}{
		{"published low wins", dec("100"), decimal.NewNullDecimal(dec("90")), "90"},
		{"missing low uses current", dec("100"), decimal.NullDecimal{}, "100"},
		{"zero low uses current", dec("100"), decimal.NewNullDecimal(decimal.Zero), "100"},
		{"nothing known", decimal.Zero, decimal.NullDecimal{}, "179.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveLowest(tt.current, tt.lowest); !got.Equal(dec(tt.want)) {
				t.Errorf("got %s expected %s", got, tt.want)
			}
		})
	}
}

func TestInkHouseTitleFallsBackToHeading(t *testing.T) {
	tests := []struct {
		name string
		head string
		want string
	}{
		{"document title wins over heading", "<title>Tusz HP 305 XL</title>", "Tusz HP 305 XL"},
		{"og title wins over heading", `<meta property="og:title" content="HP 305 oryginalny">`, "HP 305 oryginalny"},
		{"heading when nothing else", "", "Tusz HP 305 Czarny"},
		{"heading replaces placeholder title", "<title>Produkt</title>", "Tusz HP 305 Czarny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><head>` + tt.head + `</head><body>
<h1>Tusz HP 305 Czarny</h1>
<div class="product-price">59,90 PLN</div>
</body></html>`
			got := NewExtractor(nil).Extract("https://inkhouse.pl/tusz-hp-305", okResult(page))
			if got.Title != tt.want {
				t.Errorf("title: got %q expected %q", got.Title, tt.want)
			}
		})
	}
}

func TestExtractDefaultTitle(t *testing.T) {
	page := `<html><head><meta property="product:price:amount" content="10.00"></head><body></body></html>`
	got := NewExtractor(nil).Extract("https://sklep.pl/x", okResult(page))
	if got.Title != models.DefaultTitle {
		t.Errorf("title: got %q expected %q", got.Title, models.DefaultTitle)
	}
}

func TestExtractBlocked(t *testing.T) {
	got := NewExtractor(nil).Extract("https://tophifi.pl/x.html", models.FetchResult{
		StatusCode: http.StatusForbidden,
		Blocked:    true,
	})

	if !got.Blocked || !got.IsSimulated || got.Warning != BlockedWarning {
		t.Fatalf("expected blocked simulated snapshot, got %+v", got)
	}
	if !got.CurrentPrice.Equal(BlockedCurrentPrice) || !got.Lowest30DPrice.Equal(BlockedLowestPrice) {
		t.Errorf("got %s/%s", got.CurrentPrice, got.Lowest30DPrice)
	}
	if got.StatusCode != http.StatusForbidden {
		t.Errorf("status code: got %d", got.StatusCode)
	}
}

func TestExtractNetworkError(t *testing.T) {
	got := NewExtractor(nil).Extract("https://tophifi.pl/x.html", models.FetchResult{
		Err: &models.NetworkError{URL: "https://tophifi.pl/x.html", Err: errors.New("connection refused")},
	})

	if !got.IsSimulated || got.Error == "" {
		t.Fatalf("expected failed snapshot, got %+v", got)
	}
	if !got.CurrentPrice.IsZero() || !got.Lowest30DPrice.IsZero() {
		t.Errorf("expected zero prices, got %s/%s", got.CurrentPrice, got.Lowest30DPrice)
	}
}

func TestExtractMockURLSkipsParsing(t *testing.T) {
	got := NewExtractor(nil).Extract("https://example.com/product", models.FetchResult{})
	if !got.CurrentPrice.Equal(MockCurrentPrice) || !got.Lowest30DPrice.Equal(MockLowestPrice) {
		t.Errorf("got %s/%s", got.CurrentPrice, got.Lowest30DPrice)
	}
	if got.IsSimulated {
		t.Error("mock tier is not simulated")
	}
}

type panickingAdapter struct{}

func (panickingAdapter) Name() string        { return "panics" }
func (panickingAdapter) Matches(string) bool { return true }
func (panickingAdapter) Extract(*goquery.Document) models.PartialSnapshot {
	panic("selector exploded")
}

func TestExtractRecoversFromAdapterPanic(t *testing.T) {
	got := NewExtractor(NewRegistry(panickingAdapter{})).Extract("https://sklep.pl/x", okResult(genericPage))

	if !got.IsSimulated || got.Error != "selector exploded" {
		t.Fatalf("expected terminal fallback, got %+v", got)
	}
	if !got.CurrentPrice.IsZero() {
		t.Errorf("expected zero price, got %s", got.CurrentPrice)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{"https://tophifi.pl/a.html", "tophifi"},
		{"https://WWW.TOPHIFI.PL/a.html", "tophifi"},
		{"https://inkhouse.pl/tusz", "inkhouse"},
		{"https://sklep.pl/x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			a, found := reg.Lookup(tt.url)
			if tt.want == "" {
				if found {
					t.Errorf("expected no adapter, got %s", a.Name())
				}
				return
			}
			if !found || a.Name() != tt.want {
				t.Errorf("expected adapter %s, got %v", tt.want, a)
			}
		})
	}
}
