package scraper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1 499,00 zł", "1499.00", true},
		{"2,99", "2.99", true},
		{"1 299,50 zł", "1299.50", true},
		{"1499.00", "1499", true},
		{"Cena: 89 PLN", "89", true},
		{"  12 345,67 zł brutto", "12345.67", true},
		{"brak ceny", "0", false},
		{"", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v expected %v", ok, tt.wantOK)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("got %s expected %s", got, tt.want)
			}
		})
	}
}

func TestParseOmnibusPriceSkipsPeriod(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Najniższa cena z 30 dni przed obniżką: 1 299,00 zł", "1299.00", true},
		{"Najniższa cena z 30 dni: 899,99 zł", "899.99", true},
		{"Najniższa cena: 2 499,00 zł (30 dni)", "2499.00", true},
		{"Najniższa cena z 30 dni przed obniżką: 30,50 zł", "30.50", true},
		{"Najniższa cena z 30 dni", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOmnibusPrice(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v expected %v", ok, tt.wantOK)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("got %s expected %s", got, tt.want)
			}
			if ok && got.Equal(decimal.NewFromInt(30)) {
				t.Error("period length mistaken for a price")
			}
		})
	}
}

func TestBotDetector(t *testing.T) {
	bd := NewBotDetector()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"forbidden", 403, "<html></html>", true},
		{"polish interstitial", 200, "<h1>Twoje żądanie zostało zablokowane</h1>", true},
		{"cloudflare", 503, "<title>Attention Required! | Cloudflare</title>", true},
		{"regular page", 200, "<html><title>Głośniki</title></html>", false},
		{"server error", 500, "oops", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := bd.IsBlocked(tt.status, tt.body)
			if got != tt.want {
				t.Errorf("got %v (%s) expected %v", got, reason, tt.want)
			}
		})
	}
}
