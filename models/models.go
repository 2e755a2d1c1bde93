package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Currency is the only currency this deployment reports.
const Currency = "PLN"

// DefaultTitle is used when a page exposes no usable title.
const DefaultTitle = "Produkt"

// DemoTitlePrefix marks snapshots that carry the demo fallback price instead of an observed one.
const DemoTitlePrefix = "[Demo]"

// Verdict classifies a current price against the 30-day low.
type Verdict string

const (
	VerdictGreen  Verdict = "green"  // below the 30-day low
	VerdictYellow Verdict = "yellow" // equal to the 30-day low
	VerdictRed    Verdict = "red"    // above the 30-day low
	VerdictGray   Verdict = "gray"   // blocked, no comparison possible
)

// IsValid reports whether v is one of the known verdicts.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictGreen, VerdictYellow, VerdictRed, VerdictGray:
		return true
	}
	return false
}

// PriceSnapshot is the result of one extraction attempt.
type PriceSnapshot struct {
	CurrentPrice   decimal.Decimal `json:"current_price"`
	Lowest30DPrice decimal.Decimal `json:"lowest_30d_price"`
	Currency       string          `json:"currency"`
	IsSimulated    bool            `json:"is_simulated"`
	Warning        string          `json:"warning,omitempty"`
	Blocked        bool            `json:"blocked,omitempty"`
	StatusCode     int             `json:"status_code,omitempty"`
	Title          string          `json:"title,omitempty"`
	Description    string          `json:"description,omitempty"`
	ImageURL       string          `json:"image_url,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// IsDemo reports whether the snapshot carries the demo fallback values.
func (s PriceSnapshot) IsDemo() bool {
	return strings.HasPrefix(s.Title, DemoTitlePrefix)
}

// HasObservedPrice reports whether the snapshot holds a price read from the page
// (or the fixed mock tier), as opposed to a blocked, failed, simulated or demo result.
func (s PriceSnapshot) HasObservedPrice() bool {
	return !s.Blocked && !s.IsSimulated && s.Error == "" && !s.IsDemo() && s.CurrentPrice.IsPositive()
}

// PartialSnapshot is what a single adapter or strategy managed to read from a page.
// Unset fields are structurally distinct from zero values.
type PartialSnapshot struct {
	Title          string
	Description    string
	ImageURL       string
	CurrentPrice   decimal.NullDecimal
	Lowest30DPrice decimal.NullDecimal
}

// Merge fills every field of p that is still empty from other.
func (p *PartialSnapshot) Merge(other PartialSnapshot) {
	if p.Title == "" {
		p.Title = other.Title
	}
	if p.Description == "" {
		p.Description = other.Description
	}
	if p.ImageURL == "" {
		p.ImageURL = other.ImageURL
	}
	if !p.CurrentPrice.Valid {
		p.CurrentPrice = other.CurrentPrice
	}
	if !p.Lowest30DPrice.Valid {
		p.Lowest30DPrice = other.Lowest30DPrice
	}
}

// FetchResult is the outcome of a single page fetch.
type FetchResult struct {
	OK         bool
	HTML       string
	StatusCode int
	Blocked    bool
	Err        error
}

// TrackedItem is a persisted price subscription.
type TrackedItem struct {
	ID             string          `json:"id"`
	URL            string          `json:"url"`
	Email          string          `json:"email"`
	Title          string          `json:"title"`
	ImageURL       string          `json:"image_url,omitempty"`
	PriceAtAdd     decimal.Decimal `json:"price_at_add"`
	LastKnownPrice decimal.Decimal `json:"last_known_price"`
	Lowest30D      decimal.Decimal `json:"lowest_30d"`
	Currency       string          `json:"currency"`
	Status         Verdict         `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	LastChecked    time.Time       `json:"last_checked"`
}

// CheckResult is what the interactive check reports for a URL.
type CheckResult struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	Lowest30D    decimal.Decimal `json:"lowest_30d"`
	Status       Verdict         `json:"status"`
	Savings      decimal.Decimal `json:"savings"`
	Currency     string          `json:"currency"`
	IsSimulated  bool            `json:"is_simulated"`
	Warning      string          `json:"warning,omitempty"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	Blocked      bool            `json:"blocked,omitempty"`
	StatusCode   int             `json:"status_code,omitempty"`
}

// Alert carries everything needed to tell a subscriber about a price drop.
type Alert struct {
	Email    string
	URL      string
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
	Title    string
	ImageURL string
	Currency string
}

// Savings is the amount the subscriber saves relative to the previous price.
func (a Alert) Savings() decimal.Decimal {
	return a.OldPrice.Sub(a.NewPrice).Round(2)
}

// BatchSummary reports the outcome of one recheck run.
type BatchSummary struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Total      int           `json:"total"`
	Checked    int           `json:"checked"`
	Drops      int           `json:"drops"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Notified   int           `json:"notified"`
	NotifyErrs int           `json:"notify_errors"`
}
