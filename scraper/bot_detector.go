package scraper

import (
	"net/http"
	"strings"
)

// BotDetector recognises anti-bot responses by status code and interstitial markers.
type BotDetector struct {
	markers []string
}

// NewBotDetector creates a detector with the known interstitial markers.
// Extra markers are matched case-insensitively alongside the defaults.
func NewBotDetector(extra ...string) *BotDetector {
	markers := []string{
		"Twoje żądanie zostało zablokowane",
		"Attention Required! | Cloudflare",
		"cf-browser-verification",
		"Checking your browser before accessing",
		"Request unsuccessful. Incapsula incident ID",
	}
	markers = append(markers, extra...)

	bd := &BotDetector{}
	for _, m := range markers {
		bd.markers = append(bd.markers, strings.ToLower(m))
	}
	return bd
}

// IsBlocked reports whether a response is an anti-bot rejection, and the matching reason.
func (bd *BotDetector) IsBlocked(statusCode int, body string) (bool, string) {
	if statusCode == http.StatusForbidden {
		return true, "403 Forbidden"
	}

	content := strings.ToLower(body)
	for _, marker := range bd.markers {
		if strings.Contains(content, marker) {
			return true, "marker: " + marker
		}
	}
	return false, ""
}
