package services

import (
	"pricewatch/models"

	"github.com/shopspring/decimal"
)

// Evaluate classifies current against the 30-day low. Savings is signed:
// a negative value means the current price is worse than the low.
func Evaluate(current, lowest30d decimal.Decimal) (models.Verdict, decimal.Decimal) {
	savings := lowest30d.Sub(current)

	switch current.Cmp(lowest30d) {
	case -1:
		return models.VerdictGreen, savings
	case 0:
		return models.VerdictYellow, savings
	default:
		return models.VerdictRed, savings
	}
}
