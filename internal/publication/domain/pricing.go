package domain

import "github.com/shopspring/decimal"

var (
	factorTwoYears = decimal.RequireFromString("0.80")
	factorOneYear  = decimal.RequireFromString("0.90")
	factorHalfYear = decimal.RequireFromString("0.95")
)

// DiscountFactor returns the multiplier applied to monthly*months for a period.
func DiscountFactor(months int) decimal.Decimal {
	switch {
	case months >= 24:
		return factorTwoYears
	case months >= 12:
		return factorOneYear
	case months >= 6:
		return factorHalfYear
	default:
		return decimal.NewFromInt(1)
	}
}

// CalculatePrice computes monthly*months*factor rounded half away from zero to cents.
func CalculatePrice(monthly decimal.Decimal, months int) decimal.Decimal {
	base := monthly.Mul(decimal.NewFromInt(int64(months)))
	return base.Mul(DiscountFactor(months)).Round(2)
}

// Quote is a price breakdown shown before a subscription is created.
type Quote struct {
	PublicationID    int64           `json:"publication_id,string"`
	PeriodMonths     int             `json:"period_months"`
	MonthlyPrice     decimal.Decimal `json:"monthly_price"`
	DiscountFactor   decimal.Decimal `json:"discount_factor"`
	SubscriptionCost decimal.Decimal `json:"subscription_cost"`
	ServicesCost     decimal.Decimal `json:"services_cost"`
	Total            decimal.Decimal `json:"total"`
}
