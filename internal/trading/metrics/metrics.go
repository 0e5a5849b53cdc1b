// Package metrics computes derived financial figures from a point-in-time
// account view and price table. Every function is deterministic and leaves
// its inputs untouched; a missing quote values a position at zero instead of
// failing.
package metrics

import (
	"tradeview/internal/trading/viewmodel"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarketValue returns quantity x current price for one holding. Symbols
// without a quote are valued at zero.
func MarketValue(h viewmodel.Holding, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	q, ok := quotes[h.Symbol]
	if !ok {
		return decimal.Zero
	}
	return q.Price.Mul(decimal.NewFromInt(h.Quantity))
}

// PortfolioValue returns the summed market value of all holdings.
func PortfolioValue(account viewmodel.AccountView, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	total := decimal.Zero
	for _, h := range account.Holdings {
		total = total.Add(MarketValue(h, quotes))
	}
	return total
}

// TotalAssets returns cash plus portfolio value.
func TotalAssets(account viewmodel.AccountView, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	return account.CashBalance.Add(PortfolioValue(account, quotes))
}

// ProfitLoss returns (current price - average cost) x quantity for one
// holding.
func ProfitLoss(h viewmodel.Holding, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	q, ok := quotes[h.Symbol]
	if !ok {
		return h.AverageCost.Neg().Mul(decimal.NewFromInt(h.Quantity))
	}
	return q.Price.Sub(h.AverageCost).Mul(decimal.NewFromInt(h.Quantity))
}

// ProfitLossPercent returns the profit or loss of one holding relative to its
// average cost, in percent. Zero-cost positions report zero.
func ProfitLossPercent(h viewmodel.Holding, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	if h.AverageCost.IsZero() {
		return decimal.Zero
	}
	q, ok := quotes[h.Symbol]
	if !ok {
		return hundred.Neg()
	}
	return q.Price.Sub(h.AverageCost).Div(h.AverageCost).Mul(hundred)
}

// AllocationPercent returns the holding's share of the total portfolio value
// as a fraction. An empty portfolio reports zero for every holding.
func AllocationPercent(h viewmodel.Holding, account viewmodel.AccountView, quotes map[string]viewmodel.PriceQuote) decimal.Decimal {
	total := PortfolioValue(account, quotes)
	if total.IsZero() {
		return decimal.Zero
	}
	return MarketValue(h, quotes).Div(total)
}

// LoanEligibility returns how much more the user may borrow: max(0, maxLoan -
// balance).
func LoanEligibility(balance, maxLoan decimal.Decimal) decimal.Decimal {
	eligible := maxLoan.Sub(balance)
	if eligible.IsNegative() {
		return decimal.Zero
	}
	return eligible
}

// ValidateLoanRequest checks a loan amount against the user's eligibility
// before the request is issued. A violation returns a *ValidationError and
// the request must not be sent.
func ValidateLoanRequest(amount, balance, maxLoan decimal.Decimal) error {
	if !amount.IsPositive() {
		return &viewmodel.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if amount.GreaterThan(LoanEligibility(balance, maxLoan)) {
		return &viewmodel.ValidationError{Field: "amount", Reason: "exceeds loan eligibility"}
	}
	return nil
}
