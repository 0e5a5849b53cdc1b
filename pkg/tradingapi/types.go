package tradingapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one entry of the GET /stocks listing.
type Stock struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

// PortfolioEntry is one entry of GET /users/{id}/portfolio.
type PortfolioEntry struct {
	StockSymbol  string          `json:"stockSymbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

// Balance is the GET /users/{id}/balance payload.
type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

// OrderRequest is the POST /txn/buy and /txn/sell body.
type OrderRequest struct {
	UserID      string          `json:"userId"`
	StockSymbol string          `json:"stockSymbol"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Transaction is one entry of the GET /txn/{userId} history listing.
// Type is "buy" or "sell".
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	StockSymbol string          `json:"stockSymbol"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
}

// LoanRequest is the POST /loan/take and /loan/repay body.
type LoanRequest struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// LoanStatus is the GET /loan/{userId} payload.
type LoanStatus struct {
	UserID      string          `json:"userId"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// APIError is returned when the trading API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trading api error: status=%d body=%s", e.StatusCode, e.Body)
}
