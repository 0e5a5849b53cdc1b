package stream

import "github.com/shopspring/decimal"

// stockUpdateMessage is the push-channel envelope. Only type "stockUpdate"
// carries a quote; everything else is ignored.
type stockUpdateMessage struct {
	Type    string      `json:"type"`
	Payload stockUpdate `json:"payload"`
}

type stockUpdate struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

const typeStockUpdate = "stockUpdate"
