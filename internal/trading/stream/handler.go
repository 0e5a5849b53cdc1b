// Package stream is the push feed adapter's message handling: it parses
// incoming WebSocket frames into at most one PriceQuote each and forwards it
// to the view-model.
package stream

import (
	"encoding/json"
	"time"

	"tradeview/internal/trading/viewmodel"

	"go.uber.org/zap"
)

// QuoteSink receives parsed quotes. Satisfied by *viewmodel.MarketView.
type QuoteSink interface {
	IngestQuote(q viewmodel.PriceQuote)
}

// MakeMessageHandler returns the function wired into the WebSocket client.
// Malformed frames and unknown message types are dropped with a log entry,
// never raised: push is a latency optimization, losing one frame costs at
// most one polling interval of freshness.
func MakeMessageHandler(logger *zap.Logger, sink QuoteSink) func(msg []byte) {
	return makeMessageHandler(logger, sink, time.Now)
}

func makeMessageHandler(logger *zap.Logger, sink QuoteSink, now func() time.Time) func(msg []byte) {
	return func(msg []byte) {
		var parsed stockUpdateMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("dropping malformed push message", zap.Error(err))
			return
		}
		if parsed.Type != typeStockUpdate {
			return // subscription acks, heartbeats and the like
		}
		if parsed.Payload.Symbol == "" {
			logger.Warn("dropping stock update without symbol")
			return
		}

		sink.IngestQuote(viewmodel.PriceQuote{
			Symbol:          parsed.Payload.Symbol,
			Price:           parsed.Payload.Price,
			ChangeAbsolute:  parsed.Payload.Change,
			ChangePercent:   parsed.Payload.ChangePercent,
			SourceTimestamp: now(),
		})
	}
}
