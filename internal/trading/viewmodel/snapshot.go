package viewmodel

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyStockSnapshot merges a full price refresh from the polling adapter.
// Each entry goes through the same last-writer-wins rule as push quotes, so
// a snapshot racing a fresher push update never moves a price backwards.
// Snapshot entries carry no change figures, so the ones already delivered by
// push updates are kept when an entry overwrites an existing quote.
func (m *MarketView) ApplyStockSnapshot(quotes []PriceQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range quotes {
		if q.Symbol == "" {
			continue
		}
		if existing, ok := m.quotes[q.Symbol]; ok {
			q.ChangeAbsolute = existing.ChangeAbsolute
			q.ChangePercent = existing.ChangePercent
		}
		m.ingestLocked(q)
	}
}

// ApplyAccountSnapshot replaces the account state with server truth, then
// re-applies the deltas of any in-flight optimistic orders on top so a
// refresh never visibly reverts the user's own pending action. Once those
// orders settle, the next refresh matches server truth exactly.
func (m *MarketView) ApplyAccountSnapshot(cash decimal.Decimal, holdings []Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cash = cash
	m.holdings = make(map[string]Holding, len(holdings))
	for _, h := range holdings {
		if h.Symbol == "" || h.Quantity <= 0 {
			continue
		}
		m.holdings[h.Symbol] = h
	}

	if len(m.pending) == 0 {
		return
	}

	// Stale-snapshot reconciliation. Replaying in submission order repeats
	// the original apply sequence, so sell cost bases are recaptured from the
	// same intermediate state they were first priced against.
	m.logger.Debug("account snapshot arrived with in-flight orders, re-applying optimistic deltas",
		zap.Int("pending", len(m.pending)),
	)
	orders := make([]*PendingOrder, 0, len(m.pending))
	for _, order := range m.pending {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].seq < orders[j].seq })
	for _, order := range orders {
		m.applyOptimistic(order)
	}
}
