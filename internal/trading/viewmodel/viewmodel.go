package viewmodel

import (
	"context"
	"sync"
	"time"

	"tradeview/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceQuote is the merged price entry for one symbol. Both feed adapters
// write quotes through IngestQuote; the newest SourceTimestamp wins.
type PriceQuote struct {
	Symbol          string
	Price           decimal.Decimal
	ChangeAbsolute  decimal.Decimal
	ChangePercent   decimal.Decimal
	SourceTimestamp time.Time
}

// Holding is one position of the session user's portfolio.
type Holding struct {
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal
}

// AccountView is a point-in-time copy of the account state, safe for the
// caller to keep or hand to the metrics calculator.
type AccountView struct {
	CashBalance decimal.Decimal
	Holdings    map[string]Holding
}

// OrderPlacer dispatches a confirm request for an optimistic order to the
// remote order API.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, kind OrderKind, symbol string, quantity int64, price decimal.Decimal) error
}

// MarketView merges snapshot and incremental updates into one authoritative
// in-memory state, applies optimistic mutations for user-submitted orders and
// reconciles them against server confirmation or rejection.
//
// Every mutation runs entirely inside one critical section, so quote ingest,
// order submission and reconciliation are serialized the same way a
// single-threaded event loop would serialize them.
type MarketView struct {
	mu       sync.Mutex
	session  config.SessionContext
	quotes   map[string]PriceQuote
	cash     decimal.Decimal
	holdings map[string]Holding
	pending  map[string]*PendingOrder
	nextSeq  uint64
	placer   OrderPlacer
	onSettle func(order PendingOrder, err error)
	logger   *zap.Logger
}

// New creates a MarketView for the given session. The session is explicit:
// core logic performs no ambient credential or user lookups.
func New(session config.SessionContext, placer OrderPlacer, logger *zap.Logger) *MarketView {
	return &MarketView{
		session:  session,
		quotes:   make(map[string]PriceQuote),
		cash:     decimal.Zero,
		holdings: make(map[string]Holding),
		pending:  make(map[string]*PendingOrder),
		placer:   placer,
		logger:   logger,
	}
}

// SetSettleHandler sets the function invoked when a submitted order settles.
// err is nil for confirmed orders and an *OrderRejected for rejected ones.
// Must be called before the first SubmitOrder.
func (m *MarketView) SetSettleHandler(h func(order PendingOrder, err error)) {
	m.onSettle = h
}

// UserID returns the session user this view belongs to.
func (m *MarketView) UserID() string {
	return m.session.UserID
}

// IngestQuote applies a last-writer-wins merge keyed by SourceTimestamp:
// a strictly older quote for a symbol is dropped, equal or missing timestamps
// fall back to arrival order. Re-ingesting an identical quote is a no-op
// observable-state-wise, so poller and stream may deliver out of order.
func (m *MarketView) IngestQuote(q PriceQuote) {
	if q.Symbol == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestLocked(q)
}

func (m *MarketView) ingestLocked(q PriceQuote) {
	existing, ok := m.quotes[q.Symbol]
	if ok && !q.SourceTimestamp.IsZero() && !existing.SourceTimestamp.IsZero() &&
		q.SourceTimestamp.Before(existing.SourceTimestamp) {
		return
	}
	m.quotes[q.Symbol] = q
}

// Quote returns the current quote for a symbol, if one has been ingested.
func (m *MarketView) Quote(symbol string) (PriceQuote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.quotes[symbol]
	return q, ok
}

// Quotes returns a copy of the full price table.
func (m *MarketView) Quotes() map[string]PriceQuote {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]PriceQuote, len(m.quotes))
	for sym, q := range m.quotes {
		out[sym] = q
	}
	return out
}

// Account returns a copy of the current account state, including any
// optimistic in-flight deltas.
func (m *MarketView) Account() AccountView {
	m.mu.Lock()
	defer m.mu.Unlock()

	holdings := make(map[string]Holding, len(m.holdings))
	for sym, h := range m.holdings {
		holdings[sym] = h
	}
	return AccountView{CashBalance: m.cash, Holdings: holdings}
}

// Holding returns the current position for a symbol.
func (m *MarketView) Holding(symbol string) (Holding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holdings[symbol]
	return h, ok
}

// CashBalance returns the current cash balance including optimistic deltas.
func (m *MarketView) CashBalance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash
}

// PendingCount returns the number of unsettled orders.
func (m *MarketView) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
