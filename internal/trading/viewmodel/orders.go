package viewmodel

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderKind string

const (
	Buy  OrderKind = "buy"
	Sell OrderKind = "sell"
)

type OrderState string

const (
	// Optimistic: the local mutation is applied, the confirm request is in flight.
	Optimistic OrderState = "optimistic"
	// Confirmed: the server acknowledged the order; the optimistic mutation is
	// already the new truth.
	Confirmed OrderState = "confirmed"
	// Rejected: the server declined the order; the inverse mutation has been
	// replayed.
	Rejected OrderState = "rejected"
)

// PendingOrder tracks one user-submitted order from optimistic apply until
// settlement. It is the sole mutator of the referenced holding during its
// lifetime.
type PendingOrder struct {
	ID       string
	Kind     OrderKind
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	State    OrderState

	// Submission sequence, used to re-apply in-flight deltas in a stable
	// order when a snapshot refresh lands.
	seq uint64
	// Average cost of the holding when the optimistic mutation was applied;
	// prices the inverse of a sell.
	appliedAvgCost decimal.Decimal
}

// Cost returns quantity x price.
func (o PendingOrder) Cost() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// SubmitOrder validates the order, applies its optimistic mutation
// synchronously and dispatches the confirm request asynchronously. A
// precondition violation returns a *ValidationError with no state change.
// Settlement is reported through the settle handler.
func (m *MarketView) SubmitOrder(ctx context.Context, kind OrderKind, symbol string, quantity int64, price decimal.Decimal) (PendingOrder, error) {
	m.mu.Lock()

	if err := m.validateOrder(kind, symbol, quantity, price); err != nil {
		m.mu.Unlock()
		return PendingOrder{}, err
	}

	m.nextSeq++
	order := &PendingOrder{
		ID:       uuid.NewString(),
		Kind:     kind,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		State:    Optimistic,
		seq:      m.nextSeq,
	}
	m.applyOptimistic(order)
	m.pending[order.ID] = order
	snapshot := *order

	m.mu.Unlock()

	m.logger.Info("order submitted",
		zap.String("order_id", snapshot.ID),
		zap.String("kind", string(kind)),
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()),
	)

	go m.dispatchConfirm(ctx, snapshot)

	return snapshot, nil
}

// Resolve settles a pending order against the confirm request outcome.
// Duplicate resolutions for the same order are no-ops: the first call removes
// the order, so the inverse replay can run at most once.
func (m *MarketView) Resolve(orderID string, confirmErr error) {
	m.mu.Lock()

	order, ok := m.pending[orderID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.pending, orderID)

	if confirmErr == nil {
		// The optimistic mutation is already the new truth; nothing to replay.
		order.State = Confirmed
	} else {
		order.State = Rejected
		m.revertOptimistic(order)
	}
	snapshot := *order

	m.mu.Unlock()

	var settleErr error
	if confirmErr != nil {
		settleErr = &OrderRejected{Order: snapshot, Cause: confirmErr}
		m.logger.Warn("order rejected, optimistic mutation reverted",
			zap.String("order_id", snapshot.ID),
			zap.String("symbol", snapshot.Symbol),
			zap.Error(confirmErr),
		)
	} else {
		m.logger.Info("order confirmed", zap.String("order_id", snapshot.ID))
	}

	if m.onSettle != nil {
		m.onSettle(snapshot, settleErr)
	}
}

func (m *MarketView) dispatchConfirm(ctx context.Context, order PendingOrder) {
	err := m.placer.PlaceOrder(ctx, order.Kind, order.Symbol, order.Quantity, order.Price)
	m.Resolve(order.ID, err)
}

func (m *MarketView) validateOrder(kind OrderKind, symbol string, quantity int64, price decimal.Decimal) error {
	if symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}

	switch kind {
	case Buy:
		cost := price.Mul(decimal.NewFromInt(quantity))
		if cost.GreaterThan(m.cash) {
			return &ValidationError{Field: "quantity", Reason: "order cost exceeds cash balance"}
		}
	case Sell:
		held := m.holdings[symbol]
		if quantity > held.Quantity {
			return &ValidationError{Field: "quantity", Reason: "exceeds held quantity"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: "must be buy or sell"}
	}

	return nil
}

// applyOptimistic mutates the account for the order and records the cost
// basis a later inverse needs. Callers hold m.mu.
func (m *MarketView) applyOptimistic(order *PendingOrder) {
	prev := m.holdings[order.Symbol]
	cost := order.Cost()

	switch order.Kind {
	case Buy:
		m.cash = m.cash.Sub(cost)

		newQty := prev.Quantity + order.Quantity
		prevCost := prev.AverageCost.Mul(decimal.NewFromInt(prev.Quantity))
		avg := prevCost.Add(cost).Div(decimal.NewFromInt(newQty))
		m.holdings[order.Symbol] = Holding{Symbol: order.Symbol, Quantity: newQty, AverageCost: avg}
	case Sell:
		order.appliedAvgCost = prev.AverageCost
		m.cash = m.cash.Add(cost)

		newQty := prev.Quantity - order.Quantity
		if newQty <= 0 {
			delete(m.holdings, order.Symbol)
		} else {
			m.holdings[order.Symbol] = Holding{Symbol: order.Symbol, Quantity: newQty, AverageCost: prev.AverageCost}
		}
	}
}

// revertOptimistic undoes this order's own deltas against the current state:
// the cash delta is reversed and the order's quantity and cost basis are
// backed out of the holding. Other in-flight orders on the same symbol keep
// their mutations. Callers hold m.mu.
func (m *MarketView) revertOptimistic(order *PendingOrder) {
	cur := m.holdings[order.Symbol]
	cost := order.Cost()

	switch order.Kind {
	case Buy:
		m.cash = m.cash.Add(cost)

		newQty := cur.Quantity - order.Quantity
		if newQty <= 0 {
			delete(m.holdings, order.Symbol)
			return
		}
		curCost := cur.AverageCost.Mul(decimal.NewFromInt(cur.Quantity))
		remaining := curCost.Sub(cost)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		m.holdings[order.Symbol] = Holding{
			Symbol:      order.Symbol,
			Quantity:    newQty,
			AverageCost: remaining.Div(decimal.NewFromInt(newQty)),
		}
	case Sell:
		m.cash = m.cash.Sub(cost)

		newQty := cur.Quantity + order.Quantity
		curCost := cur.AverageCost.Mul(decimal.NewFromInt(cur.Quantity))
		restored := curCost.Add(order.appliedAvgCost.Mul(decimal.NewFromInt(order.Quantity)))
		m.holdings[order.Symbol] = Holding{
			Symbol:      order.Symbol,
			Quantity:    newQty,
			AverageCost: restored.Div(decimal.NewFromInt(newQty)),
		}
	}
}
