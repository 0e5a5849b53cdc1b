package viewmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settleRecorder collects settle callbacks so tests can wait for the async
// confirm dispatch to finish.
type settleRecorder struct {
	ch chan error
}

func newSettleRecorder(view *MarketView) *settleRecorder {
	r := &settleRecorder{ch: make(chan error, 4)}
	view.SetSettleHandler(func(order PendingOrder, err error) {
		r.ch <- err
	})
	return r
}

func (r *settleRecorder) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for order to settle")
		return nil
	}
}

func TestSubmitOrder_BuyExceedingCashFails(t *testing.T) {
	view := newTestView(newStubPlacer())
	view.ApplyAccountSnapshot(dec(500), nil)

	_, err := view.SubmitOrder(context.Background(), Buy, "AAPL", 10, dec(100))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, dec(500).Equal(view.CashBalance()))
	assert.Empty(t, view.Account().Holdings)
	assert.Zero(t, view.PendingCount())
}

func TestSubmitOrder_SellExceedingHoldingFails(t *testing.T) {
	view := newTestView(newStubPlacer())
	view.ApplyAccountSnapshot(dec(0), []Holding{
		{Symbol: "AAPL", Quantity: 3, AverageCost: dec(50)},
	})

	_, err := view.SubmitOrder(context.Background(), Sell, "AAPL", 5, dec(100))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	h, ok := view.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(3), h.Quantity)
}

func TestSubmitOrder_PreconditionTable(t *testing.T) {
	testCases := []struct {
		name     string
		kind     OrderKind
		symbol   string
		quantity int64
		price    decimal.Decimal
	}{
		{"zero quantity", Buy, "AAPL", 0, dec(10)},
		{"negative quantity", Buy, "AAPL", -1, dec(10)},
		{"negative price", Buy, "AAPL", 1, dec(-10)},
		{"empty symbol", Buy, "", 1, dec(10)},
		{"unknown kind", OrderKind("short"), "AAPL", 1, dec(10)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			view := newTestView(newStubPlacer())
			view.ApplyAccountSnapshot(dec(1000), nil)

			_, err := view.SubmitOrder(context.Background(), tc.kind, tc.symbol, tc.quantity, tc.price)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, dec(1000).Equal(view.CashBalance()))
			assert.Zero(t, view.PendingCount())
		})
	}
}

func TestSubmitOrder_BuyAppliesOptimisticallyAndConfirms(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	recorder := newSettleRecorder(view)
	view.ApplyAccountSnapshot(dec(1000), nil)

	order, err := view.SubmitOrder(context.Background(), Buy, "MSFT", 2, dec(300))
	require.NoError(t, err)
	assert.Equal(t, Optimistic, order.State)

	// Optimistic mutation is visible before the confirm resolves.
	assert.True(t, dec(400).Equal(view.CashBalance()))
	h, ok := view.Holding("MSFT")
	require.True(t, ok)
	assert.Equal(t, int64(2), h.Quantity)
	assert.True(t, dec(300).Equal(h.AverageCost))

	placer.release <- nil
	require.NoError(t, recorder.wait(t))

	// Confirmed: the optimistic mutation is the new truth, nothing replayed.
	assert.True(t, dec(400).Equal(view.CashBalance()))
	assert.Zero(t, view.PendingCount())
}

func TestSubmitOrder_BuyRejectionRevertsExactly(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	recorder := newSettleRecorder(view)
	view.ApplyAccountSnapshot(dec(1000), nil)

	_, err := view.SubmitOrder(context.Background(), Buy, "MSFT", 2, dec(300))
	require.NoError(t, err)

	placer.release <- errors.New("insufficient funds on server")
	settleErr := recorder.wait(t)

	var rejected *OrderRejected
	require.ErrorAs(t, settleErr, &rejected)
	assert.Equal(t, Rejected, rejected.Order.State)

	assert.True(t, dec(1000).Equal(view.CashBalance()))
	_, ok := view.Holding("MSFT")
	assert.False(t, ok, "rejected buy must remove the holding it created")
	assert.Zero(t, view.PendingCount())
}

func TestSubmitOrder_BuyUpdatesAverageCost(t *testing.T) {
	view := newTestView(newStubPlacer())
	view.ApplyAccountSnapshot(dec(1000), []Holding{
		{Symbol: "AAPL", Quantity: 10, AverageCost: dec(50)},
	})

	_, err := view.SubmitOrder(context.Background(), Buy, "AAPL", 5, dec(80))
	require.NoError(t, err)

	h, ok := view.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(15), h.Quantity)
	// (10*50 + 5*80) / 15 = 60
	assert.True(t, dec(60).Equal(h.AverageCost), "got %s", h.AverageCost)
}

func TestSubmitOrder_SellRejectionRestoresHolding(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	recorder := newSettleRecorder(view)
	view.ApplyAccountSnapshot(dec(100), []Holding{
		{Symbol: "AAPL", Quantity: 3, AverageCost: dec(50)},
	})

	_, err := view.SubmitOrder(context.Background(), Sell, "AAPL", 2, dec(60))
	require.NoError(t, err)

	// Optimistic: proceeds credited, quantity reduced.
	assert.True(t, dec(220).Equal(view.CashBalance()))
	h, _ := view.Holding("AAPL")
	assert.Equal(t, int64(1), h.Quantity)

	placer.release <- errors.New("server declined")
	settleErr := recorder.wait(t)
	require.Error(t, settleErr)

	assert.True(t, dec(100).Equal(view.CashBalance()))
	h, ok := view.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(3), h.Quantity)
	assert.True(t, dec(50).Equal(h.AverageCost))
}

func TestSubmitOrder_SellAllRemovesHolding(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	recorder := newSettleRecorder(view)
	view.ApplyAccountSnapshot(dec(0), []Holding{
		{Symbol: "AAPL", Quantity: 2, AverageCost: dec(50)},
	})

	_, err := view.SubmitOrder(context.Background(), Sell, "AAPL", 2, dec(55))
	require.NoError(t, err)

	_, ok := view.Holding("AAPL")
	assert.False(t, ok, "holding must be removed when quantity reaches 0")

	placer.release <- nil
	require.NoError(t, recorder.wait(t))
	assert.True(t, dec(110).Equal(view.CashBalance()))
}

// releasePlacer unblocks n in-flight confirm dispatches whose orders were
// already settled through Resolve; their late resolutions must be no-ops.
func releasePlacer(placer *stubPlacer, n int) {
	for i := 0; i < n; i++ {
		placer.release <- nil
	}
}

func TestSubmitOrder_OverlappingBuysSettleIndependently(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	view.ApplyAccountSnapshot(dec(1000), nil)
	defer releasePlacer(placer, 2)

	first, err := view.SubmitOrder(context.Background(), Buy, "MSFT", 2, dec(100))
	require.NoError(t, err)
	second, err := view.SubmitOrder(context.Background(), Buy, "MSFT", 3, dec(100))
	require.NoError(t, err)

	assert.True(t, dec(500).Equal(view.CashBalance()))
	h, _ := view.Holding("MSFT")
	assert.Equal(t, int64(5), h.Quantity)

	// Rejecting the first order must back out only its own quantity and cost;
	// the second order's shares stay.
	view.Resolve(first.ID, errors.New("declined"))

	assert.True(t, dec(700).Equal(view.CashBalance()))
	h, ok := view.Holding("MSFT")
	require.True(t, ok)
	assert.Equal(t, int64(3), h.Quantity)
	assert.True(t, dec(100).Equal(h.AverageCost))

	view.Resolve(second.ID, nil)

	assert.True(t, dec(700).Equal(view.CashBalance()))
	h, _ = view.Holding("MSFT")
	assert.Equal(t, int64(3), h.Quantity)
	assert.Zero(t, view.PendingCount())
}

func TestSubmitOrder_OverlappingBuysRevertKeepsAverageCost(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	view.ApplyAccountSnapshot(dec(2000), nil)
	defer releasePlacer(placer, 2)

	first, err := view.SubmitOrder(context.Background(), Buy, "AAPL", 2, dec(100))
	require.NoError(t, err)
	second, err := view.SubmitOrder(context.Background(), Buy, "AAPL", 3, dec(200))
	require.NoError(t, err)

	// (2*100 + 3*200) / 5 = 160
	h, _ := view.Holding("AAPL")
	assert.True(t, dec(160).Equal(h.AverageCost), "got %s", h.AverageCost)

	view.Resolve(second.ID, errors.New("declined"))

	assert.True(t, dec(1800).Equal(view.CashBalance()))
	h, ok := view.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(2), h.Quantity)
	assert.True(t, dec(100).Equal(h.AverageCost), "got %s", h.AverageCost)

	view.Resolve(first.ID, nil)
	assert.True(t, dec(1800).Equal(view.CashBalance()))
	assert.Zero(t, view.PendingCount())
}

func TestSubmitOrder_OverlappingSellsRevertIndependently(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	view.ApplyAccountSnapshot(dec(0), []Holding{
		{Symbol: "AAPL", Quantity: 10, AverageCost: dec(50)},
	})
	defer releasePlacer(placer, 2)

	first, err := view.SubmitOrder(context.Background(), Sell, "AAPL", 4, dec(60))
	require.NoError(t, err)
	second, err := view.SubmitOrder(context.Background(), Sell, "AAPL", 6, dec(60))
	require.NoError(t, err)

	// Both sells applied: all shares sold, proceeds credited.
	assert.True(t, dec(600).Equal(view.CashBalance()))
	_, ok := view.Holding("AAPL")
	assert.False(t, ok)

	// Rejecting the second sell restores its shares at their cost basis while
	// the first sell stays applied.
	view.Resolve(second.ID, errors.New("declined"))

	assert.True(t, dec(240).Equal(view.CashBalance()))
	h, ok := view.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(6), h.Quantity)
	assert.True(t, dec(50).Equal(h.AverageCost))

	view.Resolve(first.ID, nil)
	assert.True(t, dec(240).Equal(view.CashBalance()))
	assert.Zero(t, view.PendingCount())
}

func TestResolve_DuplicateSettleIsNoOp(t *testing.T) {
	placer := newStubPlacer()
	view := newTestView(placer)
	recorder := newSettleRecorder(view)
	view.ApplyAccountSnapshot(dec(1000), nil)

	order, err := view.SubmitOrder(context.Background(), Buy, "MSFT", 2, dec(300))
	require.NoError(t, err)

	placer.release <- errors.New("rejected")
	require.Error(t, recorder.wait(t))
	assert.True(t, dec(1000).Equal(view.CashBalance()))

	// A second failure callback for the same order must not reverse again.
	view.Resolve(order.ID, errors.New("rejected again"))
	assert.True(t, dec(1000).Equal(view.CashBalance()))

	// Nor may a late success resurrect it.
	view.Resolve(order.ID, nil)
	assert.True(t, dec(1000).Equal(view.CashBalance()))
	assert.Zero(t, view.PendingCount())
}

func TestResolve_UnknownOrderIgnored(t *testing.T) {
	view := newTestView(newStubPlacer())
	view.ApplyAccountSnapshot(dec(500), nil)

	view.Resolve("no-such-order", errors.New("boom"))

	assert.True(t, dec(500).Equal(view.CashBalance()))
}
