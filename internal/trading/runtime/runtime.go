// Package runtime wires the feed adapters, the view-model and the history
// feed into a running client.
package runtime

import (
	"context"
	"time"

	"tradeview/config"
	"tradeview/internal/trading/history"
	"tradeview/internal/trading/metrics"
	"tradeview/internal/trading/poller"
	"tradeview/internal/trading/stream"
	"tradeview/internal/trading/viewmodel"
	"tradeview/pkg/tradingapi"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client bundles the running components so consuming surfaces (screens,
// widgets) can read state and submit orders.
type Client struct {
	View    *viewmodel.MarketView
	History *history.Feed
	REST    *tradingapi.RESTClient

	maxLoan decimal.Decimal
}

// LoanEligibility returns how much more the session user may borrow, based on
// the current cash balance.
func (c *Client) LoanEligibility() decimal.Decimal {
	return metrics.LoanEligibility(c.View.CashBalance(), c.maxLoan)
}

// RequestLoan validates the amount against the user's eligibility and issues
// the loan request. A *viewmodel.ValidationError means nothing was sent.
func (c *Client) RequestLoan(ctx context.Context, amount decimal.Decimal) error {
	if err := metrics.ValidateLoanRequest(amount, c.View.CashBalance(), c.maxLoan); err != nil {
		return err
	}
	return c.REST.TakeLoan(ctx, tradingapi.LoanRequest{UserID: c.View.UserID(), Amount: amount})
}

// RepayLoan repays part or all of the outstanding loan.
func (c *Client) RepayLoan(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &viewmodel.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return c.REST.RepayLoan(ctx, tradingapi.LoanRequest{UserID: c.View.UserID(), Amount: amount})
}

// StartClient resolves the session, builds the REST and WebSocket clients and
// starts the polling adapter, the push listener and the history feed. All
// background work stops when ctx is cancelled. The push connection is best
// effort: if it cannot be established or later drops, the client keeps
// running on polling alone.
func StartClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	session := cfg.Session.Resolve(cfg.Log.Environment)
	restClient := tradingapi.NewRESTClient(cfg.API.REST.BaseURL, session.Token, cfg.API.REST.Timeout)

	view := viewmodel.New(session, &restPlacer{client: restClient, userID: session.UserID}, logger)
	view.SetSettleHandler(func(order viewmodel.PendingOrder, err error) {
		if err != nil {
			logger.Warn("order settled with rejection", zap.String("order_id", order.ID), zap.Error(err))
		}
	})

	p := poller.New(restClient, view, cfg.Poll, cfg.API.REST.Timeout, logger)
	go p.Run(ctx)

	feed := history.NewFeed(restClient, session.UserID, cfg.API.REST.Timeout, logger)
	go feed.Run(ctx, cfg.Poll.Transactions)

	startPushFeed(ctx, cfg, view, logger)

	go logStateSummary(ctx, view, logger)

	return &Client{
		View:    view,
		History: feed,
		REST:    restClient,
		maxLoan: decimal.NewFromFloat(cfg.Loan.MaxAmount),
	}, nil
}

func startPushFeed(ctx context.Context, cfg *config.Config, view *viewmodel.MarketView, logger *zap.Logger) {
	wsClient := tradingapi.NewWSClient(cfg.API.WS.URL, cfg.API.WS.PingInterval, logger)
	wsClient.SetMessageHandler(stream.MakeMessageHandler(logger, view))

	if err := wsClient.Connect(); err != nil {
		logger.Warn("push feed unavailable, relying on polling", zap.Error(err))
		return
	}

	go wsClient.Listen()
	go func() {
		select {
		case <-ctx.Done():
			wsClient.Close()
		case <-wsClient.Done():
			// Connection dropped; polling remains the correctness floor.
		}
	}()
}

// logStateSummary periodically reports the merged state for visibility.
func logStateSummary(ctx context.Context, view *viewmodel.MarketView, logger *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			account := view.Account()
			quotes := view.Quotes()
			logger.Info("current view state",
				zap.String("cash", account.CashBalance.String()),
				zap.Int("holdings", len(account.Holdings)),
				zap.String("portfolio_value", metrics.PortfolioValue(account, quotes).String()),
				zap.Int("quotes", len(quotes)),
				zap.Int("pending_orders", view.PendingCount()),
			)
		case <-ctx.Done():
			return
		}
	}
}

// restPlacer adapts the REST client to the view-model's OrderPlacer.
type restPlacer struct {
	client *tradingapi.RESTClient
	userID string
}

func (p *restPlacer) PlaceOrder(ctx context.Context, kind viewmodel.OrderKind, symbol string, quantity int64, price decimal.Decimal) error {
	req := tradingapi.OrderRequest{
		UserID:      p.userID,
		StockSymbol: symbol,
		Quantity:    quantity,
		Price:       price,
	}
	if kind == viewmodel.Sell {
		return p.client.Sell(ctx, req)
	}
	return p.client.Buy(ctx, req)
}
