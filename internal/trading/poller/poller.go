// Package poller is the polling feed adapter: it periodically pulls full
// snapshots of stock prices and account state from the trading API and hands
// them to the view-model. Polling is the correctness floor; the push stream
// only lowers latency on top of it.
package poller

import (
	"context"
	"time"

	"tradeview/config"
	"tradeview/internal/trading/viewmodel"
	"tradeview/pkg/tradingapi"

	"go.uber.org/zap"
)

// SnapshotSource is the slice of the REST client the poller needs.
type SnapshotSource interface {
	GetStocks(ctx context.Context) ([]tradingapi.Stock, error)
	GetPortfolio(ctx context.Context, userID string) ([]tradingapi.PortfolioEntry, error)
	GetBalance(ctx context.Context, userID string) (tradingapi.Balance, error)
}

type Poller struct {
	source  SnapshotSource
	view    *viewmodel.MarketView
	cfg     config.PollConfig
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func New(source SnapshotSource, view *viewmodel.MarketView, cfg config.PollConfig, timeout time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		source:  source,
		view:    view,
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Run refreshes prices and account data once immediately, then on their
// configured intervals until ctx is cancelled. Both tickers are stopped on
// return. Fetch failures are logged and the previous state stays untouched,
// so a flaky backend degrades to stale-but-present data.
func (p *Poller) Run(ctx context.Context) {
	p.RefreshPrices(ctx)
	p.RefreshAccount(ctx)

	prices := time.NewTicker(p.cfg.Prices)
	defer prices.Stop()
	account := time.NewTicker(p.cfg.Account)
	defer account.Stop()

	for {
		select {
		case <-prices.C:
			p.RefreshPrices(ctx)
		case <-account.C:
			p.RefreshAccount(ctx)
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		}
	}
}

// RefreshPrices pulls the stock listing and merges it into the price table.
func (p *Poller) RefreshPrices(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stocks, err := p.source.GetStocks(reqCtx)
	if err != nil {
		p.logger.Warn("failed to fetch stocks, keeping last known prices", zap.Error(err))
		return
	}

	at := p.now()
	quotes := make([]viewmodel.PriceQuote, 0, len(stocks))
	for _, s := range stocks {
		quotes = append(quotes, viewmodel.PriceQuote{
			Symbol:          s.Symbol,
			Price:           s.CurrentPrice,
			SourceTimestamp: at,
		})
	}
	p.view.ApplyStockSnapshot(quotes)
}

// RefreshAccount pulls portfolio and balance and merges them into the
// account state. Both requests must succeed; a partial snapshot is never
// applied.
func (p *Poller) RefreshAccount(ctx context.Context) {
	userID := p.view.UserID()
	if userID == "" {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	entries, err := p.source.GetPortfolio(reqCtx, userID)
	if err != nil {
		p.logger.Warn("failed to fetch portfolio, keeping last known account state", zap.Error(err))
		return
	}
	balance, err := p.source.GetBalance(reqCtx, userID)
	if err != nil {
		p.logger.Warn("failed to fetch balance, keeping last known account state", zap.Error(err))
		return
	}

	holdings := make([]viewmodel.Holding, 0, len(entries))
	for _, e := range entries {
		holdings = append(holdings, viewmodel.Holding{
			Symbol:      e.StockSymbol,
			Quantity:    e.Quantity,
			AverageCost: e.AveragePrice,
		})
	}
	p.view.ApplyAccountSnapshot(balance.Balance, holdings)
}
