// Package history maintains the session user's recent transaction feed:
// a polled, bounded list of the latest transactions with pure filter and
// pagination helpers for the consuming views.
package history

import (
	"context"
	"sync"
	"time"

	"tradeview/pkg/tradingapi"

	"go.uber.org/zap"
)

// DefaultLimit bounds how many recent transactions the feed retains.
const DefaultLimit = 20

// Source is the slice of the REST client the feed needs.
type Source interface {
	GetTransactions(ctx context.Context, userID string) ([]tradingapi.Transaction, error)
}

type Feed struct {
	mu      sync.Mutex
	entries []tradingapi.Transaction
	limit   int

	source  Source
	userID  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewFeed(source Source, userID string, timeout time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		limit:   DefaultLimit,
		source:  source,
		userID:  userID,
		timeout: timeout,
		logger:  logger,
	}
}

// Run refreshes the feed once immediately, then on the given interval until
// ctx is cancelled.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	f.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh pulls the transaction history and keeps the most recent entries,
// newest first. Fetch failures leave the previous feed untouched.
func (f *Feed) Refresh(ctx context.Context) {
	if f.userID == "" {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	txns, err := f.source.GetTransactions(reqCtx, f.userID)
	if err != nil {
		f.logger.Warn("failed to fetch transactions, keeping last known feed", zap.Error(err))
		return
	}

	f.mu.Lock()
	f.entries = tail(txns, f.limit)
	f.mu.Unlock()
}

// Entries returns a copy of the current feed, newest first.
func (f *Feed) Entries() []tradingapi.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]tradingapi.Transaction, len(f.entries))
	copy(out, f.entries)
	return out
}

// tail keeps the last limit entries of the server-ordered list (oldest
// first) and reverses them so the newest comes first.
func tail(txns []tradingapi.Transaction, limit int) []tradingapi.Transaction {
	if len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}

	out := make([]tradingapi.Transaction, len(txns))
	for i, t := range txns {
		out[len(txns)-1-i] = t
	}
	return out
}
