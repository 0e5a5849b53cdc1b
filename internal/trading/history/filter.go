package history

import (
	"time"

	"tradeview/pkg/tradingapi"
)

// Filter narrows a transaction list for display. Zero values mean "no
// constraint".
type Filter struct {
	Kind string // "buy", "sell" or "" for all
	From time.Time
	To   time.Time
}

// Apply returns the entries matching the filter, preserving order. The input
// is never mutated.
func (q Filter) Apply(entries []tradingapi.Transaction) []tradingapi.Transaction {
	out := make([]tradingapi.Transaction, 0, len(entries))
	for _, t := range entries {
		if q.Kind != "" && t.Type != q.Kind {
			continue
		}
		if !q.From.IsZero() && t.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && t.Timestamp.After(q.To) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Paginate returns the given page of entries. Page is zero-based; an
// out-of-range page or non-positive page size yields an empty slice.
func Paginate(entries []tradingapi.Transaction, page, pageSize int) []tradingapi.Transaction {
	if page < 0 || pageSize <= 0 {
		return nil
	}

	start := page * pageSize
	if start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}

	out := make([]tradingapi.Transaction, end-start)
	copy(out, entries[start:end])
	return out
}
