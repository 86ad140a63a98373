package ledger

import (
	"context"
	"fmt"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

// Counter names the campaign-wide counters. Counters only ever grow, one
// atomic increment per accepted transaction.
type Counter string

const (
	AmountInvestedBtc   Counter = "saleflow:campaign:amount_invested_btc"
	AmountInvestedEth   Counter = "saleflow:campaign:amount_invested_eth"
	AmountInvestedFiat  Counter = "saleflow:campaign:amount_invested_fiat"
	AmountInvestedToken Counter = "saleflow:campaign:amount_invested_token"
	AmountInvestedUsd   Counter = "saleflow:campaign:amount_invested_usd"
)

// CounterFor maps a deposit currency to its raw-amount counter.
func CounterFor(c campaignmodels.Currency) (Counter, bool) {
	switch c {
	case campaignmodels.CurrencyBTC:
		return AmountInvestedBtc, true
	case campaignmodels.CurrencyETH:
		return AmountInvestedEth, true
	case campaignmodels.CurrencyFiat:
		return AmountInvestedFiat, true
	}
	return "", false
}

// Store is the counter store contract. IncrementValue must be an atomic
// server-side increment taking the delta as a decimal string; the ledger is
// shared by concurrent processors and a read-then-write implementation would
// lose updates, and these counters feed the sold-out and hard-cap checks so
// the delta must not pass through a binary float on the way in.
type Store interface {
	GetValue(ctx context.Context, name string) (string, bool, error)
	IncrementValue(ctx context.Context, name string, delta string) error
}

// Ledger reads and advances the campaign counters.
type Ledger struct {
	store Store
}

// New wraps a counter store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Value returns a counter as a decimal, zero when the counter does not exist
// yet or holds an unparseable value (mirrors treating a fresh campaign as
// all-zero).
func (l *Ledger) Value(ctx context.Context, c Counter) (decimal.Decimal, error) {
	raw, ok, err := l.store.GetValue(ctx, string(c))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read counter %s: %w", c, err)
	}
	if !ok {
		return decimal.Zero, nil
	}
	v, parseErr := decimal.NewFromString(raw)
	if parseErr != nil {
		return decimal.Zero, nil
	}
	return v, nil
}

// Increment atomically adds delta to a counter.
func (l *Ledger) Increment(ctx context.Context, c Counter, delta decimal.Decimal) error {
	if err := l.store.IncrementValue(ctx, string(c), delta.String()); err != nil {
		return fmt.Errorf("increment counter %s: %w", c, err)
	}
	return nil
}

// SoldTokens is the cumulative token volume sold so far.
func (l *Ledger) SoldTokens(ctx context.Context) (decimal.Decimal, error) {
	return l.Value(ctx, AmountInvestedToken)
}

// InvestedUsd is the cumulative USD accepted so far.
func (l *Ledger) InvestedUsd(ctx context.Context) (decimal.Decimal, error) {
	return l.Value(ctx, AmountInvestedUsd)
}
