package activity

import (
	"context"

	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"go.uber.org/zap"
)

// UpdateLedger increments the campaign counters for one persisted
// transaction. Failures are logged and swallowed: the transaction row
// already exists, so letting Temporal retry the whole activity after a
// partial success would double-count the increments that did land.
func (c *Context) UpdateLedger(ctx context.Context, in types.SideEffectInput) error {
	tx := in.Tx

	if counter, ok := ledger.CounterFor(tx.Currency); ok {
		if err := c.Ledger.Increment(ctx, counter, tx.Amount); err != nil {
			c.Logger.Error("ledger increment failed",
				zap.String("counter", string(counter)),
				zap.String("unique_id", tx.UniqueID),
				zap.Error(err))
		}
	}

	if err := c.Ledger.Increment(ctx, ledger.AmountInvestedToken, tx.AmountToken); err != nil {
		c.Logger.Error("ledger increment failed",
			zap.String("counter", string(ledger.AmountInvestedToken)),
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
	}

	if err := c.Ledger.Increment(ctx, ledger.AmountInvestedUsd, tx.AmountUsd); err != nil {
		c.Logger.Error("ledger increment failed",
			zap.String("counter", string(ledger.AmountInvestedUsd)),
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
	}

	return nil
}

// UpdateAccount adds the transaction's amounts onto the investor account.
// Same failure contract as UpdateLedger.
func (c *Context) UpdateAccount(ctx context.Context, in types.SideEffectInput) error {
	tx := in.Tx

	err := c.DB.IncrementAmounts(ctx, tx.Email, tx.Currency, tx.Amount, tx.AmountUsd, tx.AmountToken)
	if err != nil {
		c.Logger.Error("account increment failed",
			zap.String("email", tx.Email),
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
	}

	return nil
}
