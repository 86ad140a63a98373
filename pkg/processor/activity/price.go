package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/pricing"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/rates"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceInvestment resolves the exchange rate, prices the deposit into tiers
// and persists the transaction. Everything here is fatal on failure: until
// the transaction row exists, a retry is safe because the duplicate check
// still sees nothing.
func (c *Context) PriceInvestment(ctx context.Context, in types.PriceInput) (types.PriceOutput, error) {
	event := in.Event

	rate, err := c.resolveRate(ctx, event)
	if err != nil {
		return types.PriceOutput{}, err
	}

	account, err := c.DB.GetAccount(ctx, event.Email)
	if err != nil {
		return types.PriceOutput{}, err
	}
	if account == nil {
		return types.PriceOutput{}, fmt.Errorf("investor account %s not found", event.Email)
	}

	amountUsd := event.Amount.Mul(rate.Rate)

	tiers, err := c.Schedule.PriceList(in.Settings, account, event.CreatedUTC, amountUsd, in.SoldTokens)
	if err != nil {
		return types.PriceOutput{}, err
	}

	tierContext, err := json.Marshal(tiers)
	if err != nil {
		return types.PriceOutput{}, fmt.Errorf("marshal tier context: %w", err)
	}

	tx := &campaignmodels.InvestorTransaction{
		Email:               event.Email,
		UniqueID:            event.UniqueID,
		CreatedUTC:          event.CreatedUTC,
		Currency:            event.Currency,
		TransactionID:       event.TransactionID,
		BlockID:             event.BlockID,
		PayInAddress:        event.PayInAddress,
		Amount:              event.Amount,
		Fee:                 event.Fee,
		AmountUsd:           amountUsd,
		AmountToken:         pricing.SumCounts(tiers),
		TokenPrice:          pricing.EffectivePrice(tiers, amountUsd),
		TokenPriceContext:   string(tierContext),
		ExchangeRate:        rate.Rate,
		ExchangeRateContext: rate.Context,
	}

	if err := c.DB.SaveTransaction(ctx, tx); err != nil {
		return types.PriceOutput{}, fmt.Errorf("save transaction: %w", err)
	}

	c.Logger.Info("investment priced",
		zap.String("email", tx.Email),
		zap.String("unique_id", tx.UniqueID),
		zap.String("currency", string(tx.Currency)),
		zap.String("amount_usd", tx.AmountUsd.String()),
		zap.String("amount_token", tx.AmountToken.String()),
		zap.Int("tiers", len(tiers)))

	return types.PriceOutput{Tx: tx}, nil
}

// resolveRate returns the deposit's USD rate. Fiat is exactly 1; crypto
// queries the rate provider and refuses non-positive answers, the deposit
// must never be priced at a broken rate.
func (c *Context) resolveRate(ctx context.Context, event types.InvestmentEvent) (*rates.AverageRate, error) {
	if !event.Currency.IsCrypto() {
		return &rates.AverageRate{
			AssetPair: string(event.Currency),
			Rate:      decimal.NewFromInt(1),
		}, nil
	}

	rate, err := c.Rates.AverageRate(ctx, event.Currency.AssetPair(), event.CreatedUTC.Unix())
	if err != nil {
		return nil, fmt.Errorf("exchange rate %s at %s: %w",
			event.Currency.AssetPair(), event.CreatedUTC.Format(time.RFC3339), err)
	}
	if rate == nil || !rate.Rate.IsPositive() {
		return nil, fmt.Errorf("non-positive exchange rate for %s at %s",
			event.Currency.AssetPair(), event.CreatedUTC.Format(time.RFC3339))
	}
	return rate, nil
}
