package activity

import (
	"context"
	"fmt"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PrepareInvestment loads the campaign settings snapshot and the ledger
// totals, then runs the business rules in order. The first failing rule
// records a refund and ends the run normally: a rejection is an answer, not
// an error. Missing settings are fatal since nothing can be validated
// without them.
func (c *Context) PrepareInvestment(ctx context.Context, event types.InvestmentEvent) (types.PrepareOutput, error) {
	settings, err := c.DB.GetSettings(ctx)
	if err != nil {
		return types.PrepareOutput{}, err
	}
	if settings == nil {
		return types.PrepareOutput{}, fmt.Errorf("campaign settings not configured")
	}

	soldTokens, err := c.Ledger.SoldTokens(ctx)
	if err != nil {
		return types.PrepareOutput{}, err
	}
	investedUsd, err := c.Ledger.InvestedUsd(ctx)
	if err != nil {
		return types.PrepareOutput{}, err
	}

	reason, ok := rejectionReason(settings, event, soldTokens, investedUsd)
	if ok {
		if err := c.DB.SaveRefund(ctx, event.Email, reason, eventPayload(event)); err != nil {
			return types.PrepareOutput{}, fmt.Errorf("save refund: %w", err)
		}
		c.Logger.Warn("investment rejected",
			zap.String("email", event.Email),
			zap.String("unique_id", event.UniqueID),
			zap.String("reason", string(reason)))
		return types.PrepareOutput{Rejected: true, Reason: reason}, nil
	}

	return types.PrepareOutput{
		Settings:    settings,
		SoldTokens:  soldTokens,
		InvestedUsd: investedUsd,
	}, nil
}

// rejectionReason evaluates the business rules in order; the first failing
// rule wins.
func rejectionReason(
	settings *campaignmodels.CampaignSettings,
	event types.InvestmentEvent,
	soldTokens, investedUsd decimal.Decimal,
) (campaignmodels.RefundReason, bool) {
	at := event.CreatedUTC

	preSale := settings.IsPreSale(at)
	crowdSale := settings.IsCrowdSale(at)

	switch {
	case !preSale && !crowdSale:
		return campaignmodels.RefundOutOfDates, true
	case preSale && soldTokens.GreaterThanOrEqual(settings.PreSaleTokensTotal):
		return campaignmodels.RefundPreSaleTokensSoldOut, true
	case crowdSale && soldTokens.GreaterThanOrEqual(settings.TotalTokensAmount()):
		return campaignmodels.RefundTokensSoldOut, true
	case crowdSale && investedUsd.GreaterThanOrEqual(settings.HardCapUsd):
		return campaignmodels.RefundHardCapUsdExceeded, true
	}
	return "", false
}
