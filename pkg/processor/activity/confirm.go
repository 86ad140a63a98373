package activity

import (
	"context"

	"github.com/google/uuid"
	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/notify"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"go.uber.org/zap"
)

// SendConfirmation publishes the purchase confirmation, issuing a KYC
// request first when the investor's cumulative USD crossed the threshold.
// The reminder flag piggybacks on the confirmation when the total is still
// below the minimum invest amount.
//
// Every step is isolated: a failure is logged and the rest still runs. The
// transaction is already persisted and aggregated, so this activity must
// never fail the workflow and trigger a double-counting replay.
func (c *Context) SendConfirmation(ctx context.Context, in types.SideEffectInput) error {
	tx := in.Tx
	settings := in.Settings

	account, err := c.DB.GetAccount(ctx, tx.Email)
	if err != nil || account == nil {
		c.Logger.Error("confirmation skipped, account unavailable",
			zap.String("email", tx.Email),
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
		return nil
	}

	kycLink := c.issueKyc(ctx, settings, account)

	msg := &notify.PurchaseConfirmation{
		Email:             tx.Email,
		AssetName:         string(tx.Currency),
		PayedAmount:       tx.Amount,
		TransactionFee:    tx.Fee,
		TokenAmount:       tx.AmountToken,
		TokenPrice:        tx.TokenPrice,
		AmountUsd:         tx.AmountUsd,
		TotalUsd:          account.AmountUsd.Round(2),
		TotalToken:        account.AmountToken.Round(4),
		SummaryLink:       renderLink(c.SummaryURLTemplate, account.ConfirmationToken),
		TransactionLink:   in.Event.Link,
		KycRequired:       kycLink != "",
		KycLink:           kycLink,
		MinAmountViolated: account.AmountUsd.LessThan(settings.MinInvestAmountUsd),
		MinAmountUsd:      settings.MinInvestAmountUsd,
	}

	if err := c.Notifier.PublishConfirmation(ctx, msg); err != nil {
		c.Logger.Error("confirmation publish failed",
			zap.String("email", tx.Email),
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
	}

	accepted := &notify.AcceptedInvestment{
		Currency:    string(tx.Currency),
		AmountUsd:   tx.AmountUsd,
		AmountToken: tx.AmountToken,
		TokenPrice:  tx.TokenPrice,
		AcceptedAt:  tx.CreatedUTC,
	}
	if err := c.Notifier.PublishAccepted(ctx, accepted); err != nil {
		c.Logger.Error("live feed publish failed",
			zap.String("unique_id", tx.UniqueID),
			zap.Error(err))
	}

	return nil
}

// issueKyc creates a KYC request when one is due and returns its link.
// Returns an empty string when no request is due or issuance failed. The
// persisted KycRequestID is the guard against issuing twice: the account is
// re-read after the aggregation step, so a second qualifying transaction
// sees the id written by the first.
func (c *Context) issueKyc(ctx context.Context, settings *campaignmodels.CampaignSettings, account *campaignmodels.InvestorAccount) string {
	if !settings.KycEnableRequests {
		return ""
	}
	if account.KycRequestID != "" {
		return ""
	}
	if account.AmountUsd.LessThan(settings.KycThresholdUsd) {
		return ""
	}

	kycID := uuid.NewString()

	if err := c.DB.SaveKyc(ctx, account.Email, kycID); err != nil {
		c.Logger.Error("kyc issuance failed",
			zap.String("email", account.Email),
			zap.Error(err))
		return ""
	}
	if err := c.DB.SaveAttribute(ctx, campaignmodels.AttributeKycID, kycID, account.Email); err != nil {
		c.Logger.Error("kyc attribute registration failed",
			zap.String("email", account.Email),
			zap.String("kyc_id", kycID),
			zap.Error(err))
	}

	link := renderLink(c.KycURLTemplate, kycID)

	if err := c.Notifier.PublishKycRequest(ctx, &notify.KycRequest{
		Email:   account.Email,
		KycID:   kycID,
		KycLink: link,
	}); err != nil {
		c.Logger.Error("kyc request publish failed",
			zap.String("email", account.Email),
			zap.String("kyc_id", kycID),
			zap.Error(err))
	}

	account.KycRequestID = kycID
	return link
}
