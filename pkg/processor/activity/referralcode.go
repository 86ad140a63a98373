package activity

import (
	"context"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/referral"
	"go.uber.org/zap"
)

// IssueReferralCode gives the investor a referral code once their
// cumulative USD reaches the minimum invest amount. Failures are logged and
// swallowed; the investor gets a code on their next transaction instead.
func (c *Context) IssueReferralCode(ctx context.Context, in types.SideEffectInput) error {
	settings := in.Settings
	if !settings.EnableReferralProgram {
		return nil
	}

	account, err := c.DB.GetAccount(ctx, in.Tx.Email)
	if err != nil || account == nil {
		c.Logger.Error("referral issuance skipped, account unavailable",
			zap.String("email", in.Tx.Email),
			zap.Error(err))
		return nil
	}

	if account.ReferralCode != "" {
		return nil
	}
	if account.AmountUsd.LessThan(settings.MinInvestAmountUsd) {
		return nil
	}

	gen := referral.NewGenerator(int(settings.ReferralCodeLength), func(ctx context.Context, code string) (bool, error) {
		email, err := c.DB.GetInvestorEmail(ctx, campaignmodels.AttributeReferralCode, code)
		if err != nil {
			return false, err
		}
		return email != "", nil
	})

	code, err := gen.Generate(ctx)
	if err != nil {
		c.Logger.Error("referral code generation failed",
			zap.String("email", account.Email),
			zap.Error(err))
		return nil
	}

	if err := c.DB.SaveReferralCode(ctx, account.Email, code); err != nil {
		c.Logger.Error("referral code save failed",
			zap.String("email", account.Email),
			zap.Error(err))
		return nil
	}
	if err := c.DB.SaveAttribute(ctx, campaignmodels.AttributeReferralCode, code, account.Email); err != nil {
		c.Logger.Error("referral attribute registration failed",
			zap.String("email", account.Email),
			zap.String("code", code),
			zap.Error(err))
	}

	c.Logger.Info("referral code issued",
		zap.String("email", account.Email),
		zap.String("code", code))
	return nil
}
