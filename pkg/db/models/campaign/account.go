package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestorAccount carries per-investor cumulative totals and program state.
// Rows are versioned by updated_at; the latest version is the account.
// All cumulative amounts are monotonically non-decreasing: only the
// transaction processor mutates them, and only by adding.
type InvestorAccount struct {
	Email string `ch:"email" json:"email"`

	AmountBtc   decimal.Decimal `ch:"amount_btc" json:"amountBtc"`
	AmountEth   decimal.Decimal `ch:"amount_eth" json:"amountEth"`
	AmountFiat  decimal.Decimal `ch:"amount_fiat" json:"amountFiat"`
	AmountUsd   decimal.Decimal `ch:"amount_usd" json:"amountUsd"`
	AmountToken decimal.Decimal `ch:"amount_token" json:"amountToken"`

	KycRequestID    string     `ch:"kyc_request_id" json:"kycRequestId"`
	KycRequestedUTC *time.Time `ch:"kyc_requested_utc" json:"kycRequestedUtc,omitempty"`

	ReferralCode        string `ch:"referral_code" json:"referralCode"`
	ReferralCodeApplied string `ch:"referral_code_applied" json:"referralCodeApplied"`
	ReferralsNumber     int32  `ch:"referrals_number" json:"referralsNumber"`

	// ConfirmationToken links the investor to their summary page.
	ConfirmationToken string `ch:"confirmation_token" json:"confirmationToken"`

	UpdatedAt time.Time `ch:"updated_at" json:"updatedAt"`
}

// AddAmounts returns a copy of the account with one transaction's amounts
// applied on top of the cumulative totals.
func (a InvestorAccount) AddAmounts(currency Currency, amount, usd, token decimal.Decimal) InvestorAccount {
	switch currency {
	case CurrencyBTC:
		a.AmountBtc = a.AmountBtc.Add(amount)
	case CurrencyETH:
		a.AmountEth = a.AmountEth.Add(amount)
	case CurrencyFiat:
		a.AmountFiat = a.AmountFiat.Add(amount)
	}
	a.AmountUsd = a.AmountUsd.Add(usd)
	a.AmountToken = a.AmountToken.Add(token)
	return a
}
