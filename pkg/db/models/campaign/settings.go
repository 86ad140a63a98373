package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignSettings is the externally managed configuration of the token sale.
// The processor treats every read as an immutable snapshot: a single event is
// validated, priced and persisted against one settings row.
type CampaignSettings struct {
	PreSaleStartUTC       time.Time       `ch:"presale_start_utc" json:"preSaleStartUtc"`
	PreSaleEndUTC         time.Time       `ch:"presale_end_utc" json:"preSaleEndUtc"`
	PreSaleTokensTotal    decimal.Decimal `ch:"presale_tokens_total" json:"preSaleTokensTotal"`
	CrowdSaleStartUTC     time.Time       `ch:"crowdsale_start_utc" json:"crowdSaleStartUtc"`
	CrowdSaleEndUTC       time.Time       `ch:"crowdsale_end_utc" json:"crowdSaleEndUtc"`
	CrowdSaleTokensTotal  decimal.Decimal `ch:"crowdsale_tokens_total" json:"crowdSaleTokensTotal"`
	TokenBasePriceUsd     decimal.Decimal `ch:"token_base_price_usd" json:"tokenBasePriceUsd"`
	TokenDecimals         int32           `ch:"token_decimals" json:"tokenDecimals"`
	MinInvestAmountUsd    decimal.Decimal `ch:"min_invest_amount_usd" json:"minInvestAmountUsd"`
	HardCapUsd            decimal.Decimal `ch:"hard_cap_usd" json:"hardCapUsd"`
	EnableReferralProgram bool            `ch:"enable_referral_program" json:"enableReferralProgram"`
	ReferralDiscount      decimal.Decimal `ch:"referral_discount" json:"referralDiscount"`
	ReferralOwnerDiscount decimal.Decimal `ch:"referral_owner_discount" json:"referralOwnerDiscount"`
	ReferralCodeLength    int32           `ch:"referral_code_length" json:"referralCodeLength"`
	KycEnableRequests     bool            `ch:"kyc_enable_requests" json:"kycEnableRequests"`
	KycThresholdUsd       decimal.Decimal `ch:"kyc_threshold_usd" json:"kycThresholdUsd"`
	UpdatedAt             time.Time       `ch:"updated_at" json:"updatedAt"`
}

// IsPreSale reports whether the timestamp falls inside the presale window.
func (s *CampaignSettings) IsPreSale(at time.Time) bool {
	return !at.Before(s.PreSaleStartUTC) && !at.After(s.PreSaleEndUTC)
}

// IsCrowdSale reports whether the timestamp falls inside the crowdsale window.
func (s *CampaignSettings) IsCrowdSale(at time.Time) bool {
	return !at.Before(s.CrowdSaleStartUTC) && !at.After(s.CrowdSaleEndUTC)
}

// TotalTokensAmount is the full campaign token cap (presale plus crowdsale).
func (s *CampaignSettings) TotalTokensAmount() decimal.Decimal {
	return s.PreSaleTokensTotal.Add(s.CrowdSaleTokensTotal)
}
