// Package types defines the inbound investment event and the payloads
// exchanged between the processing workflow and its activities.
package types

import (
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

// InvestmentEvent is one deposit captured upstream. Email may be empty on
// the wire; the ingest layer resolves it from the pay-in address before a
// workflow starts.
type InvestmentEvent struct {
	Email         string                  `json:"email"`
	UniqueID      string                  `json:"uniqueId"`
	Currency      campaignmodels.Currency `json:"currency"`
	Amount        decimal.Decimal         `json:"amount"`
	Fee           decimal.Decimal         `json:"fee"`
	BlockID       string                  `json:"blockId"`
	TransactionID string                  `json:"transactionId"`
	PayInAddress  string                  `json:"payInAddress"`
	Link          string                  `json:"link"`
	CreatedUTC    time.Time               `json:"createdUtc"`
}

// CheckDuplicateOutput reports whether the event was already processed.
type CheckDuplicateOutput struct {
	Duplicate bool `json:"duplicate"`
}

// PrepareOutput carries the settings snapshot and campaign totals every later
// step prices against, or the rejection that ended the run.
type PrepareOutput struct {
	Rejected bool                             `json:"rejected"`
	Reason   campaignmodels.RefundReason      `json:"reason,omitempty"`
	Settings *campaignmodels.CampaignSettings `json:"settings,omitempty"`

	// Campaign totals read once, before pricing.
	SoldTokens  decimal.Decimal `json:"soldTokens"`
	InvestedUsd decimal.Decimal `json:"investedUsd"`
}

// PriceInput is the pricing activity's payload: the event plus the prepared
// settings snapshot and totals.
type PriceInput struct {
	Event       InvestmentEvent                  `json:"event"`
	Settings    *campaignmodels.CampaignSettings `json:"settings"`
	SoldTokens  decimal.Decimal                  `json:"soldTokens"`
	InvestedUsd decimal.Decimal                  `json:"investedUsd"`
}

// PriceOutput is the persisted transaction.
type PriceOutput struct {
	Tx *campaignmodels.InvestorTransaction `json:"tx"`
}

// SideEffectInput drives the post-persistence steps: ledger and account
// increments, confirmation, KYC and referral issuance.
type SideEffectInput struct {
	Event    InvestmentEvent                     `json:"event"`
	Settings *campaignmodels.CampaignSettings    `json:"settings"`
	Tx       *campaignmodels.InvestorTransaction `json:"tx"`
}
