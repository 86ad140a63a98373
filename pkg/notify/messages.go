// Package notify publishes investor-facing messages onto Redis streams for
// downstream delivery workers (email, SMS) and fans accepted investments out
// to live subscribers.
package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Streams consumed by the delivery workers.
const (
	StreamConfirmations = "saleflow:notify:confirmations"
	StreamKycRequests   = "saleflow:notify:kyc"

	// ChannelAccepted is the pub/sub channel for the live investment feed.
	ChannelAccepted = "saleflow:investments:accepted"
)

// PurchaseConfirmation is sent after every accepted investment. KYC and
// reminder flags piggyback on the confirmation so the delivery worker can
// render a single email.
type PurchaseConfirmation struct {
	Email             string          `json:"email"`
	AssetName         string          `json:"assetName"`
	PayedAmount       decimal.Decimal `json:"payedAmount"`
	TransactionFee    decimal.Decimal `json:"transactionFee"`
	TokenAmount       decimal.Decimal `json:"tokenAmount"`
	TokenPrice        decimal.Decimal `json:"tokenPrice"`
	AmountUsd         decimal.Decimal `json:"amountUsd"`
	TotalUsd          decimal.Decimal `json:"totalUsd"`
	TotalToken        decimal.Decimal `json:"totalToken"`
	SummaryLink       string          `json:"summaryLink"`
	TransactionLink   string          `json:"transactionLink"`
	KycRequired       bool            `json:"kycRequired"`
	KycLink           string          `json:"kycLink,omitempty"`
	MinAmountViolated bool            `json:"minAmountViolated"`
	MinAmountUsd      decimal.Decimal `json:"minAmountUsd"`
}

// KycRequest asks the investor to pass identity verification.
type KycRequest struct {
	Email   string `json:"email"`
	KycID   string `json:"kycId"`
	KycLink string `json:"kycLink"`
}

// AcceptedInvestment is the live-feed event published on ChannelAccepted.
// Amounts only, no investor identity.
type AcceptedInvestment struct {
	Currency    string          `json:"currency"`
	AmountUsd   decimal.Decimal `json:"amountUsd"`
	AmountToken decimal.Decimal `json:"amountToken"`
	TokenPrice  decimal.Decimal `json:"tokenPrice"`
	AcceptedAt  time.Time       `json:"acceptedAt"`
}
