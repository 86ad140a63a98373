package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies the asset an investor deposited.
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyFiat Currency = "USD"
)

// AssetPair returns the exchange-rate pair for a crypto currency.
// Fiat deposits never hit the rate provider.
func (c Currency) AssetPair() string {
	switch c {
	case CurrencyBTC:
		return "BTCUSD"
	case CurrencyETH:
		return "ETHUSD"
	}
	return ""
}

// IsCrypto reports whether the deposit needs an exchange rate lookup.
func (c Currency) IsCrypto() bool {
	return c == CurrencyBTC || c == CurrencyETH
}

// InvestorTransaction is one accepted investment. (email, unique_id) is the
// idempotency key; a row is immutable once written.
type InvestorTransaction struct {
	Email         string          `ch:"email" json:"email"`
	UniqueID      string          `ch:"unique_id" json:"uniqueId"`
	CreatedUTC    time.Time       `ch:"created_utc" json:"createdUtc"`
	Currency      Currency        `ch:"currency" json:"currency"`
	TransactionID string          `ch:"transaction_id" json:"transactionId"`
	BlockID       string          `ch:"block_id" json:"blockId"`
	PayInAddress  string          `ch:"pay_in_address" json:"payInAddress"`
	Amount        decimal.Decimal `ch:"amount" json:"amount"`
	Fee           decimal.Decimal `ch:"fee" json:"fee"`
	AmountUsd     decimal.Decimal `ch:"amount_usd" json:"amountUsd"`
	AmountToken   decimal.Decimal `ch:"amount_token" json:"amountToken"`

	// TokenPrice is the effective unit price: the single tier's price, or the
	// USD-weighted average (amount_usd / amount_token) when the purchase
	// straddled a tier boundary.
	TokenPrice decimal.Decimal `ch:"token_price" json:"tokenPrice"`

	// Audit context: the full tier list and the raw rate response.
	TokenPriceContext   string          `ch:"token_price_context" json:"tokenPriceContext"`
	ExchangeRate        decimal.Decimal `ch:"exchange_rate" json:"exchangeRate"`
	ExchangeRateContext string          `ch:"exchange_rate_context" json:"exchangeRateContext"`
}
