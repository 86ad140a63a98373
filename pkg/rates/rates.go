// Package rates resolves historical exchange rates for crypto deposits.
package rates

import (
	"context"

	"github.com/shopspring/decimal"
)

// AverageRate is the averaged market rate of an asset pair at a point in
// time. Context carries the provider's raw response for the audit trail.
type AverageRate struct {
	AssetPair string          `json:"assetPair"`
	Rate      decimal.Decimal `json:"averageRate"`
	Context   string          `json:"-"`
}

// Provider resolves the average exchange rate for an asset pair at the
// given timestamp.
type Provider interface {
	AverageRate(ctx context.Context, assetPair string, at int64) (*AverageRate, error)
}
