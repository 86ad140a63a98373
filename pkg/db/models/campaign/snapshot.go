package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignSnapshot is a periodic copy of the ledger counters, taken by the
// reporter so campaign progress can be charted without replaying Redis.
type CampaignSnapshot struct {
	TakenAt       time.Time       `ch:"taken_at" json:"takenAt"`
	InvestedBtc   decimal.Decimal `ch:"invested_btc" json:"investedBtc"`
	InvestedEth   decimal.Decimal `ch:"invested_eth" json:"investedEth"`
	InvestedFiat  decimal.Decimal `ch:"invested_fiat" json:"investedFiat"`
	InvestedUsd   decimal.Decimal `ch:"invested_usd" json:"investedUsd"`
	InvestedToken decimal.Decimal `ch:"invested_token" json:"investedToken"`
}
