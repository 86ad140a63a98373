package controller

import (
	"net/http"

	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/shopspring/decimal"
)

// CampaignStats is the public campaign progress snapshot.
type CampaignStats struct {
	InvestedBtc   decimal.Decimal `json:"investedBtc"`
	InvestedEth   decimal.Decimal `json:"investedEth"`
	InvestedFiat  decimal.Decimal `json:"investedFiat"`
	InvestedUsd   decimal.Decimal `json:"investedUsd"`
	InvestedToken decimal.Decimal `json:"investedToken"`

	HardCapUsd  decimal.Decimal `json:"hardCapUsd,omitempty"`
	TokensTotal decimal.Decimal `json:"tokensTotal,omitempty"`
}

// HandleCampaignStats returns the live ledger counters plus the campaign
// caps when settings are configured.
func (c *Controller) HandleCampaignStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var stats CampaignStats
	reads := []struct {
		counter ledger.Counter
		dst     *decimal.Decimal
	}{
		{ledger.AmountInvestedBtc, &stats.InvestedBtc},
		{ledger.AmountInvestedEth, &stats.InvestedEth},
		{ledger.AmountInvestedFiat, &stats.InvestedFiat},
		{ledger.AmountInvestedUsd, &stats.InvestedUsd},
		{ledger.AmountInvestedToken, &stats.InvestedToken},
	}
	for _, read := range reads {
		v, err := c.App.Ledger.Value(ctx, read.counter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		*read.dst = v
	}

	settings, err := c.App.DB.GetSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if settings != nil {
		stats.HardCapUsd = settings.HardCapUsd
		stats.TokensTotal = settings.TotalTokensAmount()
	}

	writeJSON(w, http.StatusOK, stats)
}
