package controller

import (
	"net/http"
	"strconv"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

// HandleListRefunds returns recent refund records for manual follow-up.
func (c *Controller) HandleListRefunds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	refunds, err := c.App.DB.ListRefunds(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if refunds == nil {
		refunds = []*campaignmodels.RefundRecord{}
	}

	writeJSON(w, http.StatusOK, refunds)
}
