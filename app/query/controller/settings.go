package controller

import (
	"encoding/json"
	"net/http"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

// HandleGetSettings returns the current campaign configuration.
func (c *Controller) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := c.App.DB.GetSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "campaign is not configured")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// HandleSaveSettings replaces the campaign configuration. New settings take
// effect for investments processed after the write.
func (c *Controller) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var settings campaignmodels.CampaignSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	if err := c.App.DB.SaveSettings(ctx, &settings); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.App.Logger.Info("campaign settings updated")
	writeJSON(w, http.StatusOK, &settings)
}
