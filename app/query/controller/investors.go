package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"go.uber.org/zap"
)

// RegisterInvestorRequest creates an investor account and registers the
// assigned pay-in addresses in the attribute index.
type RegisterInvestorRequest struct {
	Email           string `json:"email"`
	PayInBtcAddress string `json:"payInBtcAddress,omitempty"`
	PayInEthAddress string `json:"payInEthAddress,omitempty"`
}

// HandleRegisterInvestor creates the account the processor expects to find
// when the investor's first deposit arrives.
func (c *Controller) HandleRegisterInvestor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in RegisterInvestorRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if in.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	existing, err := c.App.DB.GetAccount(ctx, in.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "investor already registered")
		return
	}

	account := &campaignmodels.InvestorAccount{
		Email:             in.Email,
		ConfirmationToken: uuid.NewString(),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := c.App.DB.SaveAccount(ctx, account); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if in.PayInBtcAddress != "" {
		if err := c.App.DB.SaveAttribute(ctx, campaignmodels.AttributePayInBtcAddress, in.PayInBtcAddress, in.Email); err != nil {
			c.App.Logger.Error("btc address registration failed", zap.String("email", in.Email), zap.Error(err))
		}
	}
	if in.PayInEthAddress != "" {
		if err := c.App.DB.SaveAttribute(ctx, campaignmodels.AttributePayInEthAddress, in.PayInEthAddress, in.Email); err != nil {
			c.App.Logger.Error("eth address registration failed", zap.String("email", in.Email), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, account)
}

// HandleGetInvestor returns the investor account.
func (c *Controller) HandleGetInvestor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := mux.Vars(r)["email"]

	account, err := c.App.DB.GetAccount(ctx, email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "investor not found")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HandleListTransactions returns the investor's transactions, newest first.
func (c *Controller) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := mux.Vars(r)["email"]

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	txs, err := c.App.DB.ListTransactions(ctx, email, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txs == nil {
		txs = []*campaignmodels.InvestorTransaction{}
	}

	writeJSON(w, http.StatusOK, txs)
}
