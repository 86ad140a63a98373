// Package activity implements the investment processing steps executed by
// the Temporal worker.
package activity

import (
	"encoding/json"
	"strings"

	"github.com/lunavault/saleflow/pkg/db/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/notify"
	"github.com/lunavault/saleflow/pkg/pricing"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/rates"
	"github.com/lunavault/saleflow/pkg/utils"
	"go.uber.org/zap"
)

// Context carries the collaborators shared by all activities.
type Context struct {
	Logger   *zap.Logger
	DB       campaign.Store
	Ledger   *ledger.Ledger
	Rates    rates.Provider
	Notifier notify.Publisher
	Schedule pricing.Schedule

	// URL templates with a {code} placeholder.
	SummaryURLTemplate string
	KycURLTemplate     string
}

// URLTemplatesFromEnv reads the summary and KYC link templates.
func URLTemplatesFromEnv() (summary, kyc string) {
	summary = utils.Env("SUMMARY_URL_TEMPLATE", "https://invest.lunavault.io/summary/{code}")
	kyc = utils.Env("KYC_URL_TEMPLATE", "https://invest.lunavault.io/kyc/{code}")
	return summary, kyc
}

// renderLink substitutes the {code} placeholder in a URL template.
func renderLink(template, code string) string {
	return strings.ReplaceAll(template, "{code}", code)
}

// eventPayload serializes the inbound event for refund records and fatal
// error context, so rejected or poisoned deposits can be inspected without
// replaying the queue.
func eventPayload(event types.InvestmentEvent) string {
	data, err := json.Marshal(event)
	if err != nil {
		return event.Email + "/" + event.UniqueID
	}
	return string(data)
}
