package campaign

import (
	"context"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

// Store describes the campaign database operations consumed by the
// processor activities, the ingest consumer and the query API.
//
// ClickHouse enforces no uniqueness constraint on (email, unique_id); the
// duplicate check in the processor is a check-then-act sequence. Upstream
// partitioning is expected to serialize same-investor events, and the
// transactions table uses ReplacingMergeTree on the idempotency key so a
// lost race collapses to a single row rather than double data.
type Store interface {
	DatabaseName() string

	InitializeDB(ctx context.Context) error

	// Transactions (immutable once written)
	GetTransaction(ctx context.Context, email, uniqueID string) (*campaignmodels.InvestorTransaction, error)
	SaveTransaction(ctx context.Context, tx *campaignmodels.InvestorTransaction) error
	ListTransactions(ctx context.Context, email string, limit int) ([]*campaignmodels.InvestorTransaction, error)

	// Accounts (versioned rows, read-increment-write)
	GetAccount(ctx context.Context, email string) (*campaignmodels.InvestorAccount, error)
	SaveAccount(ctx context.Context, account *campaignmodels.InvestorAccount) error
	IncrementAmounts(ctx context.Context, email string, currency campaignmodels.Currency, amount, usd, token decimal.Decimal) error
	SaveKyc(ctx context.Context, email, kycRequestID string) error
	SaveReferralCode(ctx context.Context, email, code string) error

	// Refunds (append-only)
	SaveRefund(ctx context.Context, email string, reason campaignmodels.RefundReason, payload string) error
	ListRefunds(ctx context.Context, limit int) ([]*campaignmodels.RefundRecord, error)

	// Attribute index: (type, value) -> email
	SaveAttribute(ctx context.Context, attrType campaignmodels.AttributeType, value, email string) error
	GetInvestorEmail(ctx context.Context, attrType campaignmodels.AttributeType, value string) (string, error)

	// Campaign settings snapshot
	GetSettings(ctx context.Context) (*campaignmodels.CampaignSettings, error)
	SaveSettings(ctx context.Context, settings *campaignmodels.CampaignSettings) error

	// Reporter snapshots
	SaveSnapshot(ctx context.Context, snapshot *campaignmodels.CampaignSnapshot) error
}
