package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/notify"
	"github.com/lunavault/saleflow/pkg/pricing"
	"github.com/lunavault/saleflow/pkg/processor/activity"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/rates"
	"github.com/lunavault/saleflow/pkg/temporal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"
)

// wfFakeStore is an in-memory campaign.Store shared by a test run.
type wfFakeStore struct {
	mu           sync.Mutex
	transactions map[string]*campaignmodels.InvestorTransaction
	accounts     map[string]*campaignmodels.InvestorAccount
	attributes   map[string]string
	refunds      []*campaignmodels.RefundRecord
	settings     *campaignmodels.CampaignSettings

	saveTransactionCalls int
}

func newWfFakeStore(settings *campaignmodels.CampaignSettings) *wfFakeStore {
	return &wfFakeStore{
		transactions: map[string]*campaignmodels.InvestorTransaction{},
		accounts:     map[string]*campaignmodels.InvestorAccount{},
		attributes:   map[string]string{},
		settings:     settings,
	}
}

func (f *wfFakeStore) DatabaseName() string               { return "test" }
func (f *wfFakeStore) InitializeDB(context.Context) error { return nil }

func (f *wfFakeStore) GetTransaction(_ context.Context, email, uniqueID string) (*campaignmodels.InvestorTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions[email+"/"+uniqueID], nil
}

func (f *wfFakeStore) SaveTransaction(_ context.Context, tx *campaignmodels.InvestorTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveTransactionCalls++
	f.transactions[tx.Email+"/"+tx.UniqueID] = tx
	return nil
}

func (f *wfFakeStore) ListTransactions(context.Context, string, int) ([]*campaignmodels.InvestorTransaction, error) {
	return nil, nil
}

func (f *wfFakeStore) GetAccount(_ context.Context, email string) (*campaignmodels.InvestorAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[email]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func (f *wfFakeStore) SaveAccount(_ context.Context, account *campaignmodels.InvestorAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	f.accounts[account.Email] = &cp
	return nil
}

func (f *wfFakeStore) IncrementAmounts(_ context.Context, email string, currency campaignmodels.Currency, amount, usd, token decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[email]; ok {
		next := account.AddAmounts(currency, amount, usd, token)
		f.accounts[email] = &next
	}
	return nil
}

func (f *wfFakeStore) SaveKyc(_ context.Context, email, kycRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[email]; ok {
		now := time.Now().UTC()
		account.KycRequestID = kycRequestID
		account.KycRequestedUTC = &now
	}
	return nil
}

func (f *wfFakeStore) SaveReferralCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[email]; ok {
		account.ReferralCode = code
	}
	return nil
}

func (f *wfFakeStore) SaveRefund(_ context.Context, email string, reason campaignmodels.RefundReason, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, &campaignmodels.RefundRecord{Email: email, Reason: reason, Payload: payload})
	return nil
}

func (f *wfFakeStore) ListRefunds(context.Context, int) ([]*campaignmodels.RefundRecord, error) {
	return f.refunds, nil
}

func (f *wfFakeStore) SaveAttribute(_ context.Context, attrType campaignmodels.AttributeType, value, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attributes[string(attrType)+"/"+value] = email
	return nil
}

func (f *wfFakeStore) GetInvestorEmail(_ context.Context, attrType campaignmodels.AttributeType, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attributes[string(attrType)+"/"+value], nil
}

func (f *wfFakeStore) GetSettings(context.Context) (*campaignmodels.CampaignSettings, error) {
	return f.settings, nil
}

func (f *wfFakeStore) SaveSettings(_ context.Context, settings *campaignmodels.CampaignSettings) error {
	f.settings = settings
	return nil
}

func (f *wfFakeStore) SaveSnapshot(context.Context, *campaignmodels.CampaignSnapshot) error {
	return nil
}

type wfFakeCounterStore struct {
	mu     sync.Mutex
	values map[string]decimal.Decimal
	incs   int
}

func newWfFakeCounterStore() *wfFakeCounterStore {
	return &wfFakeCounterStore{values: map[string]decimal.Decimal{}}
}

func (f *wfFakeCounterStore) GetValue(_ context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (f *wfFakeCounterStore) IncrementValue(_ context.Context, name string, delta string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := decimal.NewFromString(delta)
	if err != nil {
		return err
	}
	f.values[name] = f.values[name].Add(d)
	f.incs++
	return nil
}

type wfFakePublisher struct {
	mu            sync.Mutex
	confirmations int
	kycRequests   int
	accepted      int
}

func (f *wfFakePublisher) PublishConfirmation(context.Context, *notify.PurchaseConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
	return nil
}

func (f *wfFakePublisher) PublishKycRequest(context.Context, *notify.KycRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kycRequests++
	return nil
}

func (f *wfFakePublisher) PublishAccepted(context.Context, *notify.AcceptedInvestment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted++
	return nil
}

type wfFakeRates struct{ rate decimal.Decimal }

func (f *wfFakeRates) AverageRate(_ context.Context, assetPair string, _ int64) (*rates.AverageRate, error) {
	return &rates.AverageRate{AssetPair: assetPair, Rate: f.rate}, nil
}

func wfTestSettings(now time.Time) *campaignmodels.CampaignSettings {
	return &campaignmodels.CampaignSettings{
		PreSaleStartUTC:       now.Add(-15 * 24 * time.Hour),
		PreSaleEndUTC:         now.Add(-time.Second),
		PreSaleTokensTotal:    decimal.NewFromInt(10_000_000),
		CrowdSaleStartUTC:     now,
		CrowdSaleEndUTC:       now.Add(21 * 24 * time.Hour),
		CrowdSaleTokensTotal:  decimal.NewFromInt(90_000_000),
		TokenBasePriceUsd:     decimal.NewFromInt(1),
		TokenDecimals:         4,
		MinInvestAmountUsd:    decimal.NewFromInt(100),
		HardCapUsd:            decimal.NewFromInt(50_000_000),
		EnableReferralProgram: true,
		ReferralDiscount:      decimal.NewFromInt(30),
		ReferralOwnerDiscount: decimal.NewFromInt(25),
		ReferralCodeLength:    6,
		KycEnableRequests:     true,
		KycThresholdUsd:       decimal.NewFromInt(1000),
		UpdatedAt:             now,
	}
}

type wfHarness struct {
	store    *wfFakeStore
	counters *wfFakeCounterStore
	pub      *wfFakePublisher
	wfCtx    Context
}

func newWfHarness(t *testing.T, now time.Time) *wfHarness {
	t.Helper()

	store := newWfFakeStore(wfTestSettings(now))
	counters := newWfFakeCounterStore()
	pub := &wfFakePublisher{}
	summary, kyc := "https://example.test/summary/{code}", "https://example.test/kyc/{code}"

	activityCtx := &activity.Context{
		Logger:             zaptest.NewLogger(t),
		DB:                 store,
		Ledger:             ledger.New(counters),
		Rates:              &wfFakeRates{rate: decimal.NewFromInt(4000)},
		Notifier:           pub,
		Schedule:           pricing.DefaultSchedule(),
		SummaryURLTemplate: summary,
		KycURLTemplate:     kyc,
	}

	return &wfHarness{
		store:    store,
		counters: counters,
		pub:      pub,
		wfCtx: Context{
			TemporalClient:  &temporal.Client{InvestWorkflowID: "invest:%s:%s"},
			ActivityContext: activityCtx,
		},
	}
}

func (h *wfHarness) run(t *testing.T, event types.InvestmentEvent) error {
	t.Helper()

	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	env.RegisterWorkflow(h.wfCtx.ProcessInvestment)
	env.RegisterActivity(h.wfCtx.ActivityContext.CheckDuplicate)
	env.RegisterActivity(h.wfCtx.ActivityContext.PrepareInvestment)
	env.RegisterActivity(h.wfCtx.ActivityContext.PriceInvestment)
	env.RegisterActivity(h.wfCtx.ActivityContext.UpdateLedger)
	env.RegisterActivity(h.wfCtx.ActivityContext.UpdateAccount)
	env.RegisterActivity(h.wfCtx.ActivityContext.SendConfirmation)
	env.RegisterActivity(h.wfCtx.ActivityContext.IssueReferralCode)

	env.ExecuteWorkflow(h.wfCtx.ProcessInvestment, event)
	require.True(t, env.IsWorkflowCompleted())
	return env.GetWorkflowError()
}

func wfTestEvent(now time.Time) types.InvestmentEvent {
	return types.InvestmentEvent{
		Email:         "alice@example.test",
		UniqueID:      "tx-1",
		Currency:      campaignmodels.CurrencyFiat,
		Amount:        decimal.NewFromInt(500),
		TransactionID: "deposit-1",
		CreatedUTC:    now,
	}
}

func TestProcessInvestmentHappyPath(t *testing.T) {
	now := time.Now().UTC()
	h := newWfHarness(t, now)
	require.NoError(t, h.store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test", ConfirmationToken: "conf-1",
	}))

	require.NoError(t, h.run(t, wfTestEvent(now)))

	assert.Equal(t, 1, h.store.saveTransactionCalls)
	assert.Equal(t, 1, h.pub.confirmations)
	assert.Equal(t, 1, h.pub.accepted)

	// 500 USD at the initial 0.75 price.
	assert.True(t, h.counters.values[string(ledger.AmountInvestedUsd)].Equal(decimal.NewFromInt(500)))
	assert.True(t, h.counters.values[string(ledger.AmountInvestedFiat)].Equal(decimal.NewFromInt(500)))
	expectedTokens := decimal.NewFromInt(500).Div(decimal.NewFromFloat(0.75)).RoundFloor(4)
	assert.True(t, h.counters.values[string(ledger.AmountInvestedToken)].Equal(expectedTokens))

	account, err := h.store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.True(t, account.AmountUsd.Equal(decimal.NewFromInt(500)))
	// 500 USD total is above the minimum invest amount: a referral code is
	// issued on the same run.
	assert.Len(t, account.ReferralCode, 6)
}

func TestProcessInvestmentDuplicateIsNoOp(t *testing.T) {
	now := time.Now().UTC()
	h := newWfHarness(t, now)
	require.NoError(t, h.store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test",
	}))

	event := wfTestEvent(now)
	require.NoError(t, h.run(t, event))

	incsAfterFirst := h.counters.incs
	confirmationsAfterFirst := h.pub.confirmations

	// Same (email, uniqueId) again: one persisted transaction, one set of
	// increments, no second confirmation.
	require.NoError(t, h.run(t, event))

	assert.Equal(t, 1, h.store.saveTransactionCalls)
	assert.Equal(t, incsAfterFirst, h.counters.incs)
	assert.Equal(t, confirmationsAfterFirst, h.pub.confirmations)
}

func TestProcessInvestmentRejectionWritesRefundOnly(t *testing.T) {
	now := time.Now().UTC()
	h := newWfHarness(t, now)
	require.NoError(t, h.store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test",
	}))

	event := wfTestEvent(now)
	event.CreatedUTC = now.Add(-30 * 24 * time.Hour)

	require.NoError(t, h.run(t, event))

	require.Len(t, h.store.refunds, 1)
	assert.Equal(t, campaignmodels.RefundOutOfDates, h.store.refunds[0].Reason)
	assert.Equal(t, 0, h.store.saveTransactionCalls)
	assert.Equal(t, 0, h.counters.incs)
	assert.Equal(t, 0, h.pub.confirmations)

	account, err := h.store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.True(t, account.AmountUsd.IsZero())
}

func TestProcessInvestmentMalformedEventFails(t *testing.T) {
	now := time.Now().UTC()
	h := newWfHarness(t, now)

	event := wfTestEvent(now)
	event.UniqueID = ""

	err := h.run(t, event)
	require.Error(t, err)
	assert.Equal(t, 0, h.store.saveTransactionCalls)
	assert.Empty(t, h.store.refunds)
}

func TestProcessInvestmentCryptoDeposit(t *testing.T) {
	now := time.Now().UTC()
	h := newWfHarness(t, now)
	require.NoError(t, h.store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test",
	}))

	event := wfTestEvent(now)
	event.Currency = campaignmodels.CurrencyETH
	event.Amount = decimal.NewFromFloat(0.5)

	require.NoError(t, h.run(t, event))

	// 0.5 ETH at the faked 4000 rate.
	assert.True(t, h.counters.values[string(ledger.AmountInvestedEth)].Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, h.counters.values[string(ledger.AmountInvestedUsd)].Equal(decimal.NewFromInt(2000)))

	// 2000 USD crosses the KYC threshold: exactly one request is issued.
	assert.Equal(t, 1, h.pub.kycRequests)
}
