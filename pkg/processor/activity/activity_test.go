package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/notify"
	"github.com/lunavault/saleflow/pkg/pricing"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/rates"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap/zaptest"
)

// fakeStore is an in-memory campaign.Store.
type fakeStore struct {
	mu           sync.Mutex
	transactions map[string]*campaignmodels.InvestorTransaction
	accounts     map[string]*campaignmodels.InvestorAccount
	attributes   map[string]string
	refunds      []*campaignmodels.RefundRecord
	settings     *campaignmodels.CampaignSettings
	snapshots    []*campaignmodels.CampaignSnapshot
}

func newFakeStore(settings *campaignmodels.CampaignSettings) *fakeStore {
	return &fakeStore{
		transactions: map[string]*campaignmodels.InvestorTransaction{},
		accounts:     map[string]*campaignmodels.InvestorAccount{},
		attributes:   map[string]string{},
		settings:     settings,
	}
}

func txKey(email, uniqueID string) string { return email + "/" + uniqueID }

func (f *fakeStore) DatabaseName() string               { return "test" }
func (f *fakeStore) InitializeDB(context.Context) error { return nil }

func (f *fakeStore) GetTransaction(_ context.Context, email, uniqueID string) (*campaignmodels.InvestorTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions[txKey(email, uniqueID)], nil
}

func (f *fakeStore) SaveTransaction(_ context.Context, tx *campaignmodels.InvestorTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[txKey(tx.Email, tx.UniqueID)] = tx
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, email string, limit int) ([]*campaignmodels.InvestorTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*campaignmodels.InvestorTransaction
	for _, tx := range f.transactions {
		if tx.Email == email {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAccount(_ context.Context, email string) (*campaignmodels.InvestorAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[email]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func (f *fakeStore) SaveAccount(_ context.Context, account *campaignmodels.InvestorAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	f.accounts[account.Email] = &cp
	return nil
}

func (f *fakeStore) IncrementAmounts(_ context.Context, email string, currency campaignmodels.Currency, amount, usd, token decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[email]
	if !ok {
		return nil
	}
	next := account.AddAmounts(currency, amount, usd, token)
	f.accounts[email] = &next
	return nil
}

func (f *fakeStore) SaveKyc(_ context.Context, email, kycRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[email]; ok {
		now := time.Now().UTC()
		account.KycRequestID = kycRequestID
		account.KycRequestedUTC = &now
	}
	return nil
}

func (f *fakeStore) SaveReferralCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[email]; ok {
		account.ReferralCode = code
	}
	return nil
}

func (f *fakeStore) SaveRefund(_ context.Context, email string, reason campaignmodels.RefundReason, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, &campaignmodels.RefundRecord{
		Email: email, Reason: reason, Payload: payload, CreatedUTC: time.Now().UTC(),
	})
	return nil
}

func (f *fakeStore) ListRefunds(context.Context, int) ([]*campaignmodels.RefundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunds, nil
}

func (f *fakeStore) SaveAttribute(_ context.Context, attrType campaignmodels.AttributeType, value, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attributes[string(attrType)+"/"+value] = email
	return nil
}

func (f *fakeStore) GetInvestorEmail(_ context.Context, attrType campaignmodels.AttributeType, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attributes[string(attrType)+"/"+value], nil
}

func (f *fakeStore) GetSettings(context.Context) (*campaignmodels.CampaignSettings, error) {
	return f.settings, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, settings *campaignmodels.CampaignSettings) error {
	f.settings = settings
	return nil
}

func (f *fakeStore) SaveSnapshot(_ context.Context, snapshot *campaignmodels.CampaignSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

// fakeCounterStore is an in-memory ledger.Store. Deltas arrive as decimal
// strings and accumulate exactly, like INCRBYFLOAT applied to clean input.
type fakeCounterStore struct {
	mu     sync.Mutex
	values map[string]decimal.Decimal
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{values: map[string]decimal.Decimal{}}
}

func (f *fakeCounterStore) GetValue(_ context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (f *fakeCounterStore) IncrementValue(_ context.Context, name string, delta string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := decimal.NewFromString(delta)
	if err != nil {
		return err
	}
	f.values[name] = f.values[name].Add(d)
	return nil
}

// fakePublisher records published messages.
type fakePublisher struct {
	confirmations []*notify.PurchaseConfirmation
	kycRequests   []*notify.KycRequest
	accepted      []*notify.AcceptedInvestment
}

func (f *fakePublisher) PublishConfirmation(_ context.Context, msg *notify.PurchaseConfirmation) error {
	f.confirmations = append(f.confirmations, msg)
	return nil
}

func (f *fakePublisher) PublishKycRequest(_ context.Context, msg *notify.KycRequest) error {
	f.kycRequests = append(f.kycRequests, msg)
	return nil
}

func (f *fakePublisher) PublishAccepted(_ context.Context, msg *notify.AcceptedInvestment) error {
	f.accepted = append(f.accepted, msg)
	return nil
}

// fakeRates returns a fixed rate.
type fakeRates struct {
	rate decimal.Decimal
}

func (f *fakeRates) AverageRate(_ context.Context, assetPair string, _ int64) (*rates.AverageRate, error) {
	return &rates.AverageRate{AssetPair: assetPair, Rate: f.rate, Context: `{"averageRate":"fixed"}`}, nil
}

func testSettings(now time.Time) *campaignmodels.CampaignSettings {
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

func testContext(t *testing.T, store *fakeStore, counters *fakeCounterStore, pub *fakePublisher, rate decimal.Decimal) *Context {
	t.Helper()
	return &Context{
		Logger:             zaptest.NewLogger(t),
		DB:                 store,
		Ledger:             ledger.New(counters),
		Rates:              &fakeRates{rate: rate},
		Notifier:           pub,
		Schedule:           pricing.DefaultSchedule(),
		SummaryURLTemplate: "https://example.test/summary/{code}",
		KycURLTemplate:     "https://example.test/kyc/{code}",
	}
}

func testEvent(now time.Time) types.InvestmentEvent {
	return types.InvestmentEvent{
		Email:         "alice@example.test",
		UniqueID:      "tx-1",
		Currency:      campaignmodels.CurrencyFiat,
		Amount:        decimal.NewFromInt(500),
		Fee:           decimal.NewFromFloat(0.5),
		TransactionID: "deposit-1",
		PayInAddress:  "addr-1",
		CreatedUTC:    now,
	}
}

func TestCheckDuplicateMissingIdentityIsNonRetryable(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	event := testEvent(now)
	event.Email = ""

	_, err := c.CheckDuplicate(context.Background(), event)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "malformed_event", appErr.Type())
}

func TestCheckDuplicateDetectsExistingTransaction(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	event := testEvent(now)

	out, err := c.CheckDuplicate(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	require.NoError(t, store.SaveTransaction(context.Background(), &campaignmodels.InvestorTransaction{
		Email: event.Email, UniqueID: event.UniqueID,
	}))

	out, err = c.CheckDuplicate(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
}

func TestPrepareInvestmentOutOfDates(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	event := testEvent(now)
	event.CreatedUTC = now.Add(-30 * 24 * time.Hour)

	out, err := c.PrepareInvestment(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, out.Rejected)
	assert.Equal(t, campaignmodels.RefundOutOfDates, out.Reason)

	require.Len(t, store.refunds, 1)
	assert.Equal(t, event.Email, store.refunds[0].Email)
	assert.Contains(t, store.refunds[0].Payload, event.UniqueID)
}

func TestPrepareInvestmentCapRules(t *testing.T) {
	now := time.Now().UTC()
	ctx := context.Background()

	cases := []struct {
		name    string
		at      func(s *campaignmodels.CampaignSettings) time.Time
		counter ledger.Counter
		value   string
		reason  campaignmodels.RefundReason
	}{
		{
			name:    "presale sold out",
			at:      func(s *campaignmodels.CampaignSettings) time.Time { return s.PreSaleStartUTC.Add(time.Hour) },
			counter: ledger.AmountInvestedToken,
			value:   "10000000",
			reason:  campaignmodels.RefundPreSaleTokensSoldOut,
		},
		{
			name:    "crowdsale sold out",
			at:      func(s *campaignmodels.CampaignSettings) time.Time { return s.CrowdSaleStartUTC.Add(time.Hour) },
			counter: ledger.AmountInvestedToken,
			value:   "100000000",
			reason:  campaignmodels.RefundTokensSoldOut,
		},
		{
			name:    "hard cap reached",
			at:      func(s *campaignmodels.CampaignSettings) time.Time { return s.CrowdSaleStartUTC.Add(time.Hour) },
			counter: ledger.AmountInvestedUsd,
			value:   "50000000",
			reason:  campaignmodels.RefundHardCapUsdExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := testSettings(now)
			store := newFakeStore(settings)
			counters := newFakeCounterStore()
			require.NoError(t, counters.IncrementValue(ctx, string(tc.counter), tc.value))

			c := testContext(t, store, counters, &fakePublisher{}, decimal.NewFromInt(1))

			event := testEvent(now)
			event.CreatedUTC = tc.at(settings)

			out, err := c.PrepareInvestment(ctx, event)
			require.NoError(t, err)
			assert.True(t, out.Rejected)
			assert.Equal(t, tc.reason, out.Reason)
		})
	}
}

func TestPrepareInvestmentAcceptsAndSnapshotsTotals(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	counters := newFakeCounterStore()
	require.NoError(t, counters.IncrementValue(context.Background(), string(ledger.AmountInvestedToken), "123"))

	c := testContext(t, store, counters, &fakePublisher{}, decimal.NewFromInt(1))

	out, err := c.PrepareInvestment(context.Background(), testEvent(now))
	require.NoError(t, err)
	assert.False(t, out.Rejected)
	require.NotNil(t, out.Settings)
	assert.True(t, out.SoldTokens.Equal(decimal.NewFromInt(123)))
	assert.Empty(t, store.refunds)
}

func TestPriceInvestmentFiat(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test", ConfirmationToken: "conf-1",
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(999))

	event := testEvent(now)

	out, err := c.PriceInvestment(context.Background(), types.PriceInput{
		Event:      event,
		Settings:   store.settings,
		SoldTokens: decimal.Zero,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Tx)

	// Fiat never touches the rate provider: rate is exactly 1.
	assert.True(t, out.Tx.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, out.Tx.AmountUsd.Equal(decimal.NewFromInt(500)))

	// 500 USD in the initial volume tier at 0.75.
	expectedTokens := decimal.NewFromInt(500).Div(decimal.NewFromFloat(0.75)).RoundFloor(4)
	assert.True(t, out.Tx.AmountToken.Equal(expectedTokens), "got %s", out.Tx.AmountToken)
	assert.True(t, out.Tx.TokenPrice.Equal(decimal.NewFromFloat(0.75)))
	assert.NotEmpty(t, out.Tx.TokenPriceContext)

	saved, err := store.GetTransaction(context.Background(), event.Email, event.UniqueID)
	require.NoError(t, err)
	require.NotNil(t, saved)
}

func TestPriceInvestmentCryptoUsesRate(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test",
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(4000))

	event := testEvent(now)
	event.Currency = campaignmodels.CurrencyETH
	event.Amount = decimal.NewFromFloat(0.5)

	out, err := c.PriceInvestment(context.Background(), types.PriceInput{
		Event:      event,
		Settings:   store.settings,
		SoldTokens: decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, out.Tx.AmountUsd.Equal(decimal.NewFromInt(2000)))
	assert.True(t, out.Tx.ExchangeRate.Equal(decimal.NewFromInt(4000)))
}

func TestPriceInvestmentRejectsNonPositiveRate(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email: "alice@example.test",
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.Zero)

	event := testEvent(now)
	event.Currency = campaignmodels.CurrencyBTC

	_, err := c.PriceInvestment(context.Background(), types.PriceInput{
		Event:    event,
		Settings: store.settings,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive exchange rate")
}

func TestPriceInvestmentUnknownAccountIsFatal(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	_, err := c.PriceInvestment(context.Background(), types.PriceInput{
		Event:    testEvent(now),
		Settings: store.settings,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateLedgerIncrementsAllCounters(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	counters := newFakeCounterStore()
	c := testContext(t, store, counters, &fakePublisher{}, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{
		Email:       "alice@example.test",
		UniqueID:    "tx-1",
		Currency:    campaignmodels.CurrencyBTC,
		Amount:      decimal.NewFromFloat(0.25),
		AmountUsd:   decimal.NewFromInt(2000),
		AmountToken: decimal.NewFromInt(2500),
	}

	require.NoError(t, c.UpdateLedger(context.Background(), types.SideEffectInput{Tx: tx}))

	assert.True(t, counters.values[string(ledger.AmountInvestedBtc)].Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, counters.values[string(ledger.AmountInvestedToken)].Equal(decimal.NewFromInt(2500)))
	assert.True(t, counters.values[string(ledger.AmountInvestedUsd)].Equal(decimal.NewFromInt(2000)))
}

func TestUpdateAccountAddsAmounts(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:     "alice@example.test",
		AmountUsd: decimal.NewFromInt(100),
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{
		Email:       "alice@example.test",
		UniqueID:    "tx-2",
		Currency:    campaignmodels.CurrencyFiat,
		Amount:      decimal.NewFromInt(500),
		AmountUsd:   decimal.NewFromInt(500),
		AmountToken: decimal.NewFromInt(600),
	}
	require.NoError(t, c.UpdateAccount(context.Background(), types.SideEffectInput{Tx: tx}))

	account, err := store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.True(t, account.AmountUsd.Equal(decimal.NewFromInt(600)))
	assert.True(t, account.AmountFiat.Equal(decimal.NewFromInt(500)))
	assert.True(t, account.AmountToken.Equal(decimal.NewFromInt(600)))
}

func TestSendConfirmationPublishesWithTotalsAndLink(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:             "alice@example.test",
		AmountUsd:         decimal.NewFromFloat(512.345),
		AmountToken:       decimal.NewFromFloat(683.12345),
		ConfirmationToken: "conf-1",
	}))

	pub := &fakePublisher{}
	c := testContext(t, store, newFakeCounterStore(), pub, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{
		Email:       "alice@example.test",
		UniqueID:    "tx-1",
		Currency:    campaignmodels.CurrencyFiat,
		Amount:      decimal.NewFromInt(500),
		AmountUsd:   decimal.NewFromInt(500),
		AmountToken: decimal.NewFromInt(600),
		CreatedUTC:  now,
	}

	require.NoError(t, c.SendConfirmation(context.Background(), types.SideEffectInput{
		Event:    types.InvestmentEvent{Link: "https://chain.example.test/tx/abc123"},
		Settings: store.settings,
		Tx:       tx,
	}))

	require.Len(t, pub.confirmations, 1)
	msg := pub.confirmations[0]
	assert.Equal(t, "alice@example.test", msg.Email)
	assert.Equal(t, "https://example.test/summary/conf-1", msg.SummaryLink)
	assert.Equal(t, "https://chain.example.test/tx/abc123", msg.TransactionLink)
	assert.True(t, msg.TotalUsd.Equal(decimal.NewFromFloat(512.35)), "got %s", msg.TotalUsd)
	assert.True(t, msg.TotalToken.Equal(decimal.NewFromFloat(683.1235)), "got %s", msg.TotalToken)
	assert.False(t, msg.KycRequired)
	assert.False(t, msg.MinAmountViolated)

	require.Len(t, pub.accepted, 1)
	assert.True(t, pub.accepted[0].AmountUsd.Equal(decimal.NewFromInt(500)))
}

func TestSendConfirmationFlagsReminderBelowMinimum(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:     "alice@example.test",
		AmountUsd: decimal.NewFromInt(50),
	}))

	pub := &fakePublisher{}
	c := testContext(t, store, newFakeCounterStore(), pub, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{
		Email: "alice@example.test", UniqueID: "tx-1",
		Currency: campaignmodels.CurrencyFiat, AmountUsd: decimal.NewFromInt(50),
	}
	require.NoError(t, c.SendConfirmation(context.Background(), types.SideEffectInput{
		Settings: store.settings,
		Tx:       tx,
	}))

	require.Len(t, pub.confirmations, 1)
	assert.True(t, pub.confirmations[0].MinAmountViolated)
	assert.True(t, pub.confirmations[0].MinAmountUsd.Equal(decimal.NewFromInt(100)))
}

func TestSendConfirmationIssuesKycOnce(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:     "alice@example.test",
		AmountUsd: decimal.NewFromInt(1500),
	}))

	pub := &fakePublisher{}
	c := testContext(t, store, newFakeCounterStore(), pub, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{
		Email: "alice@example.test", UniqueID: "tx-1",
		Currency: campaignmodels.CurrencyFiat, AmountUsd: decimal.NewFromInt(1500),
	}
	in := types.SideEffectInput{Settings: store.settings, Tx: tx}

	// Two qualifying transactions back to back: the second sees the
	// persisted request id and must not issue another.
	require.NoError(t, c.SendConfirmation(context.Background(), in))
	tx2 := *tx
	tx2.UniqueID = "tx-2"
	require.NoError(t, c.SendConfirmation(context.Background(), types.SideEffectInput{Settings: store.settings, Tx: &tx2}))

	require.Len(t, pub.kycRequests, 1)
	assert.NotEmpty(t, pub.kycRequests[0].KycID)
	assert.Contains(t, pub.kycRequests[0].KycLink, pub.kycRequests[0].KycID)

	require.Len(t, pub.confirmations, 2)
	assert.True(t, pub.confirmations[0].KycRequired)
	assert.False(t, pub.confirmations[1].KycRequired)

	account, err := store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.Equal(t, pub.kycRequests[0].KycID, account.KycRequestID)
	require.NotNil(t, account.KycRequestedUTC)

	email, err := store.GetInvestorEmail(context.Background(), campaignmodels.AttributeKycID, account.KycRequestID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.test", email)
}

func TestIssueReferralCode(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:     "alice@example.test",
		AmountUsd: decimal.NewFromInt(250),
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{Email: "alice@example.test", UniqueID: "tx-1"}
	in := types.SideEffectInput{Settings: store.settings, Tx: tx}

	require.NoError(t, c.IssueReferralCode(context.Background(), in))

	account, err := store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	require.Len(t, account.ReferralCode, 6)

	email, err := store.GetInvestorEmail(context.Background(), campaignmodels.AttributeReferralCode, account.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.test", email)

	// Second call keeps the existing code.
	code := account.ReferralCode
	require.NoError(t, c.IssueReferralCode(context.Background(), in))
	account, err = store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.Equal(t, code, account.ReferralCode)
}

func TestIssueReferralCodeSkipsBelowMinimum(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore(testSettings(now))
	require.NoError(t, store.SaveAccount(context.Background(), &campaignmodels.InvestorAccount{
		Email:     "alice@example.test",
		AmountUsd: decimal.NewFromInt(10),
	}))

	c := testContext(t, store, newFakeCounterStore(), &fakePublisher{}, decimal.NewFromInt(1))

	tx := &campaignmodels.InvestorTransaction{Email: "alice@example.test", UniqueID: "tx-1"}
	require.NoError(t, c.IssueReferralCode(context.Background(), types.SideEffectInput{Settings: store.settings, Tx: tx}))

	account, err := store.GetAccount(context.Background(), "alice@example.test")
	require.NoError(t, err)
	assert.Empty(t, account.ReferralCode)
}
