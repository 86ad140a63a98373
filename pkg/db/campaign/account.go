package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

const accountsTable = "investor_accounts"

// initAccounts creates the accounts table. Rows are versioned by updated_at
// and collapsed by ReplacingMergeTree; reads always go through FINAL so the
// latest version wins.
func (db *DB) initAccounts(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			email String,
			amount_btc Decimal(38, 12),
			amount_eth Decimal(38, 12),
			amount_fiat Decimal(38, 12),
			amount_usd Decimal(38, 12),
			amount_token Decimal(38, 12),
			kyc_request_id String,
			kyc_requested_utc Nullable(DateTime64(6)),
			referral_code String,
			referral_code_applied String,
			referrals_number Int32,
			confirmation_token String,
			updated_at DateTime64(6)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY email
	`, db.Name, accountsTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", accountsTable, err)
	}
	return nil
}

// GetAccount returns the latest version of an investor account, or nil when
// the investor is unknown.
func (db *DB) GetAccount(ctx context.Context, email string) (*campaignmodels.InvestorAccount, error) {
	query := fmt.Sprintf(`
		SELECT email, amount_btc, amount_eth, amount_fiat, amount_usd, amount_token,
		       kyc_request_id, kyc_requested_utc, referral_code, referral_code_applied,
		       referrals_number, confirmation_token, updated_at
		FROM "%s"."%s" FINAL
		WHERE email = ?
		LIMIT 1
	`, db.Name, accountsTable)

	var account campaignmodels.InvestorAccount
	err := db.QueryRow(ctx, query, email).Scan(
		&account.Email,
		&account.AmountBtc,
		&account.AmountEth,
		&account.AmountFiat,
		&account.AmountUsd,
		&account.AmountToken,
		&account.KycRequestID,
		&account.KycRequestedUTC,
		&account.ReferralCode,
		&account.ReferralCodeApplied,
		&account.ReferralsNumber,
		&account.ConfirmationToken,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account %s: %w", email, err)
	}
	return &account, nil
}

// SaveAccount inserts a new account version. ReplacingMergeTree keeps the
// row with the greatest updated_at per email.
func (db *DB) SaveAccount(ctx context.Context, account *campaignmodels.InvestorAccount) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (
		email, amount_btc, amount_eth, amount_fiat, amount_usd, amount_token,
		kyc_request_id, kyc_requested_utc, referral_code, referral_code_applied,
		referrals_number, confirmation_token, updated_at
	) VALUES`, db.Name, accountsTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	err = batch.Append(
		account.Email,
		account.AmountBtc,
		account.AmountEth,
		account.AmountFiat,
		account.AmountUsd,
		account.AmountToken,
		account.KycRequestID,
		account.KycRequestedUTC,
		account.ReferralCode,
		account.ReferralCodeApplied,
		account.ReferralsNumber,
		account.ConfirmationToken,
		account.UpdatedAt,
	)
	if err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}

// IncrementAmounts applies one transaction's amounts on top of the account's
// cumulative totals and writes the next version.
func (db *DB) IncrementAmounts(ctx context.Context, email string, currency campaignmodels.Currency, amount, usd, token decimal.Decimal) error {
	account, err := db.GetAccount(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("increment amounts: account %s not found", email)
	}

	next := account.AddAmounts(currency, amount, usd, token)
	next.UpdatedAt = time.Now().UTC()
	return db.SaveAccount(ctx, &next)
}

// SaveKyc records the issued KYC request id and its timestamp.
func (db *DB) SaveKyc(ctx context.Context, email, kycRequestID string) error {
	account, err := db.GetAccount(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("save kyc: account %s not found", email)
	}

	now := time.Now().UTC()
	account.KycRequestID = kycRequestID
	account.KycRequestedUTC = &now
	account.UpdatedAt = now
	return db.SaveAccount(ctx, account)
}

// SaveReferralCode records an investor's own referral code.
func (db *DB) SaveReferralCode(ctx context.Context, email, code string) error {
	account, err := db.GetAccount(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("save referral code: account %s not found", email)
	}

	account.ReferralCode = code
	account.UpdatedAt = time.Now().UTC()
	return db.SaveAccount(ctx, account)
}
