package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

const settingsTable = "campaign_settings"

// initSettings creates the settings table. The campaign has a single
// settings row; edits insert a new version and FINAL reads keep the latest.
func (db *DB) initSettings(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id UInt8,
			presale_start_utc DateTime64(6),
			presale_end_utc DateTime64(6),
			presale_tokens_total Decimal(38, 12),
			crowdsale_start_utc DateTime64(6),
			crowdsale_end_utc DateTime64(6),
			crowdsale_tokens_total Decimal(38, 12),
			token_base_price_usd Decimal(38, 12),
			token_decimals Int32,
			min_invest_amount_usd Decimal(38, 12),
			hard_cap_usd Decimal(38, 12),
			enable_referral_program Bool,
			referral_discount Decimal(38, 12),
			referral_owner_discount Decimal(38, 12),
			referral_code_length Int32,
			kyc_enable_requests Bool,
			kyc_threshold_usd Decimal(38, 12),
			updated_at DateTime64(6)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY id
	`, db.Name, settingsTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", settingsTable, err)
	}
	return nil
}

// GetSettings returns the current campaign settings, or nil when the
// campaign has not been configured yet.
func (db *DB) GetSettings(ctx context.Context) (*campaignmodels.CampaignSettings, error) {
	query := fmt.Sprintf(`
		SELECT presale_start_utc, presale_end_utc, presale_tokens_total,
		       crowdsale_start_utc, crowdsale_end_utc, crowdsale_tokens_total,
		       token_base_price_usd, token_decimals, min_invest_amount_usd, hard_cap_usd,
		       enable_referral_program, referral_discount, referral_owner_discount,
		       referral_code_length, kyc_enable_requests, kyc_threshold_usd, updated_at
		FROM "%s"."%s" FINAL
		WHERE id = 1
		LIMIT 1
	`, db.Name, settingsTable)

	var s campaignmodels.CampaignSettings
	err := db.QueryRow(ctx, query).Scan(
		&s.PreSaleStartUTC,
		&s.PreSaleEndUTC,
		&s.PreSaleTokensTotal,
		&s.CrowdSaleStartUTC,
		&s.CrowdSaleEndUTC,
		&s.CrowdSaleTokensTotal,
		&s.TokenBasePriceUsd,
		&s.TokenDecimals,
		&s.MinInvestAmountUsd,
		&s.HardCapUsd,
		&s.EnableReferralProgram,
		&s.ReferralDiscount,
		&s.ReferralOwnerDiscount,
		&s.ReferralCodeLength,
		&s.KycEnableRequests,
		&s.KycThresholdUsd,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings inserts a new settings version.
func (db *DB) SaveSettings(ctx context.Context, settings *campaignmodels.CampaignSettings) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (
		id, presale_start_utc, presale_end_utc, presale_tokens_total,
		crowdsale_start_utc, crowdsale_end_utc, crowdsale_tokens_total,
		token_base_price_usd, token_decimals, min_invest_amount_usd, hard_cap_usd,
		enable_referral_program, referral_discount, referral_owner_discount,
		referral_code_length, kyc_enable_requests, kyc_threshold_usd, updated_at
	) VALUES`, db.Name, settingsTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	err = batch.Append(
		uint8(1),
		settings.PreSaleStartUTC,
		settings.PreSaleEndUTC,
		settings.PreSaleTokensTotal,
		settings.CrowdSaleStartUTC,
		settings.CrowdSaleEndUTC,
		settings.CrowdSaleTokensTotal,
		settings.TokenBasePriceUsd,
		settings.TokenDecimals,
		settings.MinInvestAmountUsd,
		settings.HardCapUsd,
		settings.EnableReferralProgram,
		settings.ReferralDiscount,
		settings.ReferralOwnerDiscount,
		settings.ReferralCodeLength,
		settings.KycEnableRequests,
		settings.KycThresholdUsd,
		updatedAt,
	)
	if err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}
