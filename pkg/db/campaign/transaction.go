package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

const transactionsTable = "investor_transactions"

// initTransactions creates the transactions table. ReplacingMergeTree keyed
// on the idempotency key means a duplicate insert (the residual
// check-then-act race) merges into one row instead of double counting here.
func (db *DB) initTransactions(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			email String,
			unique_id String,
			created_utc DateTime64(6),
			currency LowCardinality(String),
			transaction_id String,
			block_id String,
			pay_in_address String,
			amount Decimal(38, 12),
			fee Decimal(38, 12),
			amount_usd Decimal(38, 12),
			amount_token Decimal(38, 12),
			token_price Decimal(38, 12),
			token_price_context String CODEC(ZSTD(3)),
			exchange_rate Decimal(38, 12),
			exchange_rate_context String CODEC(ZSTD(3))
		) ENGINE = ReplacingMergeTree
		ORDER BY (email, unique_id)
	`, db.Name, transactionsTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", transactionsTable, err)
	}
	return nil
}

// SaveTransaction persists one accepted investment.
func (db *DB) SaveTransaction(ctx context.Context, tx *campaignmodels.InvestorTransaction) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (
		email, unique_id, created_utc, currency, transaction_id, block_id, pay_in_address,
		amount, fee, amount_usd, amount_token, token_price, token_price_context,
		exchange_rate, exchange_rate_context
	) VALUES`, db.Name, transactionsTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	err = batch.Append(
		tx.Email,
		tx.UniqueID,
		tx.CreatedUTC,
		string(tx.Currency),
		tx.TransactionID,
		tx.BlockID,
		tx.PayInAddress,
		tx.Amount,
		tx.Fee,
		tx.AmountUsd,
		tx.AmountToken,
		tx.TokenPrice,
		tx.TokenPriceContext,
		tx.ExchangeRate,
		tx.ExchangeRateContext,
	)
	if err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}

// GetTransaction looks up a transaction by its idempotency key.
// Returns nil when no transaction exists - the caller treats that as
// "not yet processed", not as an error.
func (db *DB) GetTransaction(ctx context.Context, email, uniqueID string) (*campaignmodels.InvestorTransaction, error) {
	query := fmt.Sprintf(`
		SELECT email, unique_id, created_utc, currency, transaction_id, block_id, pay_in_address,
		       amount, fee, amount_usd, amount_token, token_price, token_price_context,
		       exchange_rate, exchange_rate_context
		FROM "%s"."%s" FINAL
		WHERE email = ? AND unique_id = ?
		LIMIT 1
	`, db.Name, transactionsTable)

	var tx campaignmodels.InvestorTransaction
	var currency string
	row := db.QueryRow(ctx, query, email, uniqueID)
	err := row.Scan(
		&tx.Email,
		&tx.UniqueID,
		&tx.CreatedUTC,
		&currency,
		&tx.TransactionID,
		&tx.BlockID,
		&tx.PayInAddress,
		&tx.Amount,
		&tx.Fee,
		&tx.AmountUsd,
		&tx.AmountToken,
		&tx.TokenPrice,
		&tx.TokenPriceContext,
		&tx.ExchangeRate,
		&tx.ExchangeRateContext,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s/%s: %w", email, uniqueID, err)
	}
	tx.Currency = campaignmodels.Currency(currency)
	return &tx, nil
}

// ListTransactions returns an investor's transactions, newest first.
func (db *DB) ListTransactions(ctx context.Context, email string, limit int) ([]*campaignmodels.InvestorTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT email, unique_id, created_utc, currency, transaction_id, block_id, pay_in_address,
		       amount, fee, amount_usd, amount_token, token_price, token_price_context,
		       exchange_rate, exchange_rate_context
		FROM "%s"."%s" FINAL
		WHERE email = ?
		ORDER BY created_utc DESC
		LIMIT %d
	`, db.Name, transactionsTable, limit)

	rows, err := db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", email, err)
	}
	defer rows.Close()

	var txs []*campaignmodels.InvestorTransaction
	for rows.Next() {
		var tx campaignmodels.InvestorTransaction
		var currency string
		if err := rows.Scan(
			&tx.Email,
			&tx.UniqueID,
			&tx.CreatedUTC,
			&currency,
			&tx.TransactionID,
			&tx.BlockID,
			&tx.PayInAddress,
			&tx.Amount,
			&tx.Fee,
			&tx.AmountUsd,
			&tx.AmountToken,
			&tx.TokenPrice,
			&tx.TokenPriceContext,
			&tx.ExchangeRate,
			&tx.ExchangeRateContext,
		); err != nil {
			return nil, err
		}
		tx.Currency = campaignmodels.Currency(currency)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}
