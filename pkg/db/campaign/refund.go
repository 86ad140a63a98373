package campaign

import (
	"context"
	"fmt"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

const refundsTable = "investor_refunds"

// initRefunds creates the append-only refund audit table.
func (db *DB) initRefunds(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			email String,
			reason LowCardinality(String),
			payload String CODEC(ZSTD(3)),
			created_utc DateTime64(6)
		) ENGINE = MergeTree
		ORDER BY (created_utc, email)
	`, db.Name, refundsTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", refundsTable, err)
	}
	return nil
}

// SaveRefund records a rejected transaction for manual follow-up. Payload is
// the raw inbound event so operations can refund without replaying the queue.
func (db *DB) SaveRefund(ctx context.Context, email string, reason campaignmodels.RefundReason, payload string) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (email, reason, payload, created_utc) VALUES`,
		db.Name, refundsTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	if err := batch.Append(email, string(reason), payload, time.Now().UTC()); err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}

// ListRefunds returns refund records, newest first.
func (db *DB) ListRefunds(ctx context.Context, limit int) ([]*campaignmodels.RefundRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT email, reason, payload, created_utc
		FROM "%s"."%s"
		ORDER BY created_utc DESC
		LIMIT %d
	`, db.Name, refundsTable, limit)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*campaignmodels.RefundRecord
	for rows.Next() {
		var r campaignmodels.RefundRecord
		var reason string
		if err := rows.Scan(&r.Email, &reason, &r.Payload, &r.CreatedUTC); err != nil {
			return nil, err
		}
		r.Reason = campaignmodels.RefundReason(reason)
		refunds = append(refunds, &r)
	}
	return refunds, rows.Err()
}
