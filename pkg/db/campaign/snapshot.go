package campaign

import (
	"context"
	"fmt"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

const snapshotsTable = "campaign_snapshots"

// initSnapshots creates the reporter snapshot table.
func (db *DB) initSnapshots(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			taken_at DateTime64(6),
			invested_btc Decimal(38, 12),
			invested_eth Decimal(38, 12),
			invested_fiat Decimal(38, 12),
			invested_usd Decimal(38, 12),
			invested_token Decimal(38, 12)
		) ENGINE = MergeTree
		ORDER BY taken_at
	`, db.Name, snapshotsTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", snapshotsTable, err)
	}
	return nil
}

// SaveSnapshot persists one ledger snapshot.
func (db *DB) SaveSnapshot(ctx context.Context, snapshot *campaignmodels.CampaignSnapshot) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (
		taken_at, invested_btc, invested_eth, invested_fiat, invested_usd, invested_token
	) VALUES`, db.Name, snapshotsTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	err = batch.Append(
		snapshot.TakenAt,
		snapshot.InvestedBtc,
		snapshot.InvestedEth,
		snapshot.InvestedFiat,
		snapshot.InvestedUsd,
		snapshot.InvestedToken,
	)
	if err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}
