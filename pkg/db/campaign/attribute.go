package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

const attributesTable = "investor_attributes"

// initAttributes creates the attribute index table. An attribute value maps
// to exactly one email; re-registering the same (type, value) replaces the
// owner, which is how address reassignment works.
func (db *DB) initAttributes(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			attribute_type LowCardinality(String),
			value String,
			email String,
			updated_at DateTime64(6)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (attribute_type, value)
	`, db.Name, attributesTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", attributesTable, err)
	}
	return nil
}

// SaveAttribute registers an attribute value for an investor.
func (db *DB) SaveAttribute(ctx context.Context, attrType campaignmodels.AttributeType, value, email string) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (attribute_type, value, email, updated_at) VALUES`,
		db.Name, attributesTable)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	if err := batch.Append(string(attrType), value, email, time.Now().UTC()); err != nil {
		_ = batch.Abort()
		return err
	}

	return batch.Send()
}

// GetInvestorEmail resolves an attribute value to the owning investor.
// Returns an empty string when the value is not registered.
func (db *DB) GetInvestorEmail(ctx context.Context, attrType campaignmodels.AttributeType, value string) (string, error) {
	query := fmt.Sprintf(`
		SELECT email
		FROM "%s"."%s" FINAL
		WHERE attribute_type = ? AND value = ?
		LIMIT 1
	`, db.Name, attributesTable)

	var email string
	err := db.QueryRow(ctx, query, string(attrType), value).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("resolve %s %q: %w", attrType, value, err)
	}
	return email, nil
}
