package campaign

import (
	"context"
	"fmt"

	"github.com/lunavault/saleflow/pkg/db/clickhouse"
	"github.com/lunavault/saleflow/pkg/utils"
	"go.uber.org/zap"
)

// DB is the campaign database: investor transactions, accounts, refunds, the
// attribute index, campaign settings and reporter snapshots. It implements
// Store.
type DB struct {
	clickhouse.Client
	Name string
}

// New creates the campaign database client and ensures the schema exists.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	dbName := clickhouse.SanitizeName(utils.Env("CAMPAIGN_DB", "saleflow"))

	client, err := clickhouse.New(ctx, logger.With(zap.String("db", dbName)), dbName)
	if err != nil {
		return nil, err
	}

	db := &DB{
		Client: client,
		Name:   dbName,
	}

	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// DatabaseName returns the campaign database name.
func (db *DB) DatabaseName() string { return db.Name }

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

// InitializeDB ensures the campaign database and its tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.Exec(ctx, fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS "%s"`, db.Name)); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"transactions", db.initTransactions},
		{"accounts", db.initAccounts},
		{"refunds", db.initRefunds},
		{"attributes", db.initAttributes},
		{"settings", db.initSettings},
		{"snapshots", db.initSnapshots},
	}
	for _, init := range inits {
		if err := init.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", init.name, err)
		}
	}

	return nil
}
