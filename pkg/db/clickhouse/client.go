package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lunavault/saleflow/pkg/retry"
	"github.com/lunavault/saleflow/pkg/utils"
	"go.uber.org/zap"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client wraps a ClickHouse connection pool bound to a target database.
type Client struct {
	Logger         *zap.Logger
	Db             driver.Conn
	TargetDatabase string
}

// New initializes a ClickHouse client for the given database.
// The connection is opened against the default database first so the target
// database can be created by the wrapper's InitializeDB.
func New(ctx context.Context, logger *zap.Logger, dbName string) (client Client, e error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client.Logger = logger
	retryConfig := retry.DefaultConfig()

	dsn := utils.Env("CLICKHOUSE_ADDR", "clickhouse://localhost:9000?sslmode=disable")
	username, password := extractCredentials(dsn)
	replicas := extractReplicas(dsn)

	debugEnabled := logger != nil && logger.Core().Enabled(zap.DebugLevel)

	maxOpenConns := utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 20)
	maxIdleConns := utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 10)
	connMaxLifetime := utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", time.Hour)

	options := &clickhouse.Options{
		Addr: replicas,

		// in_order keeps reads on the replica we wrote to; the duplicate
		// check reads its own prior writes.
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,

		Auth: clickhouse.Auth{
			Database: "default",
			Username: username,
			Password: password,
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"prefer_column_name_to_alias": 1,
		},
		Debug: false,
	}

	if debugEnabled {
		sugar := logger.Named("clickhouse.driver").Sugar()
		options.Debugf = sugar.Debugf
	}

	err := retry.WithBackoff(connCtx, retryConfig, logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("failed to open clickhouse connection: %w", err)
		}

		client.Db = conn

		client.Logger.Debug("Pinging ClickHouse connection")
		if err = client.Db.Ping(connCtx); err != nil {
			return fmt.Errorf("failed to ping clickhouse: %w", err)
		}

		client.TargetDatabase = dbName

		client.Logger.Info("ClickHouse connection pool configured",
			zap.String("database", dbName),
			zap.Strings("replicas", replicas),
			zap.Int("max_open_conns", maxOpenConns),
			zap.Int("max_idle_conns", maxIdleConns),
			zap.Duration("conn_max_lifetime", connMaxLifetime),
		)
		return nil
	})

	if err != nil {
		return Client{}, err
	}

	return client, nil
}

// Exec executes a raw SQL statement.
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Db.Exec(ctx, query, args...)
}

// QueryRow queries a single row.
func (c *Client) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	return c.Db.QueryRow(ctx, query, args...)
}

// Query queries multiple rows.
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.Db.Query(ctx, query, args...)
}

// PrepareBatch prepares a batch insert.
func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

// SanitizeName sanitizes the provided database name to be compatible with ClickHouse.
func SanitizeName(id string) string {
	s := strings.ToLower(id)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// extractCredentials parses username/password out of a clickhouse DSN.
func extractCredentials(dsn string) (string, string) {
	dsn = strings.TrimPrefix(dsn, "clickhouse://")
	dsn = strings.TrimPrefix(dsn, "tcp://")

	atIdx := strings.Index(dsn, "@")
	if atIdx == -1 {
		return "default", ""
	}

	credentials := dsn[:atIdx]

	colonIdx := strings.Index(credentials, ":")
	if colonIdx == -1 {
		return credentials, ""
	}

	return credentials[:colonIdx], credentials[colonIdx+1:]
}

// extractReplicas parses the host list out of a clickhouse DSN.
func extractReplicas(dsn string) []string {
	cleaned := strings.TrimPrefix(dsn, "clickhouse://")
	cleaned = strings.TrimPrefix(cleaned, "tcp://")

	hostPart := cleaned
	if idx := strings.Index(cleaned, "@"); idx != -1 {
		hostPart = cleaned[idx+1:]
	}
	if idx := strings.IndexAny(hostPart, "/?"); idx != -1 {
		hostPart = hostPart[:idx]
	}

	replicas := strings.Split(hostPart, ",")

	result := make([]string, 0, len(replicas))
	for _, r := range replicas {
		r = strings.TrimSpace(r)
		if r != "" {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		result = []string{"localhost:9000"}
	}
	return result
}
