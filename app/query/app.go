// Package query hosts the campaign HTTP API: stats, investor lookups,
// refunds, settings administration and the live investment feed.
package query

import (
	"context"

	"github.com/lunavault/saleflow/app/query/types"
	"github.com/lunavault/saleflow/pkg/db/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/logging"
	saleredis "github.com/lunavault/saleflow/pkg/redis"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("query")
	if err != nil {
		panic(err)
	}

	campaignDb, dbErr := campaign.New(ctx, logger)
	if dbErr != nil {
		logger.Fatal("Unable to initialize campaign database", zap.Error(dbErr))
	}

	redisClient, redisErr := saleredis.NewClient(ctx, logger)
	if redisErr != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(redisErr))
	}

	return &types.App{
		DB:     campaignDb,
		Redis:  redisClient,
		Ledger: ledger.New(redisClient),
		Logger: logger,
	}
}
