// Package reporter runs the scheduled job that copies the ledger counters
// into ClickHouse snapshots for historical charting.
package reporter

import (
	"context"
	"time"

	"github.com/lunavault/saleflow/pkg/db/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/logging"
	saleredis "github.com/lunavault/saleflow/pkg/redis"
	"github.com/lunavault/saleflow/pkg/utils"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
)

type App struct {
	Cron   *cron.Cron
	Ledger *ledger.Ledger
	Redis  *saleredis.Client
	DB     *campaign.DB
	Logger *zap.Logger
}

// Start starts the scheduler and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	a.Cron.Start()
	<-ctx.Done()
	a.Stop()
}

// Stop stops the scheduler, waiting for a running snapshot to finish.
func (a *App) Stop() {
	<-a.Cron.Stop().Done()
	_ = a.Redis.Close()
	_ = a.DB.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("reporter stopped")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("reporter")
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

	app := &App{
		Cron:   cron.New(),
		Ledger: ledger.New(redisClient),
		Redis:  redisClient,
		DB:     campaignDb,
		Logger: logger,
	}

	schedule := utils.Env("SNAPSHOT_CRON", "@every 5m")
	if _, err := app.Cron.AddFunc(schedule, app.takeSnapshot); err != nil {
		logger.Fatal("Invalid snapshot schedule", zap.String("schedule", schedule), zap.Error(err))
	}
	logger.Info("Snapshot job scheduled", zap.String("schedule", schedule))

	return app
}

// takeSnapshot copies the five campaign counters into a snapshot row. A
// failed read skips the tick instead of writing a partial snapshot.
func (a *App) takeSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot := &campaignmodels.CampaignSnapshot{TakenAt: time.Now().UTC()}
	reads := []struct {
		counter ledger.Counter
		dst     *decimal.Decimal
	}{
		{ledger.AmountInvestedBtc, &snapshot.InvestedBtc},
		{ledger.AmountInvestedEth, &snapshot.InvestedEth},
		{ledger.AmountInvestedFiat, &snapshot.InvestedFiat},
		{ledger.AmountInvestedUsd, &snapshot.InvestedUsd},
		{ledger.AmountInvestedToken, &snapshot.InvestedToken},
	}
	for _, read := range reads {
		v, err := a.Ledger.Value(ctx, read.counter)
		if err != nil {
			a.Logger.Error("Failed to read ledger counter, skipping snapshot",
				zap.String("counter", string(read.counter)),
				zap.Error(err))
			return
		}
		*read.dst = v
	}

	if err := a.DB.SaveSnapshot(ctx, snapshot); err != nil {
		a.Logger.Error("Failed to save campaign snapshot", zap.Error(err))
		return
	}

	a.Logger.Info("Campaign snapshot saved",
		zap.Time("taken_at", snapshot.TakenAt),
		zap.String("invested_usd", snapshot.InvestedUsd.String()),
		zap.String("invested_token", snapshot.InvestedToken.String()))
}
