// Package processor wires the Temporal worker that runs investment
// processing workflows.
package processor

import (
	"context"
	"time"

	"github.com/lunavault/saleflow/pkg/db/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	"github.com/lunavault/saleflow/pkg/logging"
	"github.com/lunavault/saleflow/pkg/notify"
	"github.com/lunavault/saleflow/pkg/pricing"
	"github.com/lunavault/saleflow/pkg/processor/activity"
	"github.com/lunavault/saleflow/pkg/processor/workflow"
	"github.com/lunavault/saleflow/pkg/rates"
	saleredis "github.com/lunavault/saleflow/pkg/redis"
	"github.com/lunavault/saleflow/pkg/temporal"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Redis          *saleredis.Client
	DB             *campaign.DB
	Logger         *zap.Logger
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and closes the shared clients.
func (a *App) Stop() {
	a.Worker.Stop()
	a.TemporalClient.Close()
	_ = a.Redis.Close()
	_ = a.DB.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("processor stopped")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("processor")
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

	if nsErr := temporal.EnsureNamespace(ctx, logger, 30*24*time.Hour); nsErr != nil {
		logger.Fatal("Unable to ensure temporal namespace", zap.Error(nsErr))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	summaryTemplate, kycTemplate := activity.URLTemplatesFromEnv()

	activityContext := &activity.Context{
		Logger:             logger,
		DB:                 campaignDb,
		Ledger:             ledger.New(redisClient),
		Rates:              rates.NewFromEnv(),
		Notifier:           notify.NewStreamPublisher(redisClient),
		Schedule:           pricing.DefaultSchedule(),
		SummaryURLTemplate: summaryTemplate,
		KycURLTemplate:     kycTemplate,
	}
	workflowContext := workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.GetInvestQueue(),
		worker.Options{
			MaxConcurrentWorkflowTaskPollers: 10,
			MaxConcurrentActivityTaskPollers: 10,
			// Same-investor events must not race each other through the
			// check-then-act duplicate guard, so keep execution slots modest;
			// the reject-duplicate workflow ID policy covers the rest.
			MaxConcurrentWorkflowTaskExecutionSize: 200,
			MaxConcurrentActivityExecutionSize:     500,
			WorkerStopTimeout:                      time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.ProcessInvestment,
		temporalworkflow.RegisterOptions{Name: workflow.ProcessInvestmentWorkflowName},
	)
	wkr.RegisterActivity(activityContext.CheckDuplicate)
	wkr.RegisterActivity(activityContext.PrepareInvestment)
	wkr.RegisterActivity(activityContext.PriceInvestment)
	wkr.RegisterActivity(activityContext.UpdateLedger)
	wkr.RegisterActivity(activityContext.UpdateAccount)
	wkr.RegisterActivity(activityContext.SendConfirmation)
	wkr.RegisterActivity(activityContext.IssueReferralCode)

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Redis:          redisClient,
		DB:             campaignDb,
		Logger:         logger,
	}
}
