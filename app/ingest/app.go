// Package ingest consumes inbound deposit events from the Redis stream and
// starts one processing workflow per event.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/lunavault/saleflow/pkg/db/campaign"
	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/lunavault/saleflow/pkg/logging"
	"github.com/lunavault/saleflow/pkg/processor/types"
	"github.com/lunavault/saleflow/pkg/processor/workflow"
	saleredis "github.com/lunavault/saleflow/pkg/redis"
	"github.com/lunavault/saleflow/pkg/temporal"
	"github.com/lunavault/saleflow/pkg/utils"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// StreamDeposits is the inbound stream written by the deposit watchers.
const StreamDeposits = "saleflow:deposits"

// workflowStarter is the slice of the Temporal client dispatch needs.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// emailResolver is the attribute index lookup used for address resolution.
type emailResolver interface {
	GetInvestorEmail(ctx context.Context, attrType campaignmodels.AttributeType, value string) (string, error)
}

type App struct {
	Consumer       *saleredis.StreamConsumer
	Pool           pond.Pool
	TemporalClient *temporal.Client
	Redis          *saleredis.Client
	DB             *campaign.DB
	Logger         *zap.Logger

	starter workflowStarter
	emails  emailResolver
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("ingest")
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

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	consumer, consumerErr := saleredis.NewStreamConsumer(redisClient, saleredis.StreamConsumerConfig{
		Stream:   utils.Env("DEPOSITS_STREAM", StreamDeposits),
		Group:    utils.Env("DEPOSITS_GROUP", "saleflow-ingest"),
		Consumer: utils.Env("DEPOSITS_CONSUMER", "ingest-1"),
		Logger:   logger,
	})
	if consumerErr != nil {
		logger.Fatal("Unable to create stream consumer", zap.Error(consumerErr))
	}

	pool := pond.NewPool(utils.EnvInt("INGEST_WORKERS", 32))

	return &App{
		Consumer:       consumer,
		Pool:           pool,
		TemporalClient: temporalClient,
		Redis:          redisClient,
		DB:             campaignDb,
		Logger:         logger,
		starter:        temporalClient.TClient,
		emails:         campaignDb,
	}
}

// Start consumes the deposit stream until the context is canceled.
func (a *App) Start(ctx context.Context) {
	err := a.Consumer.Run(ctx, a.handleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Consumer stopped", zap.Error(err))
	}
	a.Stop()
}

// Stop drains the dispatch pool and closes the shared clients.
func (a *App) Stop() {
	a.Pool.StopAndWait()
	a.TemporalClient.Close()
	_ = a.Redis.Close()
	_ = a.DB.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("ingest stopped")
}

// handleMessage decodes one stream entry and dispatches it through the pool,
// holding the acknowledgment until the workflow start succeeded. A failed
// start returns the error so the entry stays pending and is redelivered.
// Decode failures are acknowledged and logged: a payload that cannot be
// parsed now will not parse on redelivery either.
func (a *App) handleMessage(ctx context.Context, msg saleredis.Message) error {
	data := msg.GetData()
	if data == nil {
		a.Logger.Warn("Deposit entry without data field", zap.String("id", msg.ID))
		return nil
	}

	var event types.InvestmentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		a.Logger.Error("Undecodable deposit entry",
			zap.String("id", msg.ID),
			zap.ByteString("data", data),
			zap.Error(err))
		return nil
	}

	return a.Pool.SubmitErr(func() error {
		return a.dispatch(ctx, msg.ID, event)
	}).Wait()
}

// dispatch resolves the investor and starts the processing workflow. A
// non-nil return means the deposit was not handed off and must stay
// pending; only unknown-address deposits and already-started workflows are
// treated as handled.
func (a *App) dispatch(ctx context.Context, msgID string, event types.InvestmentEvent) error {
	if event.Email == "" {
		email, err := a.resolveEmail(ctx, event)
		if err != nil {
			a.Logger.Error("Pay-in address resolution failed",
				zap.String("id", msgID),
				zap.String("address", event.PayInAddress),
				zap.Error(err))
			return err
		}
		if email == "" {
			// Not investor money. Log loudly and move on.
			a.Logger.Warn("Deposit to unknown pay-in address",
				zap.String("id", msgID),
				zap.String("currency", string(event.Currency)),
				zap.String("address", event.PayInAddress))
			return nil
		}
		event.Email = email
	}

	opts := client.StartWorkflowOptions{
		ID:                    a.TemporalClient.GetInvestWorkflowID(event.Email, event.UniqueID),
		TaskQueue:             a.TemporalClient.GetInvestQueue(),
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	_, err := a.starter.ExecuteWorkflow(ctx, opts, workflow.ProcessInvestmentWorkflowName, event)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			a.Logger.Info("Workflow already started for event",
				zap.String("email", event.Email),
				zap.String("unique_id", event.UniqueID))
			return nil
		}
		a.Logger.Error("Unable to start processing workflow",
			zap.String("email", event.Email),
			zap.String("unique_id", event.UniqueID),
			zap.Error(err))
		return err
	}
	return nil
}

// resolveEmail maps a pay-in address to the owning investor via the
// attribute index.
func (a *App) resolveEmail(ctx context.Context, event types.InvestmentEvent) (string, error) {
	attrType, ok := campaignmodels.PayInAttributeFor(event.Currency)
	if !ok {
		return "", nil
	}
	return a.emails.GetInvestorEmail(ctx, attrType, event.PayInAddress)
}
