package workflow

import (
	"time"

	"github.com/lunavault/saleflow/pkg/processor/types"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ProcessInvestmentWorkflowName is the registered name of the processing
// workflow; the ingest consumer starts executions by this name.
const ProcessInvestmentWorkflowName = "ProcessInvestment"

// ProcessInvestment runs one deposit through validation, pricing,
// aggregation and side effects.
//
// The first three activities are fatal on error: nothing has been persisted
// yet, so Temporal retrying the workflow task re-runs them safely. From the
// moment the transaction row exists, the remaining activities swallow their
// own failures and always complete, a replay past that point would
// double-count ledger and account increments.
func (wc *Context) ProcessInvestment(ctx workflow.Context, event types.InvestmentEvent) error {
	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    10,
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         retry,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)

	// 1. Identity validation + duplicate check, before any mutation.
	var dupOut types.CheckDuplicateOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.CheckDuplicate, event).Get(ctx, &dupOut); err != nil {
		return err
	}
	if dupOut.Duplicate {
		return nil
	}

	// 2. Settings snapshot, ledger totals, business validation.
	var prepOut types.PrepareOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.PrepareInvestment, event).Get(ctx, &prepOut); err != nil {
		return err
	}
	if prepOut.Rejected {
		logger.Info("investment rejected", "uniqueId", event.UniqueID, "reason", prepOut.Reason)
		return nil
	}

	// 3. Rate, pricing, transaction persistence.
	priceIn := types.PriceInput{
		Event:       event,
		Settings:    prepOut.Settings,
		SoldTokens:  prepOut.SoldTokens,
		InvestedUsd: prepOut.InvestedUsd,
	}
	var priceOut types.PriceOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.PriceInvestment, priceIn).Get(ctx, &priceOut); err != nil {
		return err
	}

	// 4. Post-persistence steps. Each activity swallows its own failures
	// and runs with a single attempt: a timeout retry after a partial
	// success would double-count increments. Errors surfacing here (worker
	// crash, timeout) are logged, never propagated.
	sideCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	sideIn := types.SideEffectInput{
		Event:    event,
		Settings: prepOut.Settings,
		Tx:       priceOut.Tx,
	}

	if err := workflow.ExecuteActivity(sideCtx, wc.ActivityContext.UpdateLedger, sideIn).Get(sideCtx, nil); err != nil {
		logger.Error("ledger update did not complete", "uniqueId", event.UniqueID, "error", err)
	}

	if err := workflow.ExecuteActivity(sideCtx, wc.ActivityContext.UpdateAccount, sideIn).Get(sideCtx, nil); err != nil {
		logger.Error("account update did not complete", "uniqueId", event.UniqueID, "error", err)
	}

	if err := workflow.ExecuteActivity(sideCtx, wc.ActivityContext.SendConfirmation, sideIn).Get(sideCtx, nil); err != nil {
		logger.Error("confirmation did not complete", "uniqueId", event.UniqueID, "error", err)
	}

	if err := workflow.ExecuteActivity(sideCtx, wc.ActivityContext.IssueReferralCode, sideIn).Get(sideCtx, nil); err != nil {
		logger.Error("referral issuance did not complete", "uniqueId", event.UniqueID, "error", err)
	}

	return nil
}
