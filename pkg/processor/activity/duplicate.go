package activity

import (
	"context"

	"github.com/lunavault/saleflow/pkg/processor/types"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// CheckDuplicate validates the event's identity and looks up the
// transaction store before any mutation happens. A missing email or unique
// id is malformed input, not a business rejection, and must never be
// retried: the event can never become processable.
func (c *Context) CheckDuplicate(ctx context.Context, event types.InvestmentEvent) (types.CheckDuplicateOutput, error) {
	if event.Email == "" || event.UniqueID == "" {
		return types.CheckDuplicateOutput{}, temporal.NewNonRetryableApplicationError(
			"investment event missing identity fields",
			"malformed_event",
			nil,
			eventPayload(event),
		)
	}

	tx, err := c.DB.GetTransaction(ctx, event.Email, event.UniqueID)
	if err != nil {
		return types.CheckDuplicateOutput{}, err
	}
	if tx != nil {
		c.Logger.Info("duplicate investment event, skipping",
			zap.String("email", event.Email),
			zap.String("unique_id", event.UniqueID))
		return types.CheckDuplicateOutput{Duplicate: true}, nil
	}

	return types.CheckDuplicateOutput{}, nil
}
