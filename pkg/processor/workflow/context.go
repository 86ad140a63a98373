// Package workflow hosts the investment processing workflow.
package workflow

import (
	"github.com/lunavault/saleflow/pkg/processor/activity"
	"github.com/lunavault/saleflow/pkg/temporal"
)

type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
}
