package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/lunavault/saleflow/pkg/utils"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
)

// EnsureNamespace registers the configured namespace if it does not exist yet.
// Workflow histories double as the audit trail of every processed investment,
// so the retention window defaults to 30 days.
func EnsureNamespace(ctx context.Context, logger *zap.Logger, retention time.Duration) error {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	namespace := utils.Env("TEMPORAL_NAMESPACE", "saleflow")
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	nsClient, err := client.NewNamespaceClient(client.Options{HostPort: host})
	if err != nil {
		return fmt.Errorf("failed to create namespace client: %w", err)
	}
	defer nsClient.Close()

	err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(retention),
	})
	if err != nil {
		if _, exists := err.(*serviceerror.NamespaceAlreadyExists); exists {
			return nil
		}
		return fmt.Errorf("failed to register namespace %s: %w", namespace, err)
	}

	logger.Info("Registered Temporal namespace",
		zap.String("namespace", namespace),
		zap.Duration("retention", retention))
	return nil
}
