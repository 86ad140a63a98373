package temporal

import (
	"context"
	"fmt"

	"github.com/lunavault/saleflow/pkg/utils"
	"go.uber.org/zap"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

type Client struct {
	TClient   client.Client
	Namespace string

	// Task Queues
	InvestQueue string // invest - transaction processing workflows and activities

	// Workflow IDs
	InvestWorkflowID string // invest:<email>:<uniqueId>
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "saleflow")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:          tClient,
		Namespace:        ns,
		InvestQueue:      "invest",
		InvestWorkflowID: "invest:%s:%s",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetInvestQueue returns the transaction-processing task queue.
func (c *Client) GetInvestQueue() string { return c.InvestQueue }

// GetInvestWorkflowID returns the workflow ID for processing one investment
// event. The (email, uniqueId) pair is the idempotency key, so encoding it in
// the workflow ID lets Temporal reject concurrent duplicates of the same event.
func (c *Client) GetInvestWorkflowID(email, uniqueID string) string {
	return fmt.Sprintf(c.InvestWorkflowID, email, uniqueID)
}

// Close closes the underlying Temporal connection.
func (c *Client) Close() {
	if c.TClient != nil {
		c.TClient.Close()
	}
}
