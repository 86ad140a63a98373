package notify

import (
	"context"
	"encoding/json"
	"fmt"

	saleredis "github.com/lunavault/saleflow/pkg/redis"
)

// Publisher delivers investor-facing messages. Implementations must be safe
// for concurrent use.
type Publisher interface {
	PublishConfirmation(ctx context.Context, msg *PurchaseConfirmation) error
	PublishKycRequest(ctx context.Context, msg *KycRequest) error
	PublishAccepted(ctx context.Context, msg *AcceptedInvestment) error
}

// StreamPublisher writes messages onto Redis streams. Stream appends are
// durable handoffs: the delivery worker consumes with a consumer group, so a
// message survives worker restarts. The live feed uses fire-and-forget
// pub/sub instead, dropped events there only affect dashboards.
type StreamPublisher struct {
	client *saleredis.Client
}

// NewStreamPublisher wraps a Redis client.
func NewStreamPublisher(client *saleredis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

func (p *StreamPublisher) publish(ctx context.Context, stream string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", stream, err)
	}
	if _, err := p.client.XAdd(ctx, stream, map[string]interface{}{"data": data}); err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

// PublishConfirmation queues a purchase confirmation for delivery.
func (p *StreamPublisher) PublishConfirmation(ctx context.Context, msg *PurchaseConfirmation) error {
	return p.publish(ctx, StreamConfirmations, msg)
}

// PublishKycRequest queues a KYC request for delivery.
func (p *StreamPublisher) PublishKycRequest(ctx context.Context, msg *KycRequest) error {
	return p.publish(ctx, StreamKycRequests, msg)
}

// PublishAccepted announces an accepted investment on the live feed.
func (p *StreamPublisher) PublishAccepted(ctx context.Context, msg *AcceptedInvestment) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal accepted event: %w", err)
	}
	p.client.Publish(ctx, ChannelAccepted, data)
	return nil
}
