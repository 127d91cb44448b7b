package bus

import (
	"context"

	"github.com/openscout/scout-backend/internal/realtime"
)

// Bus carries SSE messages between API replicas. Publish sends to every
// replica; StartForwarder delivers inbound messages to the local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
