// internal/alerting/sink.go
package alerting

import (
	"context"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// Sink receives every alert after it has been persisted.
// Implementations must not assume any ordering relative to the request that produced the alert.
type Sink interface {
	AlertCreated(ctx context.Context, alert data.Alert)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, alert data.Alert)

func (f SinkFunc) AlertCreated(ctx context.Context, alert data.Alert) { f(ctx, alert) }
