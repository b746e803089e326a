package cache

import (
	"context"
	"time"
)

// NotificationCache remembers the last delivered SMS per order so support
// tooling can answer "did the customer get a text" without scanning the
// notifications table.
type NotificationCache interface {
	StoreLast(ctx context.Context, orderID, gatewayMessageID string, sentAt time.Time) error
}
