package clock

import (
	"context"
	"time"
)

// Clock reports the current time in UTC. Charge expiry, webhook timestamp
// windows and status timestamps all read it.
type Clock interface {
	Now(ctx context.Context) time.Time
}
