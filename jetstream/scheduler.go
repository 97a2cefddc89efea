package jetstream

import (
	"context"
)

// Scheduler receives actionable events from a Consumer. AddWork must not return until it is safe for the consumer to
// read the next frame; implementations which run work asynchronously must bound their queue.
type Scheduler interface {
	AddWork(ctx context.Context, repo string, evt *Event) error
	Shutdown()
}
