package sequential

import (
	"context"
	"time"

	"github.com/imposterwatch/imposterwatch/jetstream"
	"github.com/imposterwatch/imposterwatch/jetstream/schedulers"

	"github.com/prometheus/client_golang/prometheus"
)

// Scheduler is a sequential scheduler that runs work inline on the caller's goroutine. AddWork does not return until
// the handler has finished, so events are handled strictly in the order they were added.
type Scheduler struct {
	Do func(context.Context, *jetstream.Event) error

	ident string

	// metrics
	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter
	itemsFailed    prometheus.Counter
	itemDuration   prometheus.Observer
	workersActive  prometheus.Gauge
}

var _ jetstream.Scheduler = (*Scheduler)(nil)

func NewScheduler(ident string, do func(context.Context, *jetstream.Event) error) *Scheduler {
	p := &Scheduler{
		Do: do,

		ident: ident,

		itemsAdded:     schedulers.WorkItemsAdded.WithLabelValues(ident, "sequential"),
		itemsProcessed: schedulers.WorkItemsProcessed.WithLabelValues(ident, "sequential"),
		itemsFailed:    schedulers.WorkItemsFailed.WithLabelValues(ident, "sequential"),
		itemDuration:   schedulers.WorkItemDuration.WithLabelValues(ident, "sequential"),
		workersActive:  schedulers.WorkersActive.WithLabelValues(ident, "sequential"),
	}

	p.workersActive.Set(1)

	return p
}

func (s *Scheduler) Shutdown() {
	s.workersActive.Set(0)
}

func (s *Scheduler) AddWork(ctx context.Context, repo string, val *jetstream.Event) error {
	s.itemsAdded.Inc()
	start := time.Now()
	err := s.Do(ctx, val)
	s.itemDuration.Observe(time.Since(start).Seconds())
	s.itemsProcessed.Inc()
	if err != nil {
		s.itemsFailed.Inc()
	}
	return err
}
