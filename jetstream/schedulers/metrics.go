package schedulers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var WorkItemsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_scheduler_work_items_added_total",
	Help: "Total number of work items added to the scheduler",
}, []string{"pool", "scheduler_type"})

var WorkItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_scheduler_work_items_processed_total",
	Help: "Total number of work items processed by the scheduler",
}, []string{"pool", "scheduler_type"})

var WorkItemsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_scheduler_work_items_failed_total",
	Help: "Total number of work items whose handler returned an error",
}, []string{"pool", "scheduler_type"})

var WorkItemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "imposterwatch_scheduler_work_item_duration_seconds",
	Help:    "Time spent handling a single work item",
	Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
}, []string{"pool", "scheduler_type"})

var WorkersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "imposterwatch_scheduler_workers_active",
	Help: "Number of workers currently active",
}, []string{"pool", "scheduler_type"})
