package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrackingSessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitehub_tracking_sessions_opened_total",
		Help: "Total number of order tracking views entered.",
	})

	TrackingSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bitehub_tracking_sessions_active",
		Help: "Current number of open order tracking views.",
	})

	OrderFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitehub_order_fetch_failures_total",
		Help: "Total number of tracked orders that could not be fetched.",
	})

	PickupsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitehub_pickups_confirmed_total",
		Help: "Total number of pickups acknowledged by the order service.",
	})

	PickupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitehub_pickup_failures_total",
		Help: "Total number of pickup confirmations rejected or lost.",
	})

	RatingsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitehub_ratings_submitted_total",
		Help: "Total number of food ratings submitted.",
	})

	FoodStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitehub_food_status_updates_total",
		Help: "Total number of food status changes committed, by target status.",
	},
		[]string{"food_status"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitehub_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	OrderCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bitehub_order_cache_items",
		Help: "Current number of items in the order cache.",
	})

	OutboxTasksPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitehub_outbox_tasks_published_total",
		Help: "Total number of outbox tasks handed to the producer, by result.",
	},
		[]string{"result"},
	)
)
