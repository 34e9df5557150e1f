package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Published counts events handed to a bus.
	Published = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of in-process events published",
		},
		[]string{"bus", "type"},
	)

	// Superseded counts events replaced before a subscriber read them.
	Superseded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_superseded_total",
			Help: "Total number of events replaced by a newer one before delivery",
		},
		[]string{"bus"},
	)

	// Subscribers tracks live subscriptions per bus.
	Subscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "events_subscribers",
			Help: "Current number of subscribers per bus",
		},
		[]string{"bus"},
	)
)
