package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IncomingEmails is the metric for incoming emails, labelled by what happened to them
	IncomingEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmynews_incoming_emails",
			Help: "number of incoming emails",
		},
		[]string{"action"},
	)
	// FeedsRendered is the metric for rss documents served
	FeedsRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "getmynews_feeds_rendered",
			Help: "number of rss documents rendered",
		},
	)
	// ActiveFeeds is the metric for feeds able to receive emails
	ActiveFeeds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "getmynews_active_feeds",
			Help: "number of feeds able to receive emails",
		},
	)
)

// Incoming email actions
const (
	ActionProcessed         = "processed"
	ActionRejectedRecipient = "rejected_recipient"
	ActionUnknownFeed       = "unknown_feed"
	ActionFailed            = "failed"
)
