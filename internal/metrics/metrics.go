package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbrelay_chat_requests_total",
			Help: "Chat requests by outcome (ok, rejected, upstream_error)",
		},
		[]string{"outcome"},
	)

	ChatRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbrelay_chat_rejections_total",
			Help: "Chat requests rejected by input validation, by reason",
		},
		[]string{"reason"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kbrelay_upstream_duration_seconds",
			Help:    "Latency of Responses API calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	ReplyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kbrelay_reply_fallbacks_total",
			Help: "Responses from which no text could be extracted",
		},
	)
)
