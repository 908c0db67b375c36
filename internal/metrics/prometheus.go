package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
	[]string{"policy"},
)

var MatchRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "match_requests_total",
		Help: "Match request transitions by resulting status",
	},
	[]string{"status"},
)

var MatchCandidatesScored = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "matching_candidates_scored",
		Help:    "Number of candidates scored per match lookup",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	},
)

var NotificationsPublishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Notification events handed to the broker",
	},
	[]string{"backend", "type", "status"},
)

var EmailsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Emails attempted by provider and outcome",
	},
	[]string{"provider", "status"},
)

var ExternalAPIDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "external_api_duration_seconds",
		Help:    "Duration of external API calls in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "service"},
)

var EventsMarkedPastTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "events_marked_past_total",
		Help: "Events moved from active to past by the scheduler",
	},
)

// InitAPIMetrics registers every collector with the default registry.  It is
// called once from main; tests use the collectors unregistered.
func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchCandidatesScored)
	prometheus.MustRegister(NotificationsPublishedTotal)
	prometheus.MustRegister(EmailsSentTotal)
	prometheus.MustRegister(ExternalAPIDuration)
	prometheus.MustRegister(EventsMarkedPastTotal)
}
