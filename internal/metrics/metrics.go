// Package metrics exposes Prometheus collectors for the page monitor.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pollsTotal                 *prometheus.CounterVec
	fetchDurationSeconds       prometheus.Histogram
	lastChangeTimestamp        prometheus.Gauge
	archiveSubmissionsTotal    *prometheus.CounterVec
	cooldownTripsTotal         prometheus.Counter
	cooldownActive             prometheus.Gauge
	notificationsTotal         *prometheus.CounterVec
	publishesTotal             *prometheus.CounterVec
	capturesTotal              *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
		pollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_polls_total",
				Help: "Polls of the monitored page, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagewatch_fetch_duration_seconds",
				Help:    "Latency of successful monitored page fetches.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		lastChangeTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagewatch_last_change_timestamp_seconds",
				Help: "Unix time of the most recent detected content change.",
			},
		)

		archiveSubmissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_archive_submissions_total",
				Help: "Archive submissions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		cooldownTripsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pagewatch_archive_cooldown_trips_total",
				Help: "Times the archive cooldown was started or extended.",
			},
		)

		cooldownActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagewatch_archive_cooldown_active",
				Help: "1 while archive submissions are suppressed, else 0.",
			},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_notifications_total",
				Help: "Webhook notifications, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		publishesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_change_events_published_total",
				Help: "Change events published, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		capturesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_page_captures_total",
				Help: "Changed page captures written to the blob store, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagewatch_rate_limit_delays_seconds",
				Help:    "Histogram of archive pacing waits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePoll records one poll of the monitored page. duration is only
// observed for successful fetches.
func ObservePoll(outcome string, duration time.Duration) {
	Init()
	pollsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		fetchDurationSeconds.Observe(duration.Seconds())
	}
}

// SetLastChange records when content last changed.
func SetLastChange(at time.Time) {
	Init()
	lastChangeTimestamp.Set(float64(at.Unix()))
}

// ObserveArchive counts one archive submission outcome.
func ObserveArchive(outcome string) {
	Init()
	archiveSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCooldownTrip counts a cooldown start or extension.
func ObserveCooldownTrip() {
	Init()
	cooldownTripsTotal.Inc()
}

// SetCooldownActive mirrors the cooldown state.
func SetCooldownActive(active bool) {
	Init()
	if active {
		cooldownActive.Set(1)
		return
	}
	cooldownActive.Set(0)
}

// ObserveNotification counts one webhook notification outcome.
func ObserveNotification(outcome string) {
	Init()
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObservePublish counts one change event publish outcome.
func ObservePublish(outcome string) {
	Init()
	publishesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCapture counts one page capture outcome.
func ObserveCapture(outcome string) {
	Init()
	capturesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
