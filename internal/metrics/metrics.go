package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_sessions_started_total",
		Help: "Total number of recording sessions started",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "turfwar_active_sessions",
		Help: "Number of sessions currently recording",
	})
	LocationUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_location_updates_total",
		Help: "Total number of accepted location fixes",
	})
	RejectedLocations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_rejected_locations_total",
		Help: "Total number of fixes rejected at ingestion",
	})
	ProviderErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_provider_errors_total",
		Help: "Total number of location provider errors reported",
	})
	Captures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_captures_total",
		Help: "Total number of territories committed",
	})
	NoCaptures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turfwar_no_captures_total",
		Help: "Sessions that ended without a capture, by reason",
	}, []string{"reason"})
	LeaderboardFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turfwar_leaderboard_failures_total",
		Help: "Leaderboard updates that failed after a capture",
	})
	ResolveDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "turfwar_resolve_duration_ms",
		Help:    "Claim resolution duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500},
	})
	Territories = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "turfwar_territories",
		Help: "Number of territories held by the store",
	})
)

func init() {
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(LocationUpdates)
	prometheus.MustRegister(RejectedLocations)
	prometheus.MustRegister(ProviderErrors)
	prometheus.MustRegister(Captures)
	prometheus.MustRegister(NoCaptures)
	prometheus.MustRegister(LeaderboardFailures)
	prometheus.MustRegister(ResolveDurationMs)
	prometheus.MustRegister(Territories)
}

// Handler serves the default registry for Prometheus scrapes.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
