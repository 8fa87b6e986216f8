package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portfolio-bff/backend/internal/storage/executor"
)

var (
	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_chat_requests_total",
			Help: "Chat requests by classification and outcome",
		},
		[]string{"classification", "outcome"},
	)

	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_chat_duration_seconds",
			Help:    "Chat pipeline duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"classification"},
	)

	LLMAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_llm_attempts_total",
			Help: "Upstream generation attempts by provider and result",
		},
		[]string{"provider", "result"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_llm_attempt_duration_seconds",
			Help:    "Upstream generation attempt duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	DBState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_db_connection_state",
			Help: "Query executor state (0 disconnected, 1 connecting, 2 connected)",
		},
	)

	DBTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_db_state_transitions_total",
			Help: "Query executor state transitions",
		},
		[]string{"from", "to"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_db_query_duration_seconds",
			Help:    "Query duration in seconds by result",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(ChatRequests)
		prometheus.MustRegister(ChatDuration)
		prometheus.MustRegister(LLMAttempts)
		prometheus.MustRegister(LLMDuration)
		prometheus.MustRegister(DBState)
		prometheus.MustRegister(DBTransitions)
		prometheus.MustRegister(DBQueryDuration)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(RateLimited)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// ObserveLLMAttempt matches llm.Config.OnAttempt.
func ObserveLLMAttempt(provider string, elapsed time.Duration, err error) {
	LLMAttempts.WithLabelValues(provider, resultLabel(err)).Inc()
	LLMDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ExecutorObserver exports query executor telemetry.
type ExecutorObserver struct{}

func (ExecutorObserver) StateChanged(from, to executor.State) {
	DBState.Set(float64(to))
	DBTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (ExecutorObserver) QueryCompleted(elapsed time.Duration, err error) {
	DBQueryDuration.WithLabelValues(queryResult(err)).Observe(elapsed.Seconds())
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, executor.ErrQueryTimeout):
		return "timeout"
	case errors.Is(err, executor.ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, executor.ErrQueryFailed):
		return "failed"
	default:
		return "cancelled"
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
