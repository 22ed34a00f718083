package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_submissions_total",
			Help: "Committed exercise submissions",
		},
		[]string{"passed"},
	)

	XPAwardedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_xp_awarded_total",
			Help: "XP credited to users, by source",
		},
		[]string{"source"},
	)

	AwardsGrantedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_awards_granted_total",
			Help: "Badge and achievement grants",
		},
		[]string{"kind", "code"},
	)

	HintsUsedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_hints_used_total",
			Help: "First-time hint unlocks",
		},
	)
)

const (
	XPSourceExercise    = "exercise"
	XPSourceAchievement = "achievement"
	XPSourceManual      = "manual"

	AwardKindBadge       = "badge"
	AwardKindAchievement = "achievement"
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionCounter,
			XPAwardedCounter,
			AwardsGrantedCounter,
			HintsUsedCounter,
		)
	})
}

func RecordSubmission(passed bool) {
	SubmissionCounter.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func RecordXP(source string, points int) {
	if points <= 0 {
		return
	}
	XPAwardedCounter.WithLabelValues(source).Add(float64(points))
}

func RecordAward(kind, code string) {
	AwardsGrantedCounter.WithLabelValues(kind, code).Inc()
}

func RecordHintUsed() {
	HintsUsedCounter.Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
