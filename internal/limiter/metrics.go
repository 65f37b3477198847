package limiter

import "github.com/prometheus/client_golang/prometheus"

var (
	runningGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plangen_limiter_running",
			Help: "Work units currently holding a limiter slot.",
		},
		[]string{"limiter"},
	)
	queuedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plangen_limiter_queued",
			Help: "Work units waiting for a limiter slot.",
		},
		[]string{"limiter"},
	)
	waitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plangen_limiter_wait_seconds",
			Help:    "Time spent waiting for a limiter slot.",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(runningGauge)
	prometheus.MustRegister(queuedGauge)
	prometheus.MustRegister(waitSeconds)
}
