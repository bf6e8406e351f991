package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dustsweep_runs_total", Help: "Runs that reached a terminal or waiting state"},
		[]string{"state"},
	)
	LegsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dustsweep_legs_total", Help: "Conversion legs by outcome"},
		[]string{"status", "kind"},
	)
	QuoteAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dustsweep_quote_attempts_total", Help: "Quote requests sent to the aggregator"},
		[]string{"outcome"},
	)
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dustsweep_submissions_total", Help: "Transaction submissions to the ledger"},
		[]string{"outcome"},
	)
	ConfirmationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dustsweep_confirmation_seconds",
		Help:    "Time from submission to confirmation or give-up",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(RunsTotal, LegsTotal, QuoteAttemptsTotal, SubmissionsTotal, ConfirmationSeconds)
}

// Serve exposes /metrics on addr. Listen failures are logged; the sweep runs without metrics.
func Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}
