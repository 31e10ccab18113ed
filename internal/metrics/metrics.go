package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podforge_searches_total",
			Help: "Total number of topic searches executed",
		},
		[]string{"outcome"},
	)

	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podforge_page_fetches_total",
			Help: "Total number of source page fetches",
		},
		[]string{"outcome", "challenge"},
	)

	PageFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podforge_page_fetch_duration_seconds",
			Help:    "Duration of source page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podforge_completions_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"mode", "outcome"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podforge_completion_duration_seconds",
			Help:    "Duration of LLM completion calls in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)
)

// RecordSearch updates the search counter for a finished search call.
func RecordSearch(resultCount int, failed bool) {
	outcome := "ok"
	switch {
	case failed:
		outcome = "error"
	case resultCount == 0:
		outcome = "empty"
	}
	SearchesTotal.WithLabelValues(outcome).Inc()
}

// RecordFetch updates fetch metrics for one source page download.
func RecordFetch(host string, success bool, challenge string, d time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	PageFetchesTotal.WithLabelValues(outcome, challenge).Inc()
	PageFetchDuration.WithLabelValues(host).Observe(d.Seconds())
}

// RecordCompletion updates completion metrics for one LLM call.
func RecordCompletion(mode string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CompletionsTotal.WithLabelValues(mode, outcome).Inc()
	CompletionDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Server encapsulates an HTTP server exposing Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
