// Package metrics exposes process counters for the journal.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodjournal"

var (
	recordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records appended to the store.",
		},
		[]string{"category", "encrypted"},
	)

	linesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Stored lines skipped while reading.",
		},
		[]string{"category", "reason"},
	)

	analysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Dream analysis calls by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Dream analysis latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Conversation sessions ended, by flow and trigger.",
		},
		[]string{"flow", "trigger"},
	)
)

// Skip reasons.
const (
	SkipEncoding = "encoding"
	SkipJSON     = "json"
	SkipLocked   = "locked"
	SkipDecrypt  = "decrypt"
	SkipInvalid  = "invalid"
)

// Session triggers.
const (
	TriggerUser    = "user"
	TriggerTimeout = "timeout"
	TriggerCancel  = "cancel"
)

// RecordWritten counts one appended record.
func RecordWritten(category string, encrypted bool) {
	recordsWritten.WithLabelValues(category, strconv.FormatBool(encrypted)).Inc()
}

// LineSkipped counts one unreadable line.
func LineSkipped(category, reason string) {
	linesSkipped.WithLabelValues(category, reason).Inc()
}

// AnalysisDone records an analysis outcome ("ok", "error", "open",
// "disabled") and its latency.
func AnalysisDone(outcome string, d time.Duration) {
	analysisRequests.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(d.Seconds())
}

// SessionFinished counts a session ending.
func SessionFinished(flow, trigger string) {
	sessionsFinished.WithLabelValues(flow, trigger).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
