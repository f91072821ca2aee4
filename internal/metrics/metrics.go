// Package metrics exposes Prometheus counters for feedback intake and persistence.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"feedbackbot/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Reasons a stored entry or blob was dropped on load.
const (
	DiscardMalformed = "malformed"
	DiscardNotArray  = "not_array"
	DiscardNoRating  = "no_rating"
)

var (
	// Submissions counts feedback form submissions by result.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_submissions_total",
		Help: "Feedback submissions by result.",
	}, []string{"result"})

	// PersistFailures counts failed writes of the feedback collection.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_persist_failures_total",
		Help: "Failed writes of the feedback collection.",
	})

	// LoadDiscarded counts stored data dropped while loading, by reason.
	LoadDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_load_discarded_total",
		Help: "Stored blobs or entries ignored on load.",
	}, []string{"reason"})

	// Records is the size of the in-memory feedback collection.
	Records = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_records",
		Help: "Records held in memory.",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.GetLogger().Warnw("Metrics server shutdown failed", "error", err)
		}
	}()

	logger.GetLogger().Infow("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
