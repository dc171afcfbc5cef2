package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64

	AnalysesDocument uint64
	AnalysesVitals   uint64
	AnalysesFailed   uint64
	AnalysesDegraded uint64
	// cumulative backend round-trip in milliseconds
	AnalysisMillis uint64

	StartTime time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// AnalysisRecorder feeds analysis outcomes into the global counters. It
// satisfies the orchestrator's Recorder.
type AnalysisRecorder struct{}

func (AnalysisRecorder) ObserveAnalysis(kind analysis.Kind, o analysis.Outcome, took time.Duration) {
	switch kind {
	case analysis.KindDocument:
		atomic.AddUint64(&globalMetrics.AnalysesDocument, 1)
	case analysis.KindVitals:
		atomic.AddUint64(&globalMetrics.AnalysesVitals, 1)
	}
	switch {
	case !o.Succeeded():
		atomic.AddUint64(&globalMetrics.AnalysesFailed, 1)
	case o.Degraded:
		atomic.AddUint64(&globalMetrics.AnalysesDegraded, 1)
	}
	atomic.AddUint64(&globalMetrics.AnalysisMillis, uint64(took.Milliseconds()))
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses": map[string]interface{}{
			"document_total":  atomic.LoadUint64(&globalMetrics.AnalysesDocument),
			"vitals_total":    atomic.LoadUint64(&globalMetrics.AnalysesVitals),
			"failed_total":    atomic.LoadUint64(&globalMetrics.AnalysesFailed),
			"degraded_total":  atomic.LoadUint64(&globalMetrics.AnalysesDegraded),
			"duration_ms_sum": atomic.LoadUint64(&globalMetrics.AnalysisMillis),
		},
		"uptime_seconds": time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
