package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/healthmate/internal/application"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/rs/zerolog"
)

// Recorder observes finished attempts. Used for metrics.
type Recorder interface {
	ObserveAnalysis(kind analysis.Kind, outcome analysis.Outcome, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnalysis(analysis.Kind, analysis.Outcome, time.Duration) {}

// Orchestrator drives one record through
// unanalyzed/analyzed/failed -> processing -> analyzed|failed.
type Orchestrator struct {
	store   analysis.RecordStore
	invoker *Invoker
	clock   application.Clock
	logger  zerolog.Logger

	// Recorder defaults to a no-op.
	Recorder Recorder
}

func NewOrchestrator(store analysis.RecordStore, invoker *Invoker, clock application.Clock, logger zerolog.Logger) *Orchestrator {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Orchestrator{store: store, invoker: invoker, clock: clock, logger: logger, Recorder: nopRecorder{}}
}

// Run performs one analysis attempt and persists its outcome.
//
// A missing record returns analysis.ErrRecordNotFound before anything is
// written. Once the record is loaded the attempt no longer follows ctx
// cancellation; only the backend timeout bounds it. Store errors while
// persisting are returned wrapped together with the outcome.
func (o *Orchestrator) Run(ctx context.Context, req analysis.Request) (analysis.Outcome, error) {
	kind, id := req.Kind(), req.RecordID()
	log := o.logger.With().Str("record_id", id).Str("kind", string(kind)).Logger()

	rec, err := o.store.Load(ctx, kind, id)
	if err != nil {
		if errors.Is(err, analysis.ErrRecordNotFound) {
			return analysis.Outcome{}, err
		}
		return analysis.Outcome{}, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if rec == nil {
		return analysis.Outcome{}, analysis.ErrRecordNotFound
	}

	ctx = context.WithoutCancel(ctx)
	started := o.clock.Now()
	if err := o.store.MarkProcessing(ctx, kind, id, started); err != nil {
		if errors.Is(err, analysis.ErrRecordNotFound) {
			return analysis.Outcome{}, err
		}
		return analysis.Outcome{}, fmt.Errorf("mark processing %s %s: %w", kind, id, err)
	}
	log.Info().Msg("analysis started")

	outcome := o.invoker.Invoke(ctx, req)
	took := o.clock.Now().Sub(started)
	o.Recorder.ObserveAnalysis(kind, outcome, took)

	switch {
	case !outcome.Succeeded():
		log.Warn().Str("reason", outcome.FailureReason).Msg("analysis failed")
	case outcome.Degraded:
		log.Warn().Msg("analysis degraded")
	}

	if err := o.store.ApplyOutcome(ctx, kind, id, analysis.UpdateFor(outcome)); err != nil {
		log.Error().Err(err).Msg("persist analysis outcome")
		return outcome, fmt.Errorf("persist outcome %s %s: %w", kind, id, err)
	}

	log.Info().Bool("success", outcome.Succeeded()).Dur("took", took).Msg("analysis finished")
	return outcome, nil
}
