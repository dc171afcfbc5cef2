package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bryanwahyu/healthmate/internal/application"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/rs/zerolog"
)

// ErrPipelineClosed is returned for background work submitted after Close.
var ErrPipelineClosed = errors.New("analysis pipeline closed")

const staleBatch = 100

// Pipeline is the entry point the rest of the application uses. Background
// and synchronous runs go through the same Orchestrator.
type Pipeline struct {
	orch     *Orchestrator
	store    analysis.RecordStore
	resolver analysis.ArtifactResolver
	clock    application.Clock
	logger   zerolog.Logger

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPipeline builds a pipeline running at most maxConcurrent background
// analyses at once. resolver may be nil when stored artifact URLs never expire.
func NewPipeline(orch *Orchestrator, store analysis.RecordStore, resolver analysis.ArtifactResolver, maxConcurrent int, logger zerolog.Logger) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Pipeline{
		orch:     orch,
		store:    store,
		resolver: resolver,
		clock:    orch.clock,
		logger:   logger,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// AnalyzeDocument schedules a document analysis and returns immediately.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, recordID string, artifact analysis.ArtifactRef, category string) error {
	return p.background(ctx, analysis.NewDocumentRequest(recordID, artifact, category))
}

// AnalyzeDocumentSync runs a document analysis and waits for its outcome.
func (p *Pipeline) AnalyzeDocumentSync(ctx context.Context, recordID string, artifact analysis.ArtifactRef, category string) (analysis.Outcome, error) {
	return p.orch.Run(ctx, analysis.NewDocumentRequest(recordID, artifact, category))
}

// AnalyzeVitals runs a vitals analysis and waits for its outcome.
func (p *Pipeline) AnalyzeVitals(ctx context.Context, recordID string, reading vitals.Reading) (analysis.Outcome, error) {
	return p.orch.Run(ctx, analysis.NewVitalsRequest(recordID, reading))
}

// ComputeAverages is vitals.Aggregate, exposed next to the analysis operations.
func (p *Pipeline) ComputeAverages(readings []vitals.Reading) *vitals.Averages {
	return vitals.Aggregate(readings)
}

// Reanalyze rebuilds the request from the stored record and runs it again.
// With wait=false it is scheduled in the background and the returned
// outcome is empty.
func (p *Pipeline) Reanalyze(ctx context.Context, kind analysis.Kind, id string, wait bool) (analysis.Outcome, error) {
	req, err := p.requestFor(ctx, kind, id)
	if err != nil {
		return analysis.Outcome{}, err
	}
	if !wait {
		return analysis.Outcome{}, p.background(ctx, req)
	}
	return p.orch.Run(ctx, req)
}

// Reconcile re-runs every record the store reports as stale at now-grace:
// stuck in processing, or a report whose background run never started.
// Records are handled one after another; the count of attempted records is
// returned even when some of them fail.
func (p *Pipeline) Reconcile(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := p.clock.Now().Add(-grace)
	refs, err := p.store.ListStale(ctx, cutoff, staleBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale records: %w", err)
	}

	var errs []error
	for _, ref := range refs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		p.logger.Info().Str("record_id", ref.ID).Str("kind", string(ref.Kind)).Time("since", ref.Since).Msg("reconciling stale analysis")
		if _, err := p.Reanalyze(ctx, ref.Kind, ref.ID, true); err != nil {
			errs = append(errs, err)
		}
	}
	return len(refs), errors.Join(errs...)
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (p *Pipeline) RunReconciler(ctx context.Context, interval, grace time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.Reconcile(ctx, grace)
			if err != nil {
				p.logger.Error().Err(err).Int("records", n).Msg("reconcile")
			}
		}
	}
}

// StartReconciler runs RunReconciler on its own goroutine. The loop counts
// as background work, so Wait returns only after ctx is done and the
// current reconcile pass has finished.
func (p *Pipeline) StartReconciler(ctx context.Context, interval, grace time.Duration) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}
	if interval <= 0 {
		return nil
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunReconciler(ctx, interval, grace)
	}()
	return nil
}

// Close stops accepting background work. Call Wait afterwards to drain.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait blocks until every scheduled background analysis has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) background(ctx context.Context, req analysis.Request) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}

	p.wg.Add(1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if _, err := p.orch.Run(ctx, req); err != nil {
			p.logger.Error().Err(err).Str("record_id", req.RecordID()).Str("kind", string(req.Kind())).Msg("background analysis")
		}
	}()
	return nil
}

func (p *Pipeline) requestFor(ctx context.Context, kind analysis.Kind, id string) (analysis.Request, error) {
	rec, err := p.store.Load(ctx, kind, id)
	if err != nil {
		return analysis.Request{}, err
	}
	if rec == nil {
		return analysis.Request{}, analysis.ErrRecordNotFound
	}

	switch {
	case kind == analysis.KindDocument && rec.Document != nil:
		doc := *rec.Document
		if p.resolver != nil && doc.Artifact.Key != "" {
			url, err := p.resolver.URL(ctx, doc.Artifact.Key)
			if err != nil {
				return analysis.Request{}, fmt.Errorf("resolve artifact %s: %w", doc.Artifact.Key, err)
			}
			doc.Artifact.URL = url
		}
		return analysis.NewDocumentRequest(id, doc.Artifact, doc.Category), nil
	case kind == analysis.KindVitals && rec.Vitals != nil:
		return analysis.NewVitalsRequest(id, *rec.Vitals), nil
	default:
		return analysis.Request{}, fmt.Errorf("record %s %s has no %s payload", kind, id, kind)
	}
}
