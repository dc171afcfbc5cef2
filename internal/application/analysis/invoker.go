package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single backend call when none is configured.
const DefaultTimeout = 60 * time.Second

// Invoker wraps exactly one backend call and turns whatever comes back
// into an Outcome. It never returns an error and never panics.
type Invoker struct {
	backend    analysis.Backend
	builder    analysis.InstructionBuilder
	normalizer insight.Normalizer
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewInvoker(backend analysis.Backend, builder analysis.InstructionBuilder, texts insight.Texts, timeout time.Duration, logger zerolog.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		backend:    backend,
		builder:    builder,
		normalizer: insight.NewNormalizer(texts),
		timeout:    timeout,
		logger:     logger,
	}
}

func (i *Invoker) Invoke(ctx context.Context, req analysis.Request) analysis.Outcome {
	log := i.logger.With().Str("record_id", req.RecordID()).Str("kind", string(req.Kind())).Logger()

	in, err := i.builder.Build(req)
	if err != nil {
		log.Error().Err(err).Msg("build instructions")
		return analysis.Failure(analysis.Reason(analysis.FailureUnavailable, err))
	}

	raw, err := i.complete(ctx, in, req.Artifact())
	if err != nil {
		class := analysis.Classify(err)
		log.Warn().Err(err).Str("class", string(class)).Msg("backend call failed")
		return analysis.Failure(analysis.Reason(class, err))
	}

	payload, err := insight.Extract(raw)
	if err != nil {
		log.Warn().Err(err).Int("raw_len", len(raw)).Msg("unparseable model output, using raw text")
		return analysis.DegradedSuccess(i.normalizer.Fallback(raw))
	}
	return analysis.Success(i.normalizer.Normalize(payload))
}

func (i *Invoker) complete(ctx context.Context, in analysis.Instructions, artifact *analysis.ArtifactRef) (raw string, err error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			raw, err = "", fmt.Errorf("%w: panic: %v", analysis.ErrBackendUnavailable, r)
		}
	}()

	raw, err = i.backend.Complete(ctx, in, artifact)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, analysis.ErrBackendTimeout) {
		err = fmt.Errorf("%w after %s: %w", analysis.ErrBackendTimeout, i.timeout, err)
	}
	return raw, err
}
