package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryanwahyu/healthmate/internal/application"
	appanalysis "github.com/bryanwahyu/healthmate/internal/application/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	aiopenai "github.com/bryanwahyu/healthmate/internal/infra/ai/openai"
	"github.com/bryanwahyu/healthmate/internal/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingRecorder struct{ success, failed int }

func (r *countingRecorder) ObserveAnalysis(_ analysis.Kind, o analysis.Outcome, _ time.Duration) {
	if o.Succeeded() {
		r.success++
	} else {
		r.failed++
	}
}

func newOrchestrator(ctrl *gomock.Controller, store analysis.RecordStore, backend analysis.Backend, timeout time.Duration) *appanalysis.Orchestrator {
	return appanalysis.NewOrchestrator(store, newInvoker(ctrl, backend, timeout), application.SystemClock{}, zerolog.Nop())
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("success is written atomically", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := newMemStore(vitalsRecord("v1"))
		backend := mocks.NewMockBackend(ctrl)
		backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(`{"englishSummary":"BP is high","romanUrduSummary":"BP zyada hai"}`, nil)

		rec := &countingRecorder{}
		orch := newOrchestrator(ctrl, store, backend, time.Second)
		orch.Recorder = rec

		out, err := orch.Run(context.Background(), analysis.NewVitalsRequest("v1", vitalsReading()))
		req.NoError(err)
		req.True(out.Succeeded())

		st := store.state(analysis.KindVitals, "v1")
		req.True(st.Consistent())
		req.True(st.IsAnalyzed)
		req.True(st.IsProcessed)
		req.Nil(st.ProcessingError)
		req.Equal("BP is high", st.Result.EnglishSummary)
		req.Equal(insight.PhaseAnalyzed, st.Phase)
		req.Nil(st.ProcessingStartedAt)
		req.Equal(1, rec.success)
	})

	t.Run("timeout keeps the previous result and records the reason", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		record := documentRecord("r1")
		previous := &insight.Result{EnglishSummary: "from last week"}
		record.State = insight.State{Phase: insight.PhaseAnalyzed, IsAnalyzed: true, IsProcessed: true, Result: previous}
		store := newMemStore(record)

		backend := mocks.NewMockBackend(ctrl)
		backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ analysis.Instructions, _ *analysis.ArtifactRef) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			})

		out, err := newOrchestrator(ctrl, store, backend, 20*time.Millisecond).Run(context.Background(), docRequest)
		req.NoError(err)
		req.False(out.Succeeded())

		st := store.state(analysis.KindDocument, "r1")
		req.True(st.Consistent())
		req.False(st.IsAnalyzed)
		req.False(st.IsProcessed)
		req.NotNil(st.ProcessingError)
		req.Contains(*st.ProcessingError, "backend timeout")
		req.Same(previous, st.Result)
		req.Equal(insight.PhaseFailed, st.Phase)
	})

	t.Run("pdf sent to a chat completions backend is recorded as a failure", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := newMemStore(documentRecord("r1"))
		backend := aiopenai.NewClient("sk-test", "gpt-4o", "http://127.0.0.1:1/v1", nil, nil)
		pdf := analysis.NewDocumentRequest("r1", analysis.ArtifactRef{Key: "owner/reports/r1.pdf", URL: "http://minio/r1.pdf", MediaType: "application/pdf"}, "blood-test")

		out, err := newOrchestrator(ctrl, store, backend, time.Second).Run(context.Background(), pdf)
		req.NoError(err)
		req.False(out.Succeeded())

		st := store.state(analysis.KindDocument, "r1")
		req.True(st.Consistent())
		req.False(st.IsAnalyzed)
		req.Equal(insight.PhaseFailed, st.Phase)
		req.NotNil(st.ProcessingError)
		req.Contains(*st.ProcessingError, "application/pdf")
		req.Nil(st.Result)
	})

	t.Run("degraded output still counts as analyzed", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := newMemStore(documentRecord("r1"))
		backend := mocks.NewMockBackend(ctrl)
		backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("I could not read the scan clearly.", nil)

		out, err := newOrchestrator(ctrl, store, backend, time.Second).Run(context.Background(), docRequest)
		req.NoError(err)
		req.True(out.Degraded)

		st := store.state(analysis.KindDocument, "r1")
		req.True(st.IsAnalyzed)
		req.Equal("I could not read the scan clearly.", st.Result.EnglishSummary)
	})

	t.Run("missing record touches nothing", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordStore(ctrl)
		backend := mocks.NewMockBackend(ctrl)
		store.EXPECT().Load(gomock.Any(), analysis.KindDocument, "r1").Return(nil, analysis.ErrRecordNotFound)

		_, err := newOrchestrator(ctrl, store, backend, time.Second).Run(context.Background(), docRequest)
		req.ErrorIs(err, analysis.ErrRecordNotFound)
	})

	t.Run("store failure while persisting is surfaced", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := newMemStore(documentRecord("r1"))
		store.applyErr = errors.New("deadlock found")
		backend := mocks.NewMockBackend(ctrl)
		backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(`{}`, nil)

		out, err := newOrchestrator(ctrl, store, backend, time.Second).Run(context.Background(), docRequest)
		req.ErrorContains(err, "deadlock found")
		req.True(out.Succeeded())
	})

	t.Run("caller cancellation after load does not abort the attempt", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordStore(ctrl)
		backend := mocks.NewMockBackend(ctrl)
		ctx, cancel := context.WithCancel(context.Background())

		gomock.InOrder(
			store.EXPECT().Load(gomock.Any(), analysis.KindDocument, "r1").
				DoAndReturn(func(context.Context, analysis.Kind, string) (*analysis.Record, error) {
					cancel()
					return documentRecord("r1"), nil
				}),
			store.EXPECT().MarkProcessing(gomock.Any(), analysis.KindDocument, "r1", gomock.Any()).Return(nil),
			backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, _ analysis.Instructions, _ *analysis.ArtifactRef) (string, error) {
					if err := ctx.Err(); err != nil {
						return "", err
					}
					return `{"englishSummary":"done"}`, nil
				}),
			store.EXPECT().ApplyOutcome(gomock.Any(), analysis.KindDocument, "r1", gomock.Any()).
				DoAndReturn(func(_ context.Context, _ analysis.Kind, _ string, u analysis.StateUpdate) error {
					req.True(u.IsAnalyzed)
					return nil
				}),
		)

		out, err := newOrchestrator(ctrl, store, backend, time.Second).Run(ctx, docRequest)
		req.NoError(err)
		req.True(out.Succeeded())
	})
}
