package analysis_test

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/samber/lo"
)

// memStore keeps records in memory; every method is one critical section.
type memStore struct {
	mu       sync.Mutex
	records  map[string]*analysis.Record
	applyErr error
	applied  int
}

func newMemStore(records ...*analysis.Record) *memStore {
	s := &memStore{records: map[string]*analysis.Record{}}
	for _, r := range records {
		s.records[string(r.Kind)+"/"+r.ID] = r
	}
	return s
}

func (s *memStore) Load(_ context.Context, kind analysis.Kind, id string) (*analysis.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[string(kind)+"/"+id]
	if !ok {
		return nil, analysis.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) MarkProcessing(_ context.Context, kind analysis.Kind, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[string(kind)+"/"+id]
	if !ok {
		return analysis.ErrRecordNotFound
	}
	r.State.Phase = insight.PhaseProcessing
	r.State.ProcessingStartedAt = &at
	return nil
}

func (s *memStore) ApplyOutcome(_ context.Context, kind analysis.Kind, id string, u analysis.StateUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return s.applyErr
	}
	r, ok := s.records[string(kind)+"/"+id]
	if !ok {
		return analysis.ErrRecordNotFound
	}
	r.State = u.Apply(r.State)
	s.applied++
	return nil
}

func (s *memStore) ListStale(_ context.Context, before time.Time, limit int) ([]analysis.RecordRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []analysis.RecordRef
	for _, r := range s.records {
		st := r.State
		if st.Phase == insight.PhaseProcessing && st.ProcessingStartedAt != nil && st.ProcessingStartedAt.Before(before) {
			out = append(out, analysis.RecordRef{Kind: r.Kind, ID: r.ID, Since: *st.ProcessingStartedAt})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) state(kind analysis.Kind, id string) insight.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[string(kind)+"/"+id].State
}

func documentRecord(id string) *analysis.Record {
	return &analysis.Record{
		ID:    id,
		Kind:  analysis.KindDocument,
		State: insight.Unanalyzed(),
		Document: &analysis.DocumentPayload{
			Artifact: analysis.ArtifactRef{Key: "owner/reports/" + id + ".pdf", URL: "http://old/" + id, MediaType: "application/pdf"},
			Category: "blood-test",
		},
	}
}

func vitalsReading() vitals.Reading {
	return vitals.Reading{
		RecordDate:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		BloodPressure: &vitals.BloodPressure{Systolic: lo.ToPtr(145.0), Diastolic: lo.ToPtr(95.0)},
		HeartRate:     &vitals.HeartRate{Value: lo.ToPtr(88.0)},
	}
}

func vitalsRecord(id string) *analysis.Record {
	r := vitalsReading()
	return &analysis.Record{ID: id, Kind: analysis.KindVitals, State: insight.Unanalyzed(), Vitals: &r}
}
