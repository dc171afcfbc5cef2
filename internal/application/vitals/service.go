package vitals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/healthmate/internal/application"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	domain "github.com/bryanwahyu/healthmate/internal/domain/vitals"
)

// window used by Stats for the recent count and averages
const statsWindow = 30 * 24 * time.Hour

// Analyzer is the slice of the analysis pipeline the vitals use-cases need.
type Analyzer interface {
	AnalyzeVitals(ctx context.Context, recordID string, reading domain.Reading) (analysis.Outcome, error)
	ComputeAverages(readings []domain.Reading) *domain.Averages
}

// Service implements use-cases untuk manual vitals
type Service struct {
	Repo     domain.Repository
	Analyzer Analyzer
	Clock    application.Clock
	Logger   zerolog.Logger

	validate *validator.Validate
	newID    func() string
}

func NewService(repo domain.Repository, analyzer Analyzer, clock application.Clock, logger zerolog.Logger) *Service {
	return &Service{
		Repo:     repo,
		Analyzer: analyzer,
		Clock:    clock,
		Logger:   logger,
		validate: validator.New(),
		newID:    uuid.NewString,
	}
}

// Add validates and stores a reading. Analysis is not started here; call
// Insights for that.
func (s *Service) Add(ctx context.Context, owner string, r domain.Reading) (*domain.Entry, error) {
	if err := s.validate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, err)
	}
	if r.Empty() {
		return nil, fmt.Errorf("%w: at least one measurement is required", domain.ErrInvalid)
	}
	r = r.Clone()
	r.ApplyDefaults()

	now := s.Clock.Now()
	e := &domain.Entry{
		ID:        domain.ID(s.newID()),
		OwnerID:   owner,
		Reading:   r,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Save(ctx, e); err != nil {
		return nil, fmt.Errorf("save vitals: %w", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, owner string, f domain.Filter) (*domain.PaginatedResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 50
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	items, total, err := s.Repo.List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	return &domain.PaginatedResult{
		Data:       items,
		Page:       f.Page,
		PageSize:   f.PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(f.PageSize))),
	}, nil
}

func (s *Service) Get(ctx context.Context, owner string, id domain.ID) (*domain.Entry, error) {
	return s.Repo.Get(ctx, owner, id)
}

// Patch lists the reading fields to change. A nil field keeps the stored
// value; a provided sub-reading replaces the stored one whole.
type Patch struct {
	RecordDate    *time.Time
	BloodPressure *domain.BloodPressure
	BloodSugar    *domain.BloodSugar
	Weight        *domain.Weight
	Height        *domain.Height
	HeartRate     *domain.HeartRate
	Temperature   *domain.Temperature
	OxygenLevel   *domain.Oxygen
	Notes         *string
	Symptoms      *[]string
}

func (p Patch) apply(r *domain.Reading) {
	if p.RecordDate != nil {
		r.RecordDate = *p.RecordDate
	}
	if p.BloodPressure != nil {
		r.BloodPressure = p.BloodPressure
	}
	if p.BloodSugar != nil {
		r.BloodSugar = p.BloodSugar
	}
	if p.Weight != nil {
		r.Weight = p.Weight
	}
	if p.Height != nil {
		r.Height = p.Height
	}
	if p.HeartRate != nil {
		r.HeartRate = p.HeartRate
	}
	if p.Temperature != nil {
		r.Temperature = p.Temperature
	}
	if p.OxygenLevel != nil {
		r.OxygenLevel = p.OxygenLevel
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Symptoms != nil {
		r.Symptoms = *p.Symptoms
	}
}

// Update changes an entry's reading. Any stored analysis is dropped and
// the entry goes back to unanalyzed: the old result describes old values.
func (s *Service) Update(ctx context.Context, owner string, id domain.ID, p Patch) (*domain.Entry, error) {
	e, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	r := e.Reading
	p.apply(&r)
	if err := s.validate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, err)
	}
	if r.Empty() {
		return nil, fmt.Errorf("%w: at least one measurement is required", domain.ErrInvalid)
	}
	r = r.Clone()
	r.ApplyDefaults()

	e.Reading = r
	e.Analysis = insight.Unanalyzed()
	e.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, owner string, id domain.ID) error {
	return s.Repo.Delete(ctx, owner, id)
}

// Insights is the synchronous analysis of one entry.
type Insights struct {
	Entry   *domain.Entry
	Outcome analysis.Outcome
}

// Insights analyses the given entry, or the latest one when id is empty,
// and waits for the outcome.
func (s *Service) Insights(ctx context.Context, owner string, id domain.ID) (*Insights, error) {
	var (
		e   *domain.Entry
		err error
	)
	if id == "" {
		e, err = s.Repo.Latest(ctx, owner)
	} else {
		e, err = s.Repo.Get(ctx, owner, id)
	}
	if err != nil {
		return nil, err
	}

	out, err := s.Analyzer.AnalyzeVitals(ctx, string(e.ID), e.Reading)
	if errors.Is(err, analysis.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if fresh, err := s.Repo.Get(ctx, owner, e.ID); err == nil {
		e = fresh
	} else {
		s.Logger.Warn().Err(err).Str("vital_id", string(e.ID)).Msg("reload after analysis")
	}
	return &Insights{Entry: e, Outcome: out}, nil
}

// Stats ringkasan vitals: total, latest, last 30 days
func (s *Service) Stats(ctx context.Context, owner string) (*domain.Stats, error) {
	total, err := s.Repo.Count(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count vitals: %w", err)
	}

	st := &domain.Stats{TotalRecords: total}
	if total == 0 {
		return st, nil
	}

	latest, err := s.Repo.Latest(ctx, owner)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("latest vitals: %w", err)
	default:
		st.Latest = latest
	}

	recent, err := s.Repo.Since(ctx, owner, s.Clock.Now().Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("recent vitals: %w", err)
	}
	st.Last30DaysCount = len(recent)
	st.Averages = s.Analyzer.ComputeAverages(recent)
	return st, nil
}
