package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/healthmate/internal/application"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	domain "github.com/bryanwahyu/healthmate/internal/domain/reports"
)

// DefaultMaxSize is the upload limit when none is configured.
const DefaultMaxSize = 10 << 20

// enough for mimetype to recognise every format it knows
const sniffLen = 3072

// Analyzer is the slice of the analysis pipeline the reports use-cases need.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, recordID string, artifact analysis.ArtifactRef, category string) error
	Reanalyze(ctx context.Context, kind analysis.Kind, id string, wait bool) (analysis.Outcome, error)
}

// Service implements use-cases untuk Report
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo      domain.Repository
	Artifacts domain.ArtifactStore
	Analyzer  Analyzer
	Clock     application.Clock
	MaxSize   int64
	Logger    zerolog.Logger

	validate *validator.Validate
	newID    func() string
}

func NewService(repo domain.Repository, artifacts domain.ArtifactStore, analyzer Analyzer, clock application.Clock, maxSize int64, logger zerolog.Logger) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{
		Repo:      repo,
		Artifacts: artifacts,
		Analyzer:  analyzer,
		Clock:     clock,
		MaxSize:   maxSize,
		Logger:    logger,
		validate:  validator.New(),
		newID:     uuid.NewString,
	}
}

//
// ==== USE CASES ====
//

// Command untuk upload report
type UploadCommand struct {
	OwnerID    string
	Title      string
	Type       domain.Type
	ReportDate time.Time
	Notes      string
	// Size is the declared size in bytes, -1 when unknown.
	Size int64
	Body io.Reader
}

// Upload stores the file, creates the report row and schedules its
// analysis. It returns as soon as the row exists.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Report, error) {
	if cmd.Size > s.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit is %d)", domain.ErrTooLarge, cmd.Size, s.MaxSize)
	}
	if cmd.Body == nil || cmd.Size == 0 {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalid)
	}

	now := s.Clock.Now()
	id := s.newID()
	rep := &domain.Report{
		ID:         domain.ID(id),
		OwnerID:    cmd.OwnerID,
		Title:      strings.TrimSpace(cmd.Title),
		Type:       cmd.Type,
		ReportDate: cmd.ReportDate,
		Notes:      strings.TrimSpace(cmd.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if rep.Type == "" {
		rep.Type = domain.TypeOther
	}
	if err := s.validate.Struct(rep); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, err)
	}

	// sniff dari content, bukan dari nama file / header
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(cmd.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalid)
	}
	mt := mimetype.Detect(head)
	fileType, ok := fileTypeOf(mt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, mt.String())
	}

	key := fmt.Sprintf("%s/reports/%s%s", cmd.OwnerID, id, mt.Extension())
	mediaType := strings.SplitN(mt.String(), ";", 2)[0]
	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(cmd.Body, s.MaxSize-int64(n)))
	size := cmd.Size
	if size < 0 {
		size = -1
	}
	if err := s.Artifacts.Put(ctx, key, body, size, mediaType); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	url, err := s.Artifacts.URL(ctx, key)
	if err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("artifact url")
	}
	rep.File = domain.File{Key: key, URL: url, MediaType: mediaType, FileType: fileType, Size: max(cmd.Size, int64(n))}
	rep.Analysis = insight.Unanalyzed()

	if err := s.Repo.Save(ctx, rep); err != nil {
		// jangan tinggalkan artefak yatim
		if rmErr := s.Artifacts.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.Logger.Warn().Err(rmErr).Str("key", key).Msg("remove orphaned artifact")
		}
		return nil, fmt.Errorf("save report: %w", err)
	}

	artifact := analysis.ArtifactRef{Key: key, URL: url, MediaType: mediaType}
	if err := s.Analyzer.AnalyzeDocument(ctx, id, artifact, string(rep.Type)); err != nil {
		// the report exists; analysis can be requested again later
		s.Logger.Warn().Err(err).Str("report_id", id).Msg("schedule analysis")
	}
	return rep, nil
}

func fileTypeOf(mt *mimetype.MIME) (domain.FileType, bool) {
	switch {
	case mt.Is("application/pdf"):
		return domain.FilePDF, true
	case strings.HasPrefix(mt.String(), "image/"):
		return domain.FileImage, true
	default:
		return "", false
	}
}

// List reports with filter + pagination
func (s *Service) List(ctx context.Context, owner string, f domain.Filter) (*domain.PaginatedResult, error) {
	if f.Type != "" {
		if err := s.validate.Var(string(f.Type), "oneof=blood-test urine-test x-ray ultrasound ct-scan mri ecg prescription doctor-notes other"); err != nil {
			return nil, fmt.Errorf("%w: unknown report type %q", domain.ErrInvalid, f.Type)
		}
	}
	page, size := pageOf(f.Page, f.PageSize)
	f.Page, f.PageSize = page, size

	items, total, err := s.Repo.List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	for _, rep := range items {
		s.refreshURL(ctx, rep)
	}
	return &domain.PaginatedResult{
		Data:       items,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

// Get report milik owner
func (s *Service) Get(ctx context.Context, owner string, id domain.ID) (*domain.Report, error) {
	rep, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.refreshURL(ctx, rep)
	return rep, nil
}

// ReanalyzeResult is what a re-analysis request returns. Outcome is nil
// when the run was only scheduled.
type ReanalyzeResult struct {
	Report  *domain.Report    `json:"report"`
	Outcome *analysis.Outcome `json:"-"`
}

// Reanalyze runs the analysis of an existing report again. With wait the
// call blocks and the reloaded report is returned.
func (s *Service) Reanalyze(ctx context.Context, owner string, id domain.ID, wait bool) (*ReanalyzeResult, error) {
	if _, err := s.Repo.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	out, err := s.Analyzer.Reanalyze(ctx, analysis.KindDocument, string(id), wait)
	if errors.Is(err, analysis.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rep, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	res := &ReanalyzeResult{Report: rep}
	if wait {
		res.Outcome = &out
	}
	return res, nil
}

// UpdateCommand carries the editable report fields; nil leaves a field as is.
type UpdateCommand struct {
	Title      *string
	Type       *domain.Type
	ReportDate *time.Time
	Notes      *string
}

// Update edits report metadata. The analysis is kept since the file it
// describes does not change.
func (s *Service) Update(ctx context.Context, owner string, id domain.ID, cmd UpdateCommand) (*domain.Report, error) {
	rep, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if cmd.Title != nil {
		rep.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Type != nil {
		rep.Type = *cmd.Type
	}
	if cmd.ReportDate != nil {
		rep.ReportDate = *cmd.ReportDate
	}
	if cmd.Notes != nil {
		rep.Notes = strings.TrimSpace(*cmd.Notes)
	}
	if err := s.validate.Struct(rep); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, err)
	}

	rep.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Update(ctx, rep); err != nil {
		return nil, err
	}
	s.refreshURL(ctx, rep)
	return rep, nil
}

// Delete removes the report, then its stored file. A file that cannot be
// removed is only logged; the report is already gone by then.
func (s *Service) Delete(ctx context.Context, owner string, id domain.ID) error {
	rep, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	if rep.File.Key == "" {
		return nil
	}
	if err := s.Artifacts.Remove(context.WithoutCancel(ctx), rep.File.Key); err != nil {
		s.Logger.Warn().Err(err).Str("report_id", string(id)).Str("key", rep.File.Key).Msg("remove report artifact")
	}
	return nil
}

const recentLimit = 5

// Stats ringkasan report per owner
func (s *Service) Stats(ctx context.Context, owner string) (*domain.Stats, error) {
	total, err := s.Repo.Count(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	byType, err := s.Repo.CountByType(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count reports by type: %w", err)
	}
	recent, err := s.Repo.Recent(ctx, owner, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	return &domain.Stats{TotalReports: total, ReportsByType: byType, Recent: recent}, nil
}

// refreshURL replaces the stored URL with a fresh one; presigned URLs expire.
func (s *Service) refreshURL(ctx context.Context, rep *domain.Report) {
	if rep.File.Key == "" {
		return
	}
	url, err := s.Artifacts.URL(ctx, rep.File.Key)
	if err != nil {
		s.Logger.Warn().Err(err).Str("report_id", string(rep.ID)).Msg("refresh artifact url")
		return
	}
	rep.File.URL = url
}

func pageOf(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
