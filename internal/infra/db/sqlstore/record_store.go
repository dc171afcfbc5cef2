package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

// RecordStore implements analysis.RecordStore on top of both record tables.
type RecordStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewRecordStore(db *sql.DB, dialect Dialect) *RecordStore {
	return &RecordStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

func table(kind analysis.Kind) (string, error) {
	switch kind {
	case analysis.KindDocument:
		return "medical_reports", nil
	case analysis.KindVitals:
		return "manual_vitals", nil
	default:
		return "", fmt.Errorf("unknown analysis kind %q", kind)
	}
}

func (s *RecordStore) Load(ctx context.Context, kind analysis.Kind, id string) (*analysis.Record, error) {
	switch kind {
	case analysis.KindDocument:
		return s.loadDocument(ctx, id)
	case analysis.KindVitals:
		return s.loadVitals(ctx, id)
	default:
		return nil, fmt.Errorf("unknown analysis kind %q", kind)
	}
}

func (s *RecordStore) loadDocument(ctx context.Context, id string) (*analysis.Record, error) {
	q := "SELECT id, owner_id, report_type, file_key, file_url, media_type, " + analysisColumns +
		" FROM medical_reports WHERE id=? LIMIT 1;"

	var (
		rec analysis.Record
		doc analysis.DocumentPayload
		url sql.NullString
		an  analysisRow
	)
	dest := []any{&rec.ID, &rec.OwnerID, &doc.Category, &doc.Artifact.Key, &url, &doc.Artifact.MediaType}
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(q), id).Scan(append(dest, an.dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Artifact.URL = url.String

	if rec.State, err = an.state(); err != nil {
		return nil, err
	}
	rec.Kind = analysis.KindDocument
	rec.Document = &doc
	return &rec, nil
}

func (s *RecordStore) loadVitals(ctx context.Context, id string) (*analysis.Record, error) {
	q := "SELECT id, owner_id, " + readingColumns + ", " + analysisColumns + " FROM manual_vitals WHERE id=? LIMIT 1;"

	var (
		rec analysis.Record
		rr  readingRow
		an  analysisRow
	)
	dest := append([]any{&rec.ID, &rec.OwnerID}, rr.dest()...)
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(q), id).Scan(append(dest, an.dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	reading, err := rr.reading()
	if err != nil {
		return nil, err
	}
	if rec.State, err = an.state(); err != nil {
		return nil, err
	}
	rec.Kind = analysis.KindVitals
	rec.Vitals = &reading
	return &rec, nil
}

// MarkProcessing hanya update kolom lifecycle
func (s *RecordStore) MarkProcessing(ctx context.Context, kind analysis.Kind, id string, at time.Time) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	q := "UPDATE " + tbl + " SET analysis_status=?, processing_started_at=?, updated_at=? WHERE id=?;"
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(q), string(insight.PhaseProcessing), at.UTC(), s.now(), id)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return affected(res)
}

// ApplyOutcome writes the four analysis fields plus lifecycle in one UPDATE.
// A nil result keeps whatever ai_result already holds.
func (s *RecordStore) ApplyOutcome(ctx context.Context, kind analysis.Kind, id string, u analysis.StateUpdate) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	result, err := encodeResult(u.Result)
	if err != nil {
		return err
	}
	q := "UPDATE " + tbl + ` SET
 analysis_status=?, is_analyzed=?, is_processed=?, processing_error=?,
 ai_result=COALESCE(?, ai_result), processing_started_at=NULL, updated_at=?
WHERE id=?;`
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(q),
		string(u.Phase), u.IsAnalyzed, u.IsProcessed, nullString(u.ProcessingError),
		result, s.now(), id,
	)
	if err != nil {
		return fmt.Errorf("apply outcome: %w", err)
	}
	return affected(res)
}

// ListStale returns records of both kinds still processing since before
// the cutoff, oldest first. Reports uploaded before the cutoff that never
// left unanalyzed are included too: their background run was lost (crash
// or shutdown) before it could mark them. Vitals are analysed on demand,
// so an unanalyzed entry is not stale.
func (s *RecordStore) ListStale(ctx context.Context, before time.Time, limit int) ([]analysis.RecordRef, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := before.UTC()
	queries := []struct {
		kind analysis.Kind
		q    string
		args []any
	}{
		{
			kind: analysis.KindDocument,
			q: `SELECT id, processing_started_at, created_at FROM medical_reports
WHERE (analysis_status=? AND processing_started_at < ?) OR (analysis_status=? AND created_at < ?)
ORDER BY created_at ASC LIMIT ?;`,
			args: []any{string(insight.PhaseProcessing), cutoff, string(insight.PhaseUnanalyzed), cutoff, limit},
		},
		{
			kind: analysis.KindVitals,
			q: `SELECT id, processing_started_at, created_at FROM manual_vitals
WHERE analysis_status=? AND processing_started_at < ?
ORDER BY processing_started_at ASC LIMIT ?;`,
			args: []any{string(insight.PhaseProcessing), cutoff, limit},
		},
	}

	var out []analysis.RecordRef
	for _, sq := range queries {
		refs, err := s.staleRefs(ctx, sq.kind, sq.q, sq.args)
		if err != nil {
			return nil, err
		}
		out = append(out, refs...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RecordStore) staleRefs(ctx context.Context, kind analysis.Kind, q string, args []any) ([]analysis.RecordRef, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list stale %s: %w", kind, err)
	}
	defer rows.Close()

	var out []analysis.RecordRef
	for rows.Next() {
		var (
			ref     = analysis.RecordRef{Kind: kind}
			started sql.NullTime
			created time.Time
		)
		if err := rows.Scan(&ref.ID, &started, &created); err != nil {
			return nil, err
		}
		ref.Since = created.UTC()
		if started.Valid {
			ref.Since = started.Time.UTC()
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func affected(res sql.Result) error {
	return rowsOrNotFound(res, analysis.ErrRecordNotFound)
}
