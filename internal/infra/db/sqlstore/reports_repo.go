package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	domain "github.com/bryanwahyu/healthmate/internal/domain/reports"
)

type ReportRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewReportRepository(db *sql.DB, dialect Dialect) *ReportRepository {
	return &ReportRepository{db: db, dialect: dialect}
}

const reportColumns = `id, owner_id, title, report_type, report_date,
       file_key, file_url, media_type, file_type, file_size, notes,
       created_at, updated_at, ` + analysisColumns

// Save inserts a new report. The analysis columns start at their zero state.
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO medical_reports
(id, owner_id, title, report_type, report_date,
 file_key, file_url, media_type, file_type, file_size, notes,
 created_at, updated_at, analysis_status, is_analyzed, is_processed)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`

	created := utc(rep.CreatedAt)
	updated := rep.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	status := rep.Analysis.Phase
	if status == "" {
		status = insight.PhaseUnanalyzed
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(q),
		string(rep.ID), rep.OwnerID, rep.Title, string(rep.Type), utc(rep.ReportDate),
		rep.File.Key, rep.File.URL, rep.File.MediaType, string(rep.File.FileType), rep.File.Size, rep.Notes,
		created, utc(updated), string(status), rep.Analysis.IsAnalyzed, rep.Analysis.IsProcessed,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get by ID + Owner
func (r *ReportRepository) Get(ctx context.Context, owner string, id domain.ID) (*domain.Report, error) {
	q := "SELECT " + reportColumns + " FROM medical_reports WHERE owner_id=? AND id=? LIMIT 1;"
	rep, err := scanReport(r.db.QueryRowContext(ctx, r.dialect.Rebind(q), owner, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

// List with filter + offset pagination, newest report date first
func (r *ReportRepository) List(ctx context.Context, owner string, f domain.Filter) ([]*domain.Report, int64, error) {
	where, args := r.where(owner, f)

	var total int64
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM medical_reports"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	_, size, offset := normalizePage(f.Page, f.PageSize)
	q := "SELECT " + reportColumns + " FROM medical_reports" + where + " ORDER BY report_date DESC, id DESC LIMIT ? OFFSET ?;"
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), append(args, size, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Report, 0, size)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}
	return out, total, nil
}

func (r *ReportRepository) where(owner string, f domain.Filter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{owner}
	if f.Type != "" {
		conds = append(conds, "report_type = ?")
		args = append(args, string(f.Type))
	}
	if f.From != nil {
		conds = append(conds, "report_date >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "report_date <= ?")
		args = append(args, f.To.UTC())
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Count total reports per owner
func (r *ReportRepository) Count(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM medical_reports WHERE owner_id=?;"), owner).Scan(&n)
	return n, err
}

// CountByType groups reports per type, biggest group first
func (r *ReportRepository) CountByType(ctx context.Context, owner string) ([]domain.TypeCount, error) {
	const q = `
SELECT report_type, COUNT(*) AS n
FROM medical_reports
WHERE owner_id=?
GROUP BY report_type
ORDER BY n DESC, report_type ASC;`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TypeCount{}
	for rows.Next() {
		var tc domain.TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Recent returns the latest reports by report date in short form
func (r *ReportRepository) Recent(ctx context.Context, owner string, limit int) ([]domain.Summary, error) {
	if limit <= 0 {
		limit = 5
	}
	const q = `
SELECT id, title, report_type, report_date, is_processed
FROM medical_reports
WHERE owner_id=?
ORDER BY report_date DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Summary{}
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.Type, &s.ReportDate, &s.IsProcessed); err != nil {
			return nil, err
		}
		s.ReportDate = s.ReportDate.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes the editable metadata. File and analysis columns stay.
func (r *ReportRepository) Update(ctx context.Context, rep *domain.Report) error {
	const q = `
UPDATE medical_reports
SET title=?, report_type=?, report_date=?, notes=?, updated_at=?
WHERE owner_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(q),
		rep.Title, string(rep.Type), utc(rep.ReportDate), rep.Notes, utc(rep.UpdatedAt),
		rep.OwnerID, string(rep.ID),
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return rowsOrNotFound(res, domain.ErrNotFound)
}

// Delete hapus row saja, artefak diurus service
func (r *ReportRepository) Delete(ctx context.Context, owner string, id domain.ID) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM medical_reports WHERE owner_id=? AND id=?;"), owner, string(id))
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return rowsOrNotFound(res, domain.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		rep   domain.Report
		url   sql.NullString
		notes sql.NullString
		an    analysisRow
	)
	dest := []any{
		&rep.ID, &rep.OwnerID, &rep.Title, &rep.Type, &rep.ReportDate,
		&rep.File.Key, &url, &rep.File.MediaType, &rep.File.FileType, &rep.File.Size, &notes,
		&rep.CreatedAt, &rep.UpdatedAt,
	}
	if err := row.Scan(append(dest, an.dest()...)...); err != nil {
		return nil, err
	}
	rep.File.URL = url.String
	rep.Notes = notes.String
	rep.ReportDate = rep.ReportDate.UTC()
	rep.CreatedAt = rep.CreatedAt.UTC()
	rep.UpdatedAt = rep.UpdatedAt.UTC()

	st, err := an.state()
	if err != nil {
		return nil, err
	}
	rep.Analysis = st
	return &rep, nil
}
