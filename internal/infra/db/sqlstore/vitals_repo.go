package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	domain "github.com/bryanwahyu/healthmate/internal/domain/vitals"
)

type VitalsRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewVitalsRepository(db *sql.DB, dialect Dialect) *VitalsRepository {
	return &VitalsRepository{db: db, dialect: dialect}
}

const readingColumns = `record_date,
       bp_systolic, bp_diastolic, bp_unit,
       sugar_value, sugar_type, sugar_unit,
       weight_value, weight_unit, height_value, height_unit,
       heart_rate_value, heart_rate_unit, temperature_value, temperature_unit,
       oxygen_value, oxygen_unit, notes, symptoms`

const entryColumns = "id, owner_id, " + readingColumns + ", created_at, updated_at, " + analysisColumns

// Save inserts a new vitals entry.
func (r *VitalsRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO manual_vitals
(id, owner_id, record_date,
 bp_systolic, bp_diastolic, bp_unit,
 sugar_value, sugar_type, sugar_unit,
 weight_value, weight_unit, height_value, height_unit,
 heart_rate_value, heart_rate_unit, temperature_value, temperature_unit,
 oxygen_value, oxygen_unit, notes, symptoms,
 created_at, updated_at, analysis_status, is_analyzed, is_processed)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`

	cols, err := readingValues(e.Reading)
	if err != nil {
		return err
	}
	created := utc(e.CreatedAt)
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	status := e.Analysis.Phase
	if status == "" {
		status = insight.PhaseUnanalyzed
	}

	args := append([]any{string(e.ID), e.OwnerID}, cols...)
	args = append(args, created, utc(updated), string(status), e.Analysis.IsAnalyzed, e.Analysis.IsProcessed)
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), args...); err != nil {
		return fmt.Errorf("insert vitals: %w", err)
	}
	return nil
}

// Get by ID + Owner
func (r *VitalsRepository) Get(ctx context.Context, owner string, id domain.ID) (*domain.Entry, error) {
	q := "SELECT " + entryColumns + " FROM manual_vitals WHERE owner_id=? AND id=? LIMIT 1;"
	e, err := scanEntry(r.db.QueryRowContext(ctx, r.dialect.Rebind(q), owner, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// Latest entry by record date
func (r *VitalsRepository) Latest(ctx context.Context, owner string) (*domain.Entry, error) {
	q := "SELECT " + entryColumns + " FROM manual_vitals WHERE owner_id=? ORDER BY record_date DESC, id DESC LIMIT 1;"
	e, err := scanEntry(r.db.QueryRowContext(ctx, r.dialect.Rebind(q), owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// List with date filter + offset pagination, newest first
func (r *VitalsRepository) List(ctx context.Context, owner string, f domain.Filter) ([]*domain.Entry, int64, error) {
	conds := []string{"owner_id = ?"}
	args := []any{owner}
	if f.From != nil {
		conds = append(conds, "record_date >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "record_date <= ?")
		args = append(args, f.To.UTC())
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM manual_vitals"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting vitals: %w", err)
	}

	_, size, offset := normalizePage(f.Page, f.PageSize)
	q := "SELECT " + entryColumns + " FROM manual_vitals" + where + " ORDER BY record_date DESC, id DESC LIMIT ? OFFSET ?;"
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), append(args, size, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying vitals: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Entry, 0, size)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}
	return out, total, nil
}

// Count total entries per owner
func (r *VitalsRepository) Count(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM manual_vitals WHERE owner_id=?;"), owner).Scan(&n)
	return n, err
}

// Since returns the readings recorded at or after from, newest first.
func (r *VitalsRepository) Since(ctx context.Context, owner string, from time.Time) ([]domain.Reading, error) {
	q := "SELECT " + readingColumns + " FROM manual_vitals WHERE owner_id=? AND record_date >= ? ORDER BY record_date DESC, id DESC;"
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), owner, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Reading{}
	for rows.Next() {
		var rr readingRow
		if err := rows.Scan(rr.dest()...); err != nil {
			return nil, err
		}
		reading, err := rr.reading()
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	return out, rows.Err()
}

// Update replaces every reading column and resets the analysis columns in
// the same statement.
func (r *VitalsRepository) Update(ctx context.Context, e *domain.Entry) error {
	const q = `
UPDATE manual_vitals SET
 record_date=?,
 bp_systolic=?, bp_diastolic=?, bp_unit=?,
 sugar_value=?, sugar_type=?, sugar_unit=?,
 weight_value=?, weight_unit=?, height_value=?, height_unit=?,
 heart_rate_value=?, heart_rate_unit=?, temperature_value=?, temperature_unit=?,
 oxygen_value=?, oxygen_unit=?, notes=?, symptoms=?,
 updated_at=?, analysis_status=?, is_analyzed=?, is_processed=?,
 processing_error=NULL, ai_result=NULL, processing_started_at=NULL
WHERE owner_id=? AND id=?;`

	cols, err := readingValues(e.Reading)
	if err != nil {
		return err
	}
	args := append(cols, utc(e.UpdatedAt), string(insight.PhaseUnanalyzed), false, false, e.OwnerID, string(e.ID))
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("update vitals: %w", err)
	}
	return rowsOrNotFound(res, domain.ErrNotFound)
}

func (r *VitalsRepository) Delete(ctx context.Context, owner string, id domain.ID) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM manual_vitals WHERE owner_id=? AND id=?;"), owner, string(id))
	if err != nil {
		return fmt.Errorf("delete vitals: %w", err)
	}
	return rowsOrNotFound(res, domain.ErrNotFound)
}

func readingValues(rd domain.Reading) ([]any, error) {
	var (
		sys, dia, sugar, weight, height, pulse, temp, oxy    sql.NullFloat64
		bpUnit, sugarType, sugarUnit, weightUnit, heightUnit sql.NullString
		pulseUnit, tempUnit, oxyUnit, symptoms               sql.NullString
	)
	text := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

	if bp := rd.BloodPressure; bp != nil {
		sys, dia, bpUnit = nullFloat(bp.Systolic), nullFloat(bp.Diastolic), text(bp.Unit)
	}
	if bs := rd.BloodSugar; bs != nil {
		sugar, sugarType, sugarUnit = nullFloat(bs.Value), text(string(bs.Type)), text(bs.Unit)
	}
	if w := rd.Weight; w != nil {
		weight, weightUnit = nullFloat(w.Value), text(w.Unit)
	}
	if h := rd.Height; h != nil {
		height, heightUnit = nullFloat(h.Value), text(h.Unit)
	}
	if hr := rd.HeartRate; hr != nil {
		pulse, pulseUnit = nullFloat(hr.Value), text(hr.Unit)
	}
	if t := rd.Temperature; t != nil {
		temp, tempUnit = nullFloat(t.Value), text(t.Unit)
	}
	if o := rd.OxygenLevel; o != nil {
		oxy, oxyUnit = nullFloat(o.Value), text(o.Unit)
	}
	if len(rd.Symptoms) > 0 {
		b, err := json.Marshal(rd.Symptoms)
		if err != nil {
			return nil, fmt.Errorf("encode symptoms: %w", err)
		}
		symptoms = text(string(b))
	}

	return []any{
		utc(rd.RecordDate),
		sys, dia, bpUnit,
		sugar, sugarType, sugarUnit,
		weight, weightUnit, height, heightUnit,
		pulse, pulseUnit, temp, tempUnit,
		oxy, oxyUnit, rd.Notes, symptoms,
	}, nil
}

// readingRow receives readingColumns.
type readingRow struct {
	recordDate                                        time.Time
	sys, dia, sugar, weight, height, pulse, temp, oxy sql.NullFloat64
	bpUnit, sugarType, sugarUnit, weightUnit          sql.NullString
	heightUnit, pulseUnit, tempUnit, oxyUnit          sql.NullString
	notes, symptoms                                   sql.NullString
}

func (rr *readingRow) dest() []any {
	return []any{
		&rr.recordDate,
		&rr.sys, &rr.dia, &rr.bpUnit,
		&rr.sugar, &rr.sugarType, &rr.sugarUnit,
		&rr.weight, &rr.weightUnit, &rr.height, &rr.heightUnit,
		&rr.pulse, &rr.pulseUnit, &rr.temp, &rr.tempUnit,
		&rr.oxy, &rr.oxyUnit, &rr.notes, &rr.symptoms,
	}
}

func (rr *readingRow) reading() (domain.Reading, error) {
	rd := domain.Reading{RecordDate: rr.recordDate.UTC(), Notes: rr.notes.String}
	if rr.sys.Valid || rr.dia.Valid || rr.bpUnit.Valid {
		rd.BloodPressure = &domain.BloodPressure{Systolic: floatPtr(rr.sys), Diastolic: floatPtr(rr.dia), Unit: rr.bpUnit.String}
	}
	if rr.sugar.Valid || rr.sugarUnit.Valid {
		rd.BloodSugar = &domain.BloodSugar{Value: floatPtr(rr.sugar), Type: domain.SugarType(rr.sugarType.String), Unit: rr.sugarUnit.String}
	}
	if rr.weight.Valid || rr.weightUnit.Valid {
		rd.Weight = &domain.Weight{Value: floatPtr(rr.weight), Unit: rr.weightUnit.String}
	}
	if rr.height.Valid || rr.heightUnit.Valid {
		rd.Height = &domain.Height{Value: floatPtr(rr.height), Unit: rr.heightUnit.String}
	}
	if rr.pulse.Valid || rr.pulseUnit.Valid {
		rd.HeartRate = &domain.HeartRate{Value: floatPtr(rr.pulse), Unit: rr.pulseUnit.String}
	}
	if rr.temp.Valid || rr.tempUnit.Valid {
		rd.Temperature = &domain.Temperature{Value: floatPtr(rr.temp), Unit: rr.tempUnit.String}
	}
	if rr.oxy.Valid || rr.oxyUnit.Valid {
		rd.OxygenLevel = &domain.Oxygen{Value: floatPtr(rr.oxy), Unit: rr.oxyUnit.String}
	}
	if rr.symptoms.Valid && rr.symptoms.String != "" {
		if err := json.Unmarshal([]byte(rr.symptoms.String), &rd.Symptoms); err != nil {
			return domain.Reading{}, fmt.Errorf("decode symptoms: %w", err)
		}
	}
	return rd, nil
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e  domain.Entry
		rr readingRow
		an analysisRow
	)
	dest := append([]any{&e.ID, &e.OwnerID}, rr.dest()...)
	dest = append(dest, &e.CreatedAt, &e.UpdatedAt)
	if err := row.Scan(append(dest, an.dest()...)...); err != nil {
		return nil, err
	}

	reading, err := rr.reading()
	if err != nil {
		return nil, err
	}
	st, err := an.state()
	if err != nil {
		return nil, err
	}
	e.Reading = reading
	e.Analysis = st
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
