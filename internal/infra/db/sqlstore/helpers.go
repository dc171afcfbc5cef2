package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func normalizePage(page, size int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size, (page - 1) * size
}

func encodeResult(r *insight.Result) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode ai result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

const analysisColumns = "analysis_status, is_analyzed, is_processed, processing_error, ai_result, processing_started_at"

// analysisRow receives the analysis columns of either table.
type analysisRow struct {
	status    string
	analyzed  bool
	processed bool
	procErr   sql.NullString
	result    sql.NullString
	startedAt sql.NullTime
}

func (a *analysisRow) dest() []any {
	return []any{&a.status, &a.analyzed, &a.processed, &a.procErr, &a.result, &a.startedAt}
}

func (a *analysisRow) state() (insight.State, error) {
	st := insight.State{
		Phase:       insight.Phase(a.status),
		IsAnalyzed:  a.analyzed,
		IsProcessed: a.processed,
	}
	if a.procErr.Valid {
		s := a.procErr.String
		st.ProcessingError = &s
	}
	if a.result.Valid && a.result.String != "" {
		var r insight.Result
		if err := json.Unmarshal([]byte(a.result.String), &r); err != nil {
			return insight.State{}, fmt.Errorf("decode ai result: %w", err)
		}
		st.Result = &r
	}
	if a.startedAt.Valid {
		t := a.startedAt.Time.UTC()
		st.ProcessingStartedAt = &t
	}
	return st, nil
}

// rowsOrNotFound maps "no row touched" to the caller's not-found sentinel.
func rowsOrNotFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
