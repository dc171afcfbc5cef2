//go:generate go run go.uber.org/mock/mockgen -source=port.go -destination=../../mocks/mock_vitals.go -package=mocks -mock_names=Repository=MockVitalsRepository
package vitals

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("vitals entry not found")
	ErrInvalid  = errors.New("invalid vitals reading")
)

// Filter untuk list
type Filter struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, owner string, id ID) (*Entry, error)
	Latest(ctx context.Context, owner string) (*Entry, error)
	List(ctx context.Context, owner string, f Filter) ([]*Entry, int64, error)
	Count(ctx context.Context, owner string) (int64, error)
	// Since returns readings recorded at or after from, newest first.
	Since(ctx context.Context, owner string, from time.Time) ([]Reading, error)
	// Update replaces the reading and resets the analysis columns; a stored
	// result describes the old values.
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, owner string, id ID) error
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Entry `json:"data"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}

// Stats ringkasan vitals per owner
type Stats struct {
	TotalRecords    int64     `json:"total_records"`
	Latest          *Entry    `json:"latest"`
	Last30DaysCount int       `json:"last_30_days_count"`
	Averages        *Averages `json:"averages"`
}
