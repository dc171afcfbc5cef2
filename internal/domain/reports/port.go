//go:generate go run go.uber.org/mock/mockgen -source=port.go -destination=../../mocks/mock_reports.go -package=mocks -mock_names=Repository=MockReportRepository,ArtifactStore=MockArtifactStore
package reports

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound = errors.New("report not found")
	ErrInvalid  = errors.New("invalid report")

	ErrTooLarge         = errors.New("report file too large")
	ErrUnsupportedMedia = errors.New("unsupported report media type")
)

// Filter untuk list
type Filter struct {
	Type     Type
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, owner string, id ID) (*Report, error)
	List(ctx context.Context, owner string, f Filter) ([]*Report, int64, error)
	Count(ctx context.Context, owner string) (int64, error)
	CountByType(ctx context.Context, owner string) ([]TypeCount, error)
	Recent(ctx context.Context, owner string, limit int) ([]Summary, error)
	// Update writes the editable metadata: title, type, report date and notes.
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, owner string, id ID) error
}

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, mediaType string) error
	// URL returns a location the inference backend can dereference.
	URL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
