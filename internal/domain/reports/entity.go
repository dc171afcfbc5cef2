package reports

import (
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

// ID tipe untuk Report
type ID string

// Type enum
type Type string

const (
	TypeBloodTest    Type = "blood-test"
	TypeUrineTest    Type = "urine-test"
	TypeXRay         Type = "x-ray"
	TypeUltrasound   Type = "ultrasound"
	TypeCTScan       Type = "ct-scan"
	TypeMRI          Type = "mri"
	TypeECG          Type = "ecg"
	TypePrescription Type = "prescription"
	TypeDoctorNotes  Type = "doctor-notes"
	TypeOther        Type = "other"
)

// Types lists every accepted report type.
var Types = []Type{
	TypeBloodTest, TypeUrineTest, TypeXRay, TypeUltrasound, TypeCTScan,
	TypeMRI, TypeECG, TypePrescription, TypeDoctorNotes, TypeOther,
}

// FileType enum
type FileType string

const (
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
)

// File is the stored artifact behind a report.
type File struct {
	Key       string   `json:"key"`
	URL       string   `json:"url,omitempty"`
	MediaType string   `json:"media_type"`
	FileType  FileType `json:"file_type"`
	Size      int64    `json:"size"`
}

// Aggregate Root: Report
type Report struct {
	ID         ID            `json:"id"`
	OwnerID    string        `json:"owner_id"`
	Title      string        `json:"title" validate:"required,max=200"`
	Type       Type          `json:"report_type" validate:"required,oneof=blood-test urine-test x-ray ultrasound ct-scan mri ecg prescription doctor-notes other"`
	ReportDate time.Time     `json:"report_date" validate:"required"`
	File       File          `json:"file"`
	Notes      string        `json:"notes,omitempty" validate:"max=500"`
	Analysis   insight.State `json:"analysis"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Summary is the short form used in stats.
type Summary struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Type        Type      `json:"report_type"`
	ReportDate  time.Time `json:"report_date"`
	IsProcessed bool      `json:"is_processed"`
}

// TypeCount value object
type TypeCount struct {
	Type  Type  `json:"report_type"`
	Count int64 `json:"count"`
}

// Stats ringkasan report per owner
type Stats struct {
	TotalReports  int64       `json:"total_reports"`
	ReportsByType []TypeCount `json:"reports_by_type"`
	Recent        []Summary   `json:"recent_reports"`
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Report `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int64     `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}
