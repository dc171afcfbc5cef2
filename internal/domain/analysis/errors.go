package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// ErrRecordNotFound is the only hard error the pipeline returns for a
// missing record. No state is touched when it is returned.
var ErrRecordNotFound = errors.New("analysis record not found")

// Backend error classes. Adapters wrap these so Classify can tell them apart.
var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded      = errors.New("ai quota exceeded")
	ErrBackendTimeout     = errors.New("ai backend timeout")
	ErrBackendAuth        = errors.New("ai backend rejected credentials")
	ErrBackendStatus      = errors.New("ai backend returned non-success status")
	ErrBackendUnavailable = errors.New("ai backend unavailable")
)

// FailureClass names why an analysis attempt failed. It is the prefix of
// the processing error stored on the record.
type FailureClass string

const (
	FailureTimeout     FailureClass = "backend timeout"
	FailureQuota       FailureClass = "backend quota exceeded"
	FailureAuth        FailureClass = "backend authorization failed"
	FailureStatus      FailureClass = "backend returned non-success status"
	FailureUnavailable FailureClass = "backend unavailable"
)

// Classify maps a backend error to its failure class. Anything it does not
// recognise is FailureUnavailable.
func Classify(err error) FailureClass {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrBackendTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	case errors.Is(err, ErrQuotaExceeded):
		return FailureQuota
	case errors.Is(err, ErrBackendAuth):
		return FailureAuth
	case errors.Is(err, ErrBackendStatus):
		return FailureStatus
	default:
		return FailureUnavailable
	}
}

const maxReasonLen = 500

// Reason formats the processing error stored for a failed attempt.
func Reason(class FailureClass, err error) string {
	if err == nil {
		return string(class)
	}
	s := fmt.Sprintf("%s: %v", class, err)
	if utf8.RuneCountInString(s) > maxReasonLen {
		s = string([]rune(s)[:maxReasonLen])
	}
	return s
}
