package analysis

import (
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
)

// Kind enum
type Kind string

const (
	KindDocument Kind = "document_report"
	KindVitals   Kind = "vitals_reading"
)

// ArtifactRef points at a stored artifact. It never carries the bytes.
type ArtifactRef struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// DocumentPayload is the input of a document analysis.
type DocumentPayload struct {
	Artifact ArtifactRef
	Category string
}

// Request is one analysis to perform. Build it with NewDocumentRequest or
// NewVitalsRequest; it cannot be changed afterwards.
type Request struct {
	recordID string
	kind     Kind
	document *DocumentPayload
	vitals   *vitals.Reading
}

func NewDocumentRequest(recordID string, artifact ArtifactRef, category string) Request {
	return Request{
		recordID: recordID,
		kind:     KindDocument,
		document: &DocumentPayload{Artifact: artifact, Category: category},
	}
}

func NewVitalsRequest(recordID string, reading vitals.Reading) Request {
	r := reading.Clone()
	return Request{recordID: recordID, kind: KindVitals, vitals: &r}
}

func (r Request) RecordID() string { return r.recordID }
func (r Request) Kind() Kind       { return r.kind }

// Document returns a copy of the document payload.
func (r Request) Document() (DocumentPayload, bool) {
	if r.document == nil {
		return DocumentPayload{}, false
	}
	return *r.document, true
}

// Vitals returns a copy of the vitals payload.
func (r Request) Vitals() (vitals.Reading, bool) {
	if r.vitals == nil {
		return vitals.Reading{}, false
	}
	return r.vitals.Clone(), true
}

// Artifact is the attachment handed to the backend, nil for vitals.
func (r Request) Artifact() *ArtifactRef {
	if r.document == nil {
		return nil
	}
	a := r.document.Artifact
	return &a
}

// Instructions is the kind-specific prompt pair sent to the backend.
type Instructions struct {
	System string
	User   string
}

// Outcome of one attempt. Exactly one of Result and FailureReason is set.
type Outcome struct {
	Result        *insight.Result `json:"result,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	// Degraded marks a success built from unparseable model text.
	Degraded bool `json:"degraded,omitempty"`
}

func Success(r insight.Result) Outcome { return Outcome{Result: &r} }

func DegradedSuccess(r insight.Result) Outcome { return Outcome{Result: &r, Degraded: true} }

func Failure(reason string) Outcome { return Outcome{FailureReason: reason} }

func (o Outcome) Succeeded() bool { return o.Result != nil }

// StateUpdate is written to a record in one atomic statement.
// A nil Result leaves the stored result untouched.
type StateUpdate struct {
	Phase           insight.Phase
	IsAnalyzed      bool
	IsProcessed     bool
	ProcessingError *string
	Result          *insight.Result
}

// UpdateFor converts an outcome into the state written to the record.
func UpdateFor(o Outcome) StateUpdate {
	if o.Succeeded() {
		return StateUpdate{Phase: insight.PhaseAnalyzed, IsAnalyzed: true, IsProcessed: true, Result: o.Result}
	}
	reason := o.FailureReason
	return StateUpdate{Phase: insight.PhaseFailed, ProcessingError: &reason}
}

// Apply returns s with the update applied.
func (u StateUpdate) Apply(s insight.State) insight.State {
	s.Phase = u.Phase
	s.IsAnalyzed = u.IsAnalyzed
	s.IsProcessed = u.IsProcessed
	s.ProcessingError = u.ProcessingError
	if u.Result != nil {
		s.Result = u.Result
	}
	s.ProcessingStartedAt = nil
	return s
}

// Record is what the store hands back to the pipeline: enough to rebuild
// a request and check the current state.
type Record struct {
	ID       string
	Kind     Kind
	OwnerID  string
	State    insight.State
	Document *DocumentPayload
	Vitals   *vitals.Reading
}

// RecordRef identifies a record across both kinds.
type RecordRef struct {
	Kind Kind
	ID   string
	// Since is when the record entered processing, or its creation time
	// when it never did.
	Since time.Time
}
