package insight

import "time"

// Phase is the analysis lifecycle of a record.
type Phase string

const (
	PhaseUnanalyzed Phase = "unanalyzed"
	PhaseProcessing Phase = "processing"
	PhaseAnalyzed   Phase = "analyzed"
	PhaseFailed     Phase = "failed"
)

// State is the analysis state stored next to a report or vitals entry.
//
// After every completed attempt exactly one of these holds:
//   - IsAnalyzed && Result != nil && ProcessingError == nil
//   - !IsAnalyzed && ProcessingError != nil (Result may still hold an older success)
type State struct {
	Phase               Phase      `json:"phase"`
	IsAnalyzed          bool       `json:"is_analyzed"`
	IsProcessed         bool       `json:"is_processed"`
	ProcessingError     *string    `json:"processing_error"`
	Result              *Result    `json:"ai_result"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
}

// Unanalyzed is the state of a freshly created record.
func Unanalyzed() State {
	return State{Phase: PhaseUnanalyzed}
}

// Consistent reports whether s satisfies the post-attempt invariant.
// Records that were never analysed, or are mid-flight, are consistent too.
func (s State) Consistent() bool {
	switch s.Phase {
	case PhaseAnalyzed:
		return s.IsAnalyzed && s.Result != nil && s.ProcessingError == nil
	case PhaseFailed:
		return !s.IsAnalyzed && s.ProcessingError != nil
	default:
		return !s.IsAnalyzed || s.Result != nil
	}
}
