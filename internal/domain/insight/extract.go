package insight

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ExtractionReason classifies why raw model output held no usable object.
type ExtractionReason string

const (
	NoStructureFound ExtractionReason = "no_structure_found"
	ParseError       ExtractionReason = "parse_error"
)

const rawSampleLen = 500

// ExtractionError is returned by Extract. RawTextSample is only set for
// ParseError and holds the first 500 characters of the raw text.
type ExtractionError struct {
	Reason        ExtractionReason
	RawTextSample string
	Err           error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extract: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ```json, ```JSON, ``` etc. The optional tag is glued to the fence.
var fencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*[ \t]*\r?\n?")

// StripFences removes Markdown code fence delimiters, keeping their content.
func StripFences(raw string) string {
	return fencePattern.ReplaceAllString(raw, "")
}

// Extract recovers the JSON object embedded in raw model output.
// It never inspects field semantics.
func Extract(raw string) (map[string]any, error) {
	text := StripFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end < start {
		return nil, &ExtractionError{Reason: NoStructureFound}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, &ExtractionError{Reason: ParseError, RawTextSample: truncateRunes(raw, rawSampleLen), Err: err}
	}
	return payload, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
