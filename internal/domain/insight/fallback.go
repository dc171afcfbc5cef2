package insight

import "strings"

const fallbackSummaryLen = 1000

// Fallback builds the degraded result used when the model answered with
// text that held no parseable object.
func (n Normalizer) Fallback(raw string) Result {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		summary = n.texts.SummaryPlaceholder
	} else if r := []rune(summary); len(r) > fallbackSummaryLen {
		summary = string(r[:fallbackSummaryLen]) + "..."
	}

	return Result{
		EnglishSummary:   summary,
		RomanUrduSummary: n.texts.FallbackUrduSummary,
		AbnormalValues:   []AbnormalValue{},
		DoctorQuestions:  append([]string(nil), n.texts.FallbackQuestions...),
		FoodsToAvoid:     []string{},
		RecommendedFoods: []string{},
		HomeRemedies:     []string{},
		Disclaimer:       n.texts.Disclaimer,
	}
}
