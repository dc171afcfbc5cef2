package insight_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/stretchr/testify/require"
)

var optionalKeys = []string{
	"englishSummary", "romanUrduSummary", "abnormalValues", "doctorQuestions",
	"foodsToAvoid", "recommendedFoods", "homeRemedies",
}

func fullPayload() map[string]any {
	return map[string]any{
		"englishSummary":   "Sugar is high.",
		"romanUrduSummary": "Sugar zyada hai.",
		"abnormalValues": []any{
			map[string]any{"parameter": "Sugar", "value": "180", "normalRange": "70-100", "status": "high"},
		},
		"doctorQuestions":  []any{"Should I test HbA1c?"},
		"foodsToAvoid":     []any{"sweets"},
		"recommendedFoods": []any{"daal"},
		"homeRemedies":     []any{"walk daily"},
	}
}

func toPayload(t *testing.T, r insight.Result) map[string]any {
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNormalizer_Normalize(t *testing.T) {
	n := insight.NewNormalizer(insight.DefaultTexts())

	t.Run("normalizing an already normalized result is a no-op", func(t *testing.T) {
		req := require.New(t)
		first := n.Normalize(fullPayload())
		second := n.Normalize(toPayload(t, first))
		req.Equal(first, second)

		sparse := n.Normalize(map[string]any{})
		req.Equal(sparse, n.Normalize(toPayload(t, sparse)))
	})

	t.Run("every subset of missing fields is filled", func(t *testing.T) {
		req := require.New(t)
		for mask := 0; mask < 1<<len(optionalKeys); mask++ {
			payload := fullPayload()
			for i, key := range optionalKeys {
				if mask&(1<<i) != 0 {
					delete(payload, key)
				}
			}
			r := n.Normalize(payload)
			req.NotEmpty(r.EnglishSummary)
			req.NotEmpty(r.RomanUrduSummary)
			req.NotNil(r.AbnormalValues)
			req.NotNil(r.DoctorQuestions)
			req.NotNil(r.FoodsToAvoid)
			req.NotNil(r.RecommendedFoods)
			req.NotNil(r.HomeRemedies)
		}
	})

	t.Run("blank or non-string summaries fall back to the placeholder", func(t *testing.T) {
		req := require.New(t)
		r := n.Normalize(map[string]any{"englishSummary": "   ", "romanUrduSummary": 42.0})
		req.Equal(insight.DefaultSummaryPlaceholder, r.EnglishSummary)
		req.Equal(insight.DefaultSummaryPlaceholder, r.RomanUrduSummary)
	})

	t.Run("disclaimer is always the canonical text", func(t *testing.T) {
		req := require.New(t)
		for _, d := range []any{nil, "", "trust me, I am a doctor", 12.0, []any{"x"}} {
			payload := fullPayload()
			payload["disclaimer"] = d
			req.Equal(insight.DefaultDisclaimer, n.Normalize(payload).Disclaimer)
		}
	})

	t.Run("sequence members are coerced to strings", func(t *testing.T) {
		req := require.New(t)
		r := n.Normalize(map[string]any{
			"doctorQuestions": []any{"one", 2.0, true, nil, map[string]any{"q": "x"}},
			"foodsToAvoid":    "sugar",
			"homeRemedies":    map[string]any{"not": "a list"},
		})
		req.Equal([]string{"one", "2", "true"}, r.DoctorQuestions)
		req.Equal([]string{"sugar"}, r.FoodsToAvoid)
		req.Equal([]string{}, r.HomeRemedies)
	})

	t.Run("unknown abnormal status passes through and there is no capping", func(t *testing.T) {
		req := require.New(t)
		values := make([]any, 0, 12)
		for i := 0; i < 12; i++ {
			values = append(values, map[string]any{"parameter": "p", "value": 7.5, "status": "borderline"})
		}
		values = append(values, "not an object")

		r := n.Normalize(map[string]any{"abnormalValues": values})
		req.Len(r.AbnormalValues, 12)
		req.Equal(insight.Status("borderline"), r.AbnormalValues[0].Status)
		req.Equal("7.5", r.AbnormalValues[0].Value)
		req.Empty(r.AbnormalValues[0].NormalRange)
	})

	t.Run("configured texts override the defaults", func(t *testing.T) {
		req := require.New(t)
		custom := insight.NewNormalizer(insight.Texts{Disclaimer: "custom", SummaryPlaceholder: "none"})
		r := custom.Normalize(map[string]any{})
		req.Equal("custom", r.Disclaimer)
		req.Equal("none", r.EnglishSummary)
	})
}

func TestNormalizer_Fallback(t *testing.T) {
	n := insight.NewNormalizer(insight.DefaultTexts())

	t.Run("long prose is truncated with an ellipsis", func(t *testing.T) {
		req := require.New(t)
		r := n.Fallback(strings.Repeat("a", 1500))
		req.Equal(strings.Repeat("a", 1000)+"...", r.EnglishSummary)
		req.Equal(insight.DefaultFallbackUrduSummary, r.RomanUrduSummary)
		req.Len(r.DoctorQuestions, 3)
		req.Empty(r.AbnormalValues)
		req.NotNil(r.FoodsToAvoid)
		req.NotNil(r.RecommendedFoods)
		req.NotNil(r.HomeRemedies)
		req.Equal(insight.DefaultDisclaimer, r.Disclaimer)
	})

	t.Run("short prose is kept whole", func(t *testing.T) {
		req := require.New(t)
		req.Equal("Your sugar looks high.", n.Fallback("Your sugar looks high.").EnglishSummary)
	})

	t.Run("multibyte text is cut on rune boundaries", func(t *testing.T) {
		req := require.New(t)
		r := n.Fallback(strings.Repeat("ہ", 1001))
		req.Equal(1003, len([]rune(r.EnglishSummary)))
	})

	t.Run("empty text uses the placeholder", func(t *testing.T) {
		req := require.New(t)
		req.Equal(insight.DefaultSummaryPlaceholder, n.Fallback("  \n").EnglishSummary)
	})

	t.Run("fallback questions are copied", func(t *testing.T) {
		req := require.New(t)
		r := n.Fallback("x")
		r.DoctorQuestions[0] = "mutated"
		req.Equal(insight.DefaultFallbackQuestions[0], n.Fallback("x").DoctorQuestions[0])
	})
}
