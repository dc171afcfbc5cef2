package insight

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Normalizer fills absent or sparse fields of a parsed model payload.
type Normalizer struct {
	texts Texts
}

func NewNormalizer(texts Texts) Normalizer {
	return Normalizer{texts: texts.WithDefaults()}
}

// Normalize turns an extracted payload into a Result. It cannot fail.
func (n Normalizer) Normalize(payload map[string]any) Result {
	return Result{
		EnglishSummary:   n.summary(payload["englishSummary"]),
		RomanUrduSummary: n.summary(payload["romanUrduSummary"]),
		AbnormalValues:   abnormalValues(payload["abnormalValues"]),
		DoctorQuestions:  stringList(payload["doctorQuestions"]),
		FoodsToAvoid:     stringList(payload["foodsToAvoid"]),
		RecommendedFoods: stringList(payload["recommendedFoods"]),
		HomeRemedies:     stringList(payload["homeRemedies"]),
		Disclaimer:       n.texts.Disclaimer,
	}
}

func (n Normalizer) summary(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return n.texts.SummaryPlaceholder
	}
	return s
}

// stringList accepts a list or a single bare string. Nulls and nested
// objects inside the list are dropped, scalars are stringified.
func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		return lo.FilterMap(t, func(item any, _ int) (string, bool) {
			return scalarString(item)
		})
	case string:
		return []string{t}
	default:
		return []string{}
	}
}

func abnormalValues(v any) []AbnormalValue {
	items, ok := v.([]any)
	if !ok {
		return []AbnormalValue{}
	}
	return lo.FilterMap(items, func(item any, _ int) (AbnormalValue, bool) {
		m, ok := item.(map[string]any)
		if !ok {
			return AbnormalValue{}, false
		}
		parameter, _ := scalarString(m["parameter"])
		value, _ := scalarString(m["value"])
		normalRange, _ := scalarString(m["normalRange"])
		status, _ := scalarString(m["status"])
		return AbnormalValue{
			Parameter:   parameter,
			Value:       value,
			NormalRange: normalRange,
			Status:      Status(status),
		}, true
	})
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
