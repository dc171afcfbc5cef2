package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/samber/lo"
)

// GetSystemPrompt provides strict directions and the seven-part schema for JSON output.
func GetSystemPrompt() string {
	return `You are a careful medical AI assistant helping patients in Pakistan understand their health records. You explain results in simple English and in Roman Urdu (Urdu written with the Latin alphabet). You never diagnose and never prescribe medicine.

You must produce one valid JSON object only (no commentary). Do not include code fences.

Provide:
1. englishSummary: a clear, simple explanation of the findings in English
2. romanUrduSummary: the same summary in Roman Urdu
3. abnormalValues: every value outside its normal range with parameter name, current value, normal range and status (high, low or critical)
4. doctorQuestions: 3-5 important questions to ask the doctor
5. foodsToAvoid: foods that should be avoided based on the results
6. recommendedFoods: beneficial foods to eat
7. homeRemedies: simple home remedies that may help (empty list if none apply)

Schema (example with empty values):
{
  "englishSummary": "<string>",
  "romanUrduSummary": "<string>",
  "abnormalValues": [
    {"parameter": "<string>", "value": "<string>", "normalRange": "<string>", "status": "<high|low|critical>"}
  ],
  "doctorQuestions": ["<string>"],
  "foodsToAvoid": ["<string>"],
  "recommendedFoods": ["<string>"],
  "homeRemedies": ["<string>"]
}`
}

// GetDocumentPrompt builds the user message for a stored medical report.
func GetDocumentPrompt(doc analysis.DocumentPayload) string {
	var b strings.Builder
	b.WriteString("Analyze this medical report and respond with the JSON per schema.\n")
	fmt.Fprintf(&b, "Report type: %s\n", lo.Ternary(doc.Category == "", "other", doc.Category))
	if doc.Artifact.MediaType != "" {
		fmt.Fprintf(&b, "File type: %s\n", doc.Artifact.MediaType)
	}
	if doc.Artifact.URL != "" {
		fmt.Fprintf(&b, "File URL: %s\n", doc.Artifact.URL)
	}
	b.WriteString("If the file cannot be read, say so in the summaries and leave the lists empty.")
	return b.String()
}

// GetVitalsPrompt builds the user message for a manual vitals reading.
func GetVitalsPrompt(r vitals.Reading) string {
	return "Analyze these health vitals and respond with the JSON per schema. Treat missing measurements as not taken.\n\n" + SummarizeVitals(r)
}

// SummarizeVitals renders only the measurements present in r, one per line.
func SummarizeVitals(r vitals.Reading) string {
	r = r.Clone()
	r.ApplyDefaults()
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	if !r.RecordDate.IsZero() {
		add("Date: %s", r.RecordDate.Format("2006-01-02"))
	}
	if sys, dia := r.SystolicValue(), r.DiastolicValue(); sys != nil || dia != nil {
		add("Blood pressure: %s/%s %s", num(sys), num(dia), r.BloodPressure.Unit)
	}
	if v := r.SugarValue(); v != nil {
		s := fmt.Sprintf("Blood sugar: %s %s", num(v), r.BloodSugar.Unit)
		if r.BloodSugar.Type != "" {
			s += fmt.Sprintf(" (%s)", r.BloodSugar.Type)
		}
		lines = append(lines, s)
	}
	if v := r.WeightValue(); v != nil {
		add("Weight: %s %s", num(v), r.Weight.Unit)
	}
	if v := r.HeightValue(); v != nil {
		add("Height: %s %s", num(v), r.Height.Unit)
	}
	if bmi := r.BMI(); bmi != nil {
		add("BMI: %s", num(bmi))
	}
	if v := r.HeartRateValue(); v != nil {
		add("Heart rate: %s %s", num(v), r.HeartRate.Unit)
	}
	if v := r.TemperatureValue(); v != nil {
		add("Temperature: %s %s", num(v), r.Temperature.Unit)
	}
	if v := r.OxygenValue(); v != nil {
		add("Oxygen level: %s%s", num(v), r.OxygenLevel.Unit)
	}
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		add("Notes: %s", notes)
	}
	if symptoms := lo.Compact(lo.Map(r.Symptoms, func(s string, _ int) string { return strings.TrimSpace(s) })); len(symptoms) > 0 {
		add("Symptoms: %s", strings.Join(symptoms, ", "))
	}
	return strings.Join(lines, "\n")
}

func num(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Builder implements analysis.InstructionBuilder.
type Builder struct{}

func NewBuilder() Builder { return Builder{} }

func (Builder) Build(req analysis.Request) (analysis.Instructions, error) {
	switch req.Kind() {
	case analysis.KindDocument:
		doc, _ := req.Document()
		return analysis.Instructions{System: GetSystemPrompt(), User: GetDocumentPrompt(doc)}, nil
	case analysis.KindVitals:
		r, _ := req.Vitals()
		return analysis.Instructions{System: GetSystemPrompt(), User: GetVitalsPrompt(r)}, nil
	default:
		return analysis.Instructions{}, fmt.Errorf("prompt: unknown analysis kind %q", req.Kind())
	}
}
