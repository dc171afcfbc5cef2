package prompt_test

import (
	"testing"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/bryanwahyu/healthmate/internal/infra/ai/prompt"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	b := prompt.NewBuilder()

	t.Run("document prompt references the artifact and category", func(t *testing.T) {
		req := require.New(t)
		in, err := b.Build(analysis.NewDocumentRequest("r1", analysis.ArtifactRef{
			Key: "u1/reports/r1.pdf", URL: "http://minio/bucket/u1/reports/r1.pdf", MediaType: "application/pdf",
		}, "blood-test"))
		req.NoError(err)
		req.Contains(in.System, "romanUrduSummary")
		req.Contains(in.System, "homeRemedies")
		req.Contains(in.User, "Report type: blood-test")
		req.Contains(in.User, "File type: application/pdf")
		req.Contains(in.User, "File URL: http://minio/bucket/u1/reports/r1.pdf")
	})

	t.Run("vitals prompt lists present measurements only", func(t *testing.T) {
		req := require.New(t)
		in, err := b.Build(analysis.NewVitalsRequest("v1", vitals.Reading{
			RecordDate:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			BloodPressure: &vitals.BloodPressure{Systolic: lo.ToPtr(140.0), Diastolic: lo.ToPtr(90.0)},
			BloodSugar:    &vitals.BloodSugar{Value: lo.ToPtr(180.0), Type: vitals.SugarFasting},
			OxygenLevel:   &vitals.Oxygen{Value: lo.ToPtr(97.0)},
			Symptoms:      []string{" headache ", ""},
		}))
		req.NoError(err)
		req.Contains(in.User, "Date: 2024-03-01")
		req.Contains(in.User, "Blood pressure: 140/90 mmHg")
		req.Contains(in.User, "Blood sugar: 180 mg/dL (fasting)")
		req.Contains(in.User, "Oxygen level: 97%")
		req.Contains(in.User, "Symptoms: headache")
		req.NotContains(in.User, "Weight")
		req.NotContains(in.User, "Heart rate")
		req.NotContains(in.User, "Notes")
	})
}

func TestSummarizeVitals(t *testing.T) {
	t.Run("partial pressure and bmi", func(t *testing.T) {
		req := require.New(t)
		s := prompt.SummarizeVitals(vitals.Reading{
			BloodPressure: &vitals.BloodPressure{Systolic: lo.ToPtr(118.0)},
			Weight:        &vitals.Weight{Value: lo.ToPtr(70.0)},
			Height:        &vitals.Height{Value: lo.ToPtr(175.0)},
			Temperature:   &vitals.Temperature{Value: lo.ToPtr(98.6), Unit: "fahrenheit"},
			Notes:         "after walk",
		})
		req.Equal("Blood pressure: 118/? mmHg\nWeight: 70 kg\nHeight: 175 cm\nBMI: 22.86\nTemperature: 98.6 fahrenheit\nNotes: after walk", s)
	})

	t.Run("empty reading renders nothing", func(t *testing.T) {
		req := require.New(t)
		req.Empty(prompt.SummarizeVitals(vitals.Reading{}))
	})

	t.Run("summarizing does not mutate the caller's reading", func(t *testing.T) {
		req := require.New(t)
		r := vitals.Reading{Weight: &vitals.Weight{Value: lo.ToPtr(70.0)}}
		prompt.SummarizeVitals(r)
		req.Empty(r.Weight.Unit)
	})
}
