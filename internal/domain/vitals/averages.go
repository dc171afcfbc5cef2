package vitals

import "math"

// PressureAverages holds the mean systolic and diastolic pressure.
// Each side is averaged over the readings where it is present.
type PressureAverages struct {
	Systolic  *int `json:"systolic"`
	Diastolic *int `json:"diastolic"`
}

// Averages over a window of readings. A nil field had no observation.
type Averages struct {
	BloodPressure *PressureAverages `json:"blood_pressure"`
	BloodSugar    *int              `json:"blood_sugar"`
	Weight        *float64          `json:"weight"`
	HeartRate     *int              `json:"heart_rate"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) rounded() *int {
	if m.n == 0 {
		return nil
	}
	v := int(math.Round(m.sum / float64(m.n)))
	return &v
}

func (m mean) oneDecimal() *float64 {
	if m.n == 0 {
		return nil
	}
	v := math.Round(m.sum/float64(m.n)*10) / 10
	return &v
}

// Aggregate averages blood pressure, sugar and heart rate to whole
// numbers and weight to one decimal. It returns nil for an empty window.
func Aggregate(window []Reading) *Averages {
	if len(window) == 0 {
		return nil
	}

	var sys, dia, sugar, weight, pulse mean
	for _, r := range window {
		sys.add(r.SystolicValue())
		dia.add(r.DiastolicValue())
		sugar.add(r.SugarValue())
		weight.add(r.WeightValue())
		pulse.add(r.HeartRateValue())
	}

	out := &Averages{
		BloodSugar: sugar.rounded(),
		Weight:     weight.oneDecimal(),
		HeartRate:  pulse.rounded(),
	}
	if sys.n > 0 || dia.n > 0 {
		out.BloodPressure = &PressureAverages{Systolic: sys.rounded(), Diastolic: dia.rounded()}
	}
	return out
}
