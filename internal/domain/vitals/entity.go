package vitals

import (
	"math"
	"time"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

// ID tipe untuk vitals entry
type ID string

// SugarType enum
type SugarType string

const (
	SugarFasting  SugarType = "fasting"
	SugarRandom   SugarType = "random"
	SugarPostMeal SugarType = "post-meal"
	SugarHbA1c    SugarType = "hba1c"
)

// Each sub-reading is optional. A nil Value means "not measured"; zero is a
// real measurement.

type BloodPressure struct {
	Systolic  *float64 `json:"systolic,omitempty" validate:"omitempty,min=0,max=300"`
	Diastolic *float64 `json:"diastolic,omitempty" validate:"omitempty,min=0,max=200"`
	Unit      string   `json:"unit,omitempty"`
}

type BloodSugar struct {
	Value *float64  `json:"value,omitempty" validate:"omitempty,min=0,max=1000"`
	Type  SugarType `json:"type,omitempty" validate:"omitempty,oneof=fasting random post-meal hba1c"`
	Unit  string    `json:"unit,omitempty"`
}

type Weight struct {
	Value *float64 `json:"value,omitempty" validate:"omitempty,min=0,max=500"`
	Unit  string   `json:"unit,omitempty" validate:"omitempty,oneof=kg lbs"`
}

type Height struct {
	Value *float64 `json:"value,omitempty" validate:"omitempty,min=0,max=300"`
	Unit  string   `json:"unit,omitempty" validate:"omitempty,oneof=cm inches"`
}

type HeartRate struct {
	Value *float64 `json:"value,omitempty" validate:"omitempty,min=0,max=300"`
	Unit  string   `json:"unit,omitempty"`
}

type Temperature struct {
	Value *float64 `json:"value,omitempty" validate:"omitempty,min=0,max=120"`
	Unit  string   `json:"unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit"`
}

type Oxygen struct {
	Value *float64 `json:"value,omitempty" validate:"omitempty,min=0,max=100"`
	Unit  string   `json:"unit,omitempty"`
}

// Reading is one manual vitals measurement set. It is also the payload of
// a vitals analysis request.
type Reading struct {
	RecordDate    time.Time      `json:"record_date" validate:"required"`
	BloodPressure *BloodPressure `json:"blood_pressure,omitempty"`
	BloodSugar    *BloodSugar    `json:"blood_sugar,omitempty"`
	Weight        *Weight        `json:"weight,omitempty"`
	Height        *Height        `json:"height,omitempty"`
	HeartRate     *HeartRate     `json:"heart_rate,omitempty"`
	Temperature   *Temperature   `json:"temperature,omitempty"`
	OxygenLevel   *Oxygen        `json:"oxygen_level,omitempty"`
	Notes         string         `json:"notes,omitempty" validate:"max=500"`
	Symptoms      []string       `json:"symptoms,omitempty" validate:"omitempty,dive,max=200"`
}

// Aggregate Root: Entry
type Entry struct {
	ID      ID     `json:"id"`
	OwnerID string `json:"owner_id"`
	Reading
	Analysis  insight.State `json:"analysis"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ApplyDefaults fills the unit of every present sub-reading.
func (r *Reading) ApplyDefaults() {
	if r.BloodPressure != nil && r.BloodPressure.Unit == "" {
		r.BloodPressure.Unit = "mmHg"
	}
	if r.BloodSugar != nil && r.BloodSugar.Unit == "" {
		r.BloodSugar.Unit = "mg/dL"
	}
	if r.Weight != nil && r.Weight.Unit == "" {
		r.Weight.Unit = "kg"
	}
	if r.Height != nil && r.Height.Unit == "" {
		r.Height.Unit = "cm"
	}
	if r.HeartRate != nil && r.HeartRate.Unit == "" {
		r.HeartRate.Unit = "bpm"
	}
	if r.Temperature != nil && r.Temperature.Unit == "" {
		r.Temperature.Unit = "celsius"
	}
	if r.OxygenLevel != nil && r.OxygenLevel.Unit == "" {
		r.OxygenLevel.Unit = "%"
	}
}

// Empty reports whether no measurement, note or symptom is present.
func (r Reading) Empty() bool {
	return r.BloodPressure.systolic() == nil && r.BloodPressure.diastolic() == nil &&
		r.SugarValue() == nil && r.WeightValue() == nil && r.HeightValue() == nil &&
		r.HeartRateValue() == nil && r.TemperatureValue() == nil && r.OxygenValue() == nil &&
		r.Notes == "" && len(r.Symptoms) == 0
}

// BMI in kg/m², rounded to two decimals. Nil unless both weight and
// height are present and non-zero.
func (r Reading) BMI() *float64 {
	w, h := r.WeightValue(), r.HeightValue()
	if w == nil || h == nil || *w == 0 || *h == 0 {
		return nil
	}
	kg := *w
	if r.Weight.Unit == "lbs" {
		kg *= 0.45359237
	}
	m := *h / 100
	if r.Height.Unit == "inches" {
		m = *h * 0.0254
	}
	bmi := math.Round(kg/(m*m)*100) / 100
	return &bmi
}

func (bp *BloodPressure) systolic() *float64 {
	if bp == nil {
		return nil
	}
	return bp.Systolic
}

func (bp *BloodPressure) diastolic() *float64 {
	if bp == nil {
		return nil
	}
	return bp.Diastolic
}

func (r Reading) SystolicValue() *float64  { return r.BloodPressure.systolic() }
func (r Reading) DiastolicValue() *float64 { return r.BloodPressure.diastolic() }

func (r Reading) SugarValue() *float64 {
	if r.BloodSugar == nil {
		return nil
	}
	return r.BloodSugar.Value
}

func (r Reading) WeightValue() *float64 {
	if r.Weight == nil {
		return nil
	}
	return r.Weight.Value
}

func (r Reading) HeightValue() *float64 {
	if r.Height == nil {
		return nil
	}
	return r.Height.Value
}

func (r Reading) HeartRateValue() *float64 {
	if r.HeartRate == nil {
		return nil
	}
	return r.HeartRate.Value
}

func (r Reading) TemperatureValue() *float64 {
	if r.Temperature == nil {
		return nil
	}
	return r.Temperature.Value
}

func (r Reading) OxygenValue() *float64 {
	if r.OxygenLevel == nil {
		return nil
	}
	return r.OxygenLevel.Value
}

// Clone returns a deep copy of r.
func (r Reading) Clone() Reading {
	out := r
	if r.BloodPressure != nil {
		bp := *r.BloodPressure
		bp.Systolic = clonePtr(bp.Systolic)
		bp.Diastolic = clonePtr(bp.Diastolic)
		out.BloodPressure = &bp
	}
	if r.BloodSugar != nil {
		v := *r.BloodSugar
		v.Value = clonePtr(v.Value)
		out.BloodSugar = &v
	}
	if r.Weight != nil {
		v := *r.Weight
		v.Value = clonePtr(v.Value)
		out.Weight = &v
	}
	if r.Height != nil {
		v := *r.Height
		v.Value = clonePtr(v.Value)
		out.Height = &v
	}
	if r.HeartRate != nil {
		v := *r.HeartRate
		v.Value = clonePtr(v.Value)
		out.HeartRate = &v
	}
	if r.Temperature != nil {
		v := *r.Temperature
		v.Value = clonePtr(v.Value)
		out.Temperature = &v
	}
	if r.OxygenLevel != nil {
		v := *r.OxygenLevel
		v.Value = clonePtr(v.Value)
		out.OxygenLevel = &v
	}
	if r.Symptoms != nil {
		out.Symptoms = append([]string(nil), r.Symptoms...)
	}
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
