// Package scoring maps normalized clinical readings to category risk scores.
//
// Category ranges: blood pressure 0-3, temperature 0-2, age 0-2. An invalid
// reading always contributes 0; invalidity is surfaced separately through
// Breakdown.DataQualityIssue.
package scoring

import (
	"github.com/okian/vitals/internal/domain/model"
	"github.com/okian/vitals/internal/domain/normalize"
)

// Clinical thresholds.
const (
	SystolicStage2    = 140
	SystolicStage1    = 130
	SystolicElevated  = 120
	DiastolicStage2   = 90
	DiastolicStage1   = 80
	HighFever         = 101.0
	FeverThreshold    = 99.6
	SeniorAge         = 65 // strictly above scores 2
	MiddleAge         = 40
	MaxTotalRiskScore = 7
)

// BloodPressureScore returns the worse of the systolic and diastolic tiers.
func BloodPressureScore(bp normalize.BloodPressure) int {
	if !bp.Valid {
		return 0
	}

	sys := 0
	switch {
	case bp.Sys >= SystolicStage2:
		sys = 3
	case bp.Sys >= SystolicStage1:
		sys = 2
	case bp.Sys >= SystolicElevated:
		sys = 1
	}

	dia := 0
	switch {
	case bp.Dia >= DiastolicStage2:
		dia = 3
	case bp.Dia >= DiastolicStage1:
		dia = 2
	}

	return max(sys, dia)
}

// TemperatureScore scores a temperature in Fahrenheit.
func TemperatureScore(r normalize.Reading) int {
	if !r.Valid {
		return 0
	}
	switch {
	case r.Value >= HighFever:
		return 2
	case r.Value >= FeverThreshold:
		return 1
	default:
		return 0
	}
}

// AgeScore scores an age in years. 65 itself scores 1.
func AgeScore(r normalize.Reading) int {
	if !r.Valid {
		return 0
	}
	switch {
	case r.Value > SeniorAge:
		return 2
	case r.Value >= MiddleAge:
		return 1
	default:
		return 0
	}
}

// Total sums the category scores without weighting.
func Total(bp, temp, age int) int {
	return bp + temp + age
}

// Breakdown is the per-patient evaluation: normalized readings plus scores.
type Breakdown struct {
	BloodPressure normalize.BloodPressure
	Temperature   normalize.Reading
	Age           normalize.Reading

	BloodPressureScore int
	TemperatureScore   int
	AgeScore           int
	Total              int
}

// Evaluate normalizes the clinical fields of p and scores them.
func Evaluate(p model.Patient) Breakdown {
	b := Breakdown{
		BloodPressure: normalize.ParseBloodPressure(p.BloodPressure),
		Temperature:   normalize.ParseTemperature(p.Temperature),
		Age:           normalize.ParseAge(p.Age),
	}
	b.BloodPressureScore = BloodPressureScore(b.BloodPressure)
	b.TemperatureScore = TemperatureScore(b.Temperature)
	b.AgeScore = AgeScore(b.Age)
	b.Total = Total(b.BloodPressureScore, b.TemperatureScore, b.AgeScore)
	return b
}

// DataQualityIssue reports whether any clinical field was unusable.
func (b Breakdown) DataQualityIssue() bool {
	return !b.BloodPressure.Valid || !b.Temperature.Valid || !b.Age.Valid
}

// Fever tests the normalized temperature directly, not the score.
func (b Breakdown) Fever() bool {
	return b.Temperature.Valid && b.Temperature.Value >= FeverThreshold
}
