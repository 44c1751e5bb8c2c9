// Package assessment partitions scored patients into the submitted buckets.
package assessment

import (
	"github.com/okian/vitals/internal/domain/model"
	"github.com/okian/vitals/internal/domain/scoring"
)

// HighRiskThreshold is the minimum total score for the high-risk bucket.
const HighRiskThreshold = 4

// Result holds the three independent buckets of patient IDs. A patient may
// appear in several buckets; IDs are kept in roster order and not de-duplicated.
type Result struct {
	HighRisk          []string `json:"high_risk_patients"`
	Fever             []string `json:"fever_patients"`
	DataQualityIssues []string `json:"data_quality_issues"`
}

// Counts summarizes bucket sizes.
type Counts struct {
	Patients          int
	HighRisk          int
	Fever             int
	DataQualityIssues int
}

// Builder accumulates a Result one patient at a time.
type Builder struct {
	result   Result
	patients int
}

// NewBuilder returns a Builder whose buckets encode as [] even when empty.
func NewBuilder() *Builder {
	return &Builder{result: Result{
		HighRisk:          []string{},
		Fever:             []string{},
		DataQualityIssues: []string{},
	}}
}

// Add classifies one evaluated patient. The checks are independent.
func (b *Builder) Add(id string, br scoring.Breakdown) {
	b.patients++
	if br.DataQualityIssue() {
		b.result.DataQualityIssues = append(b.result.DataQualityIssues, id)
	}
	if br.Total >= HighRiskThreshold {
		b.result.HighRisk = append(b.result.HighRisk, id)
	}
	if br.Fever() {
		b.result.Fever = append(b.result.Fever, id)
	}
}

// Result returns the accumulated buckets.
func (b *Builder) Result() Result {
	return b.result
}

// Counts returns the bucket sizes and the number of patients added.
func (b *Builder) Counts() Counts {
	c := b.result.Counts()
	c.Patients = b.patients
	return c
}

// Classify evaluates every patient and returns the buckets.
func Classify(patients []model.Patient) Result {
	b := NewBuilder()
	for _, p := range patients {
		b.Add(p.PatientID, scoring.Evaluate(p))
	}
	return b.Result()
}

// Counts returns the bucket sizes. Patients is left zero.
func (r Result) Counts() Counts {
	return Counts{
		HighRisk:          len(r.HighRisk),
		Fever:             len(r.Fever),
		DataQualityIssues: len(r.DataQualityIssues),
	}
}
