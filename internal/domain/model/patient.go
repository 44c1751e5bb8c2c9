package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned when a roster record is not a JSON object.
var ErrNotObject = errors.New("patient record is not a JSON object")

// Patient is one roster record as received from upstream. It is read-only
// and consumed once per run.
type Patient struct {
	PatientID   string // opaque identity key
	Name        string
	Gender      string
	VisitDate   string
	Diagnosis   string
	Medications string

	// Clinical fields arrive as numbers, numeric strings or sentinels.
	Age           Field
	BloodPressure Field
	Temperature   Field
}

type patientWire struct {
	PatientID     Field `json:"patient_id"`
	Name          Field `json:"name"`
	Gender        Field `json:"gender"`
	VisitDate     Field `json:"visit_date"`
	Diagnosis     Field `json:"diagnosis"`
	Medications   Field `json:"medications"`
	Age           Field `json:"age"`
	BloodPressure Field `json:"blood_pressure"`
	Temperature   Field `json:"temperature"`
}

// UnmarshalJSON accepts any JSON object. Identity and descriptive fields of
// unexpected type keep their literal text; a non-object is an error.
func (p *Patient) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}
	var w patientWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Patient{
		PatientID:     w.PatientID.Text(),
		Name:          w.Name.Text(),
		Gender:        w.Gender.Text(),
		VisitDate:     w.VisitDate.Text(),
		Diagnosis:     w.Diagnosis.Text(),
		Medications:   w.Medications.Text(),
		Age:           w.Age,
		BloodPressure: w.BloodPressure,
		Temperature:   w.Temperature,
	}
	return nil
}

// MarshalJSON emits the upstream field names.
func (p Patient) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PatientID     string `json:"patient_id"`
		Name          string `json:"name,omitempty"`
		Gender        string `json:"gender,omitempty"`
		VisitDate     string `json:"visit_date,omitempty"`
		Diagnosis     string `json:"diagnosis,omitempty"`
		Medications   string `json:"medications,omitempty"`
		Age           Field  `json:"age"`
		BloodPressure Field  `json:"blood_pressure"`
		Temperature   Field  `json:"temperature"`
	}{
		p.PatientID, p.Name, p.Gender, p.VisitDate, p.Diagnosis, p.Medications,
		p.Age, p.BloodPressure, p.Temperature,
	})
}
