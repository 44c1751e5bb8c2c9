package scoring_test

import (
	"testing"

	"github.com/okian/vitals/internal/domain/model"
	"github.com/okian/vitals/internal/domain/normalize"
	scoring "github.com/okian/vitals/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func valid(v float64) normalize.Reading { return normalize.Reading{Value: v, Valid: true} }

func bp(sys, dia float64) normalize.BloodPressure {
	return normalize.BloodPressure{Sys: sys, Dia: dia, Valid: true}
}

func TestBloodPressureScore(t *testing.T) {
	Convey("Given blood pressure readings", t, func() {
		cases := []struct {
			name     string
			in       normalize.BloodPressure
			expected int
		}{
			{"normal", bp(115, 75), 0},
			{"elevated systolic", bp(120, 79), 1},
			{"stage 1 systolic", bp(130, 70), 2},
			{"stage 1 diastolic", bp(110, 80), 2},
			{"stage 2 systolic", bp(140, 60), 3},
			{"stage 2 diastolic", bp(100, 90), 3},
			{"just below elevated", bp(119.9, 79.9), 0},
		}

		Convey("Then each reading maps to its tier", func() {
			for _, tc := range cases {
				Convey(tc.name, func() {
					So(scoring.BloodPressureScore(tc.in), ShouldEqual, tc.expected)
				})
			}
		})

		Convey("When systolic and diastolic disagree", func() {
			Convey("Then the worse tier wins rather than the sum", func() {
				So(scoring.BloodPressureScore(bp(145, 70)), ShouldEqual, 3)
				So(scoring.BloodPressureScore(bp(125, 85)), ShouldEqual, 2)
				So(scoring.BloodPressureScore(bp(135, 95)), ShouldEqual, 3)
			})
		})

		Convey("When the reading is invalid", func() {
			So(scoring.BloodPressureScore(normalize.BloodPressure{Sys: 200, Dia: 120}), ShouldEqual, 0)
		})
	})
}

func TestTemperatureScore(t *testing.T) {
	Convey("Given temperature boundaries", t, func() {
		So(scoring.TemperatureScore(valid(98.6)), ShouldEqual, 0)
		So(scoring.TemperatureScore(valid(99.59)), ShouldEqual, 0)
		So(scoring.TemperatureScore(valid(99.6)), ShouldEqual, 1)
		So(scoring.TemperatureScore(valid(100.9)), ShouldEqual, 1)
		So(scoring.TemperatureScore(valid(101)), ShouldEqual, 2)
		So(scoring.TemperatureScore(valid(104.2)), ShouldEqual, 2)
		So(scoring.TemperatureScore(normalize.Reading{Value: 104}), ShouldEqual, 0)
	})
}

func TestAgeScore(t *testing.T) {
	Convey("Given age boundaries", t, func() {
		So(scoring.AgeScore(valid(25)), ShouldEqual, 0)
		So(scoring.AgeScore(valid(39.9)), ShouldEqual, 0)
		So(scoring.AgeScore(valid(40)), ShouldEqual, 1)

		Convey("Then 65 is the middle tier and anything above is senior", func() {
			So(scoring.AgeScore(valid(65)), ShouldEqual, 1)
			So(scoring.AgeScore(valid(65.5)), ShouldEqual, 2)
			So(scoring.AgeScore(valid(66)), ShouldEqual, 2)
		})

		So(scoring.AgeScore(normalize.Reading{Value: 90}), ShouldEqual, 0)
	})
}

func TestTotalIsBounded(t *testing.T) {
	Convey("Given every combination of valid and invalid categories", t, func() {
		bps := []normalize.BloodPressure{{}, bp(100, 60), bp(150, 95)}
		temps := []normalize.Reading{{}, valid(97), valid(103)}
		ages := []normalize.Reading{{}, valid(20), valid(80)}

		Convey("Then the total stays within 0..7", func() {
			for _, b := range bps {
				for _, tr := range temps {
					for _, a := range ages {
						total := scoring.Total(scoring.BloodPressureScore(b), scoring.TemperatureScore(tr), scoring.AgeScore(a))
						So(total, ShouldBeBetweenOrEqual, 0, scoring.MaxTotalRiskScore)
					}
				}
			}
			So(scoring.Total(3, 2, 2), ShouldEqual, scoring.MaxTotalRiskScore)
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given a high risk febrile patient", t, func() {
		b := scoring.Evaluate(model.Patient{
			PatientID:     "DEMO002",
			Age:           model.NumberField(67),
			BloodPressure: model.StringField("145/95"),
			Temperature:   model.StringField("101.3"),
		})

		Convey("Then every category contributes", func() {
			So(b.BloodPressureScore, ShouldEqual, 3)
			So(b.TemperatureScore, ShouldEqual, 2)
			So(b.AgeScore, ShouldEqual, 2)
			So(b.Total, ShouldEqual, 7)
			So(b.DataQualityIssue(), ShouldBeFalse)
			So(b.Fever(), ShouldBeTrue)
		})
	})

	Convey("Given a patient with an unusable age", t, func() {
		b := scoring.Evaluate(model.Patient{
			PatientID:     "DEMO003",
			Age:           model.StringField("unknown"),
			BloodPressure: model.StringField("120/80"),
			Temperature:   model.NumberField(98.0),
		})

		Convey("Then the record is flagged even though it scores low", func() {
			So(b.DataQualityIssue(), ShouldBeTrue)
			So(b.AgeScore, ShouldEqual, 0)
			So(b.Total, ShouldEqual, 2)
			So(b.Fever(), ShouldBeFalse)
		})
	})

	Convey("Given a patient with an invalid temperature", t, func() {
		b := scoring.Evaluate(model.Patient{
			Age:           model.NumberField(30),
			BloodPressure: model.StringField("110/70"),
			Temperature:   model.StringField("TEMP_ERROR"),
		})

		Convey("Then it has no fever and a quality issue", func() {
			So(b.Fever(), ShouldBeFalse)
			So(b.DataQualityIssue(), ShouldBeTrue)
		})
	})
}
