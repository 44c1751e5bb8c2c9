// Package normalize converts loosely-typed clinical fields into numeric
// readings with an explicit validity flag. Every function is total: a value
// that cannot be used comes back with Valid == false and zeroed numbers.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/vitals/internal/domain/model"
)

// Reading is a normalized scalar. Value is zero and meaningless unless Valid.
type Reading struct {
	Value float64
	Valid bool
}

// BloodPressure is a normalized "<systolic>/<diastolic>" reading.
type BloodPressure struct {
	Sys   float64
	Dia   float64
	Valid bool
}

// bloodPressureSentinels mark values upstream injects for unusable readings.
// Matching is a literal, case-sensitive substring test.
var bloodPressureSentinels = []string{"INVALID", "error", "N/A"}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseBloodPressure parses "<sys>/<dia>". Numbers are not range checked.
func ParseBloodPressure(f model.Field) BloodPressure {
	var invalid BloodPressure

	if f.Kind != model.KindString || f.Str == "" {
		return invalid
	}
	for _, s := range bloodPressureSentinels {
		if strings.Contains(f.Str, s) {
			return invalid
		}
	}

	parts := strings.Split(f.Str, "/")
	if len(parts) != 2 {
		return invalid
	}

	sys, ok := parseNumber(parts[0])
	if !ok {
		return invalid
	}
	dia, ok := parseNumber(parts[1])
	if !ok {
		return invalid
	}
	return BloodPressure{Sys: sys, Dia: dia, Valid: true}
}

// ParseTemperature accepts a number or a string with a leading decimal
// number ("99.1", "99.1F").
func ParseTemperature(f model.Field) Reading {
	switch f.Kind {
	case model.KindString:
		m := leadingFloat.FindString(strings.TrimLeft(f.Str, " \t\r\n"))
		if m == "" {
			return Reading{}
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil || !finite(v) {
			return Reading{}
		}
		return Reading{Value: v, Valid: true}
	case model.KindNumber:
		return number(f.Num)
	default:
		return Reading{}
	}
}

// ParseAge accepts a number (fraction kept) or a string with leading
// decimal digits ("45", "45 years").
func ParseAge(f model.Field) Reading {
	switch f.Kind {
	case model.KindString:
		m := leadingInt.FindString(strings.TrimLeft(f.Str, " \t\r\n"))
		if m == "" {
			return Reading{}
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil || !finite(v) {
			return Reading{}
		}
		return Reading{Value: v, Valid: true}
	case model.KindNumber:
		return number(f.Num)
	default:
		return Reading{}
	}
}

// parseNumber parses one blood pressure component; the whole trimmed part
// must be numeric.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func number(v float64) Reading {
	if math.IsNaN(v) {
		return Reading{}
	}
	return Reading{Value: v, Valid: true}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
