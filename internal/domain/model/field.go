// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
)

// Kind classifies the JSON token a Field was decoded from.
type Kind uint8

const (
	KindAbsent Kind = iota // key missing from the record
	KindNull
	KindString
	KindNumber
	KindOther // bool, object or array
)

// String returns a short label for logs.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "other"
	}
}

// Field holds a loosely-typed upstream value. Only one of Str or Num is
// meaningful, selected by Kind.
type Field struct {
	Kind Kind
	Str  string
	Num  float64
	Raw  json.RawMessage
}

// StringField builds a string-valued Field.
func StringField(s string) Field {
	raw, _ := json.Marshal(s)
	return Field{Kind: KindString, Str: s, Raw: raw}
}

// NumberField builds a number-valued Field.
func NumberField(n float64) Field {
	raw, _ := json.Marshal(n)
	return Field{Kind: KindNumber, Num: n, Raw: raw}
}

// NullField builds an explicit JSON null.
func NullField() Field {
	return Field{Kind: KindNull, Raw: json.RawMessage("null")}
}

// UnmarshalJSON classifies the token and never returns an error for
// well-formed JSON.
func (f *Field) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*f = Field{Raw: append(json.RawMessage(nil), trimmed...)}

	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case 'n':
		f.Kind = KindNull
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			f.Kind = KindOther
			return nil
		}
		f.Kind, f.Str = KindString, s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			// out of float64 range
			f.Kind = KindOther
			return nil
		}
		f.Kind, f.Num = KindNumber, n
	default:
		f.Kind = KindOther
	}
	return nil
}

// MarshalJSON writes the original token back, or null when absent.
func (f Field) MarshalJSON() ([]byte, error) {
	if len(f.Raw) == 0 {
		return []byte("null"), nil
	}
	return f.Raw, nil
}

// Text renders the value for logs and for descriptive fields that are not
// interpreted: strings unquoted, everything else as its JSON literal.
func (f Field) Text() string {
	switch f.Kind {
	case KindAbsent, KindNull:
		return ""
	case KindString:
		return f.Str
	default:
		return string(f.Raw)
	}
}
