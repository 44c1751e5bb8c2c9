package roster

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/okian/vitals/internal/domain/model"
)

// Shape names the upstream response layout an Envelope was decoded from.
type Shape string

const (
	ShapeCanonical Shape = "canonical"  // {"data": [...], "pagination": {...}}
	ShapeAlternate Shape = "alternate"  // {"patients": [...], "total_records": n, "per_page": n}
	ShapeBareArray Shape = "bare_array" // [...]
	ShapeUnknown   Shape = "unknown"
)

// UnboundedPages is the page count reported for bare-array responses, which
// carry no pagination metadata. The fetch loop ends on an empty page instead.
const UnboundedPages = 999

// Envelope is the canonical page form used regardless of upstream shape.
type Envelope struct {
	Records     []model.Patient
	Page        int
	Limit       int
	Total       int
	TotalPages  int
	HasNext     bool
	HasPrevious bool

	Shape Shape
	// Skipped counts entries of the record array that were not objects.
	Skipped int
	// MalformedRecords is set when the records member was present but was
	// not an array.
	MalformedRecords bool
	// MalformedPagination is set when a pagination counter or flag could not
	// be read. The page counts above are then not trustworthy.
	MalformedPagination bool
}

type canonicalPagination struct {
	Page        counter `json:"page"`
	Limit       counter `json:"limit"`
	Total       counter `json:"total"`
	TotalPages  counter `json:"totalPages"`
	HasNext     flag    `json:"hasNext"`
	HasPrevious flag    `json:"hasPrevious"`
}

type alternateMeta struct {
	TotalRecords counter `json:"total_records"`
	PerPage      counter `json:"per_page"`
	CurrentPage  counter `json:"current_page"`
}

// counter is a pagination number sent either as a JSON number or as a
// numeric string. bad is set when the value was present but unusable.
type counter struct {
	n   int
	bad bool
}

func (c *counter) UnmarshalJSON(data []byte) error {
	*c = counter{}
	t := bytes.TrimSpace(data)
	if bytes.Equal(t, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(t, &v); err != nil {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			c.bad = true
			return nil
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			c.bad = true
			return nil
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		c.bad = true
		return nil
	}
	c.n = int(v)
	return nil
}

// flag is a pagination boolean sent either as a JSON bool or as
// "true"/"false".
type flag struct {
	b   bool
	bad bool
}

func (f *flag) UnmarshalJSON(data []byte) error {
	*f = flag{}
	t := bytes.TrimSpace(data)
	if bytes.Equal(t, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(t, &f.b); err == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(t, &s); err == nil {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			f.b = b
			return nil
		}
	}
	f.bad = true
	return nil
}

func anyBad(cs ...counter) bool {
	for _, c := range cs {
		if c.bad {
			return true
		}
	}
	return false
}

// Decode maps a raw response body onto an Envelope. page and limit are the
// values that were requested; they fill gaps in the upstream metadata.
// Decode never fails: anything it cannot recognise becomes ShapeUnknown.
func Decode(body []byte, page, limit int) Envelope {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return unknown()
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return unknown()
		}
		return decodeBareArray(items, page, limit)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return unknown()
		}
		if present(obj["data"]) && isObject(obj["pagination"]) {
			return decodeCanonical(obj, page, limit)
		}
		if present(obj["patients"]) {
			return decodeAlternate(obj, trimmed, page, limit)
		}
	}
	return unknown()
}

func decodeCanonical(obj map[string]json.RawMessage, page, limit int) Envelope {
	var p canonicalPagination
	malformed := json.Unmarshal(obj["pagination"], &p) != nil

	env := Envelope{
		Page:        p.Page.n,
		Limit:       p.Limit.n,
		Total:       p.Total.n,
		TotalPages:  p.TotalPages.n,
		HasNext:     p.HasNext.b,
		HasPrevious: p.HasPrevious.b,
		Shape:       ShapeCanonical,
		MalformedPagination: malformed ||
			anyBad(p.Page, p.Limit, p.Total, p.TotalPages) ||
			p.HasNext.bad || p.HasPrevious.bad,
	}
	if env.Page == 0 {
		env.Page = page
	}
	if env.Limit == 0 {
		env.Limit = limit
	}
	env.Records, env.Skipped, env.MalformedRecords = decodeRecords(obj["data"])
	return env
}

func decodeAlternate(obj map[string]json.RawMessage, body []byte, page, limit int) Envelope {
	var meta alternateMeta
	malformed := json.Unmarshal(body, &meta) != nil

	total := meta.TotalRecords.n
	perPage := meta.PerPage.n
	if perPage <= 0 {
		perPage = limit
	}
	current := meta.CurrentPage.n
	if current <= 0 {
		current = page
	}
	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	env := Envelope{
		Page:        current,
		Limit:       perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     current < totalPages,
		HasPrevious: current > 1,
		Shape:       ShapeAlternate,
		MalformedPagination: malformed ||
			anyBad(meta.TotalRecords, meta.PerPage, meta.CurrentPage),
	}
	env.Records, env.Skipped, env.MalformedRecords = decodeRecords(obj["patients"])
	return env
}

func decodeBareArray(items []json.RawMessage, page, limit int) Envelope {
	records, skipped := decodeItems(items)
	return Envelope{
		Records:     records,
		Page:        page,
		Limit:       limit,
		Total:       len(items),
		TotalPages:  UnboundedPages,
		HasNext:     len(items) > 0,
		HasPrevious: page > 1,
		Shape:       ShapeBareArray,
		Skipped:     skipped,
	}
}

// unknown is the terminal empty page: no records, zero counters, no next page.
func unknown() Envelope {
	return Envelope{Shape: ShapeUnknown}
}

// decodeRecords decodes a records member. A member that is not an array
// yields no records and malformed == true.
func decodeRecords(raw json.RawMessage) (records []model.Patient, skipped int, malformed bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, true
	}
	records, skipped = decodeItems(items)
	return records, skipped, false
}

func decodeItems(items []json.RawMessage) ([]model.Patient, int) {
	records := make([]model.Patient, 0, len(items))
	skipped := 0
	for _, item := range items {
		var p model.Patient
		if err := json.Unmarshal(item, &p); err != nil {
			skipped++
			continue
		}
		records = append(records, p)
	}
	return records, skipped
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}
