// Package record defines the journal entry model shared by storage, the
// conversational flows and the derived views.
//
// A Record is an open JSON object. Every persisted record carries a "date"
// field in ISO form (YYYY-MM-DD); the remaining keys depend on the category.
package record

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used for the "date" field.
const DateLayout = "2006-01-02"

// Well-known record keys.
const (
	KeyDate     = "date"
	KeySummary  = "summary"
	KeyDream    = "dream"
	KeyAnalysis = "analysis"
	KeyMetrics  = "metrics"

	MetricIntensity = "intensity"
	MetricEmotions  = "emotions"
	MetricCIMScore  = "cim_score"
)

// EmptySummary is stored when a mood check-in ends without a summary.
const EmptySummary = "(empty)"

// NoAnalysis is stored as the analysis of quick-label dream records.
const NoAnalysis = "(none)"

// ErrInvalidDate is returned when a record has no usable "date" field.
var ErrInvalidDate = errors.New("record: missing or invalid date")

// Category names a per-user record stream.
type Category string

const (
	CategoryMood   Category = "mood"
	CategoryDreams Category = "dreams"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryMood, CategoryDreams}

// Singular returns the file-name prefix used for the category.
func (c Category) Singular() string {
	switch c {
	case CategoryDreams:
		return "dream"
	default:
		return string(c)
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryMood || c == CategoryDreams
}

// Record is one journal entry as stored on disk.
type Record map[string]any

// New returns a record dated d.
func New(d time.Time) Record {
	return Record{KeyDate: FormatDate(d)}
}

// Date returns the record's ISO date, if present and well formed.
func (r Record) Date() (string, bool) {
	s, ok := r[KeyDate].(string)
	if !ok || s == "" {
		return "", false
	}
	if _, err := ParseDate(s); err != nil {
		return "", false
	}
	return s, true
}

// Validate checks the invariants every persisted record must satisfy.
func (r Record) Validate() error {
	if _, ok := r.Date(); !ok {
		return ErrInvalidDate
	}
	return nil
}

// String returns the string stored under key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Number returns the numeric value stored under key. JSON null, missing keys
// and non-numeric values report false.
func (r Record) Number(key string) (float64, bool) {
	return toFloat(r[key])
}

// Metrics returns the record's metrics object, or nil.
func (r Record) Metrics() map[string]any {
	m, _ := r[KeyMetrics].(map[string]any)
	return m
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
