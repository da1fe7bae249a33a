// Package dataset holds per-category hourly measurement tables and the
// upstream collaborators that produce them: a seeded simulator and a
// date-keyed file store.
package dataset

import (
	"fmt"
	"time"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// Category is one data source stream.
type Category string

const (
	Activity      Category = "activity"
	Social        Category = "social"
	Physiological Category = "physiological"
	Environmental Category = "environmental"
	Mindset       Category = "mindset"
)

// FeatureCategories is the fixed iteration order used when resolving
// feature columns. Mindset is excluded: it only supplies labels.
var FeatureCategories = []Category{Activity, Social, Physiological, Environmental}

// AllCategories lists every category the collector produces.
var AllCategories = []Category{Activity, Social, Physiological, Environmental, Mindset}

// Targets are the mindset columns predicted by the model, in output order.
var Targets = []string{"mood_score", "energy_level", "focus_level", "stress_level"}

// Tables maps a category to its measurement table for one collection window.
type Tables map[Category]*Table

// Table is an ordered sequence of timestamped numeric records for one
// category. Timestamps may be empty for untimed tables.
type Table struct {
	Category   Category
	Timestamps []time.Time

	columns []string
	values  map[string][]float64
}

// NewTable creates an empty table declaring the given numeric columns.
func NewTable(category Category, columns ...string) *Table {
	t := &Table{
		Category: category,
		values:   make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		if _, ok := t.values[c]; ok {
			continue
		}
		t.columns = append(t.columns, c)
		t.values[c] = nil
	}
	return t
}

// Columns returns the declared numeric column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	if len(t.Timestamps) > 0 {
		return len(t.Timestamps)
	}
	if len(t.columns) > 0 {
		return len(t.values[t.columns[0]])
	}
	return 0
}

// Column returns the values of a column and whether it is declared.
func (t *Table) Column(name string) ([]float64, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[name]
	return v, ok
}

// HasColumn reports whether the column is declared.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// AppendRow appends one record. values must follow Columns order.
func (t *Table) AppendRow(ts time.Time, values ...float64) error {
	if len(values) != len(t.columns) {
		return apperrors.InvalidInput.Explain("%s: row has %d values, table declares %d columns",
			t.Category, len(values), len(t.columns))
	}
	t.Timestamps = append(t.Timestamps, ts)
	for i, c := range t.columns {
		t.values[c] = append(t.values[c], values[i])
	}
	return nil
}

// SetColumn replaces (or declares) a column.
func (t *Table) SetColumn(name string, values []float64) {
	if t.values == nil {
		t.values = make(map[string][]float64)
	}
	if _, ok := t.values[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.values[name] = values
}

// Validate checks that all columns have one value per row and that
// timestamps never go backwards.
func (t *Table) Validate() error {
	n := t.Len()
	for _, c := range t.columns {
		if got := len(t.values[c]); got != n {
			return apperrors.InvalidInput.
				Explain("%s: column %q has %d values, want %d", t.Category, c, got, n).
				WithField("length", c, fmt.Sprintf("%d != %d", got, n))
		}
	}
	for i := 1; i < len(t.Timestamps); i++ {
		if t.Timestamps[i].Before(t.Timestamps[i-1]) {
			return apperrors.InvalidInput.Explain("%s: timestamp at row %d (%s) precedes row %d (%s)",
				t.Category, i, t.Timestamps[i].Format(time.RFC3339), i-1, t.Timestamps[i-1].Format(time.RFC3339))
		}
	}
	return nil
}
