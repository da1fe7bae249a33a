package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

const (
	timestampColumn = "timestamp"
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// FileStore keeps one CSV file per category and calendar date under Dir,
// named <category>_<YYYY-MM-DD>.csv with a leading timestamp column.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(category Category, date time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", category, date.Format(dateLayout)))
}

// Save writes every table for date, creating Dir if needed.
func (s *FileStore) Save(date time.Time, tables Tables) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	for _, category := range AllCategories {
		table, ok := tables[category]
		if !ok {
			continue
		}
		if err := s.writeTable(s.path(category, date), table); err != nil {
			return fmt.Errorf("saving %s table: %w", category, err)
		}
	}
	return nil
}

func (s *FileStore) writeTable(path string, table *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	columns := table.Columns()
	timed := len(table.Timestamps) > 0

	header := columns
	if timed {
		header = append([]string{timestampColumn}, columns...)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for row := 0; row < table.Len(); row++ {
		i := 0
		if timed {
			record[0] = table.Timestamps[row].Format(timestampLayout)
			i = 1
		}
		for _, c := range columns {
			values, _ := table.Column(c)
			record[i] = strconv.FormatFloat(values[row], 'g', -1, 64)
			i++
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Load reads every category file present for date. Categories without a
// file are simply absent from the result; no files at all is a NoData error.
func (s *FileStore) Load(date time.Time) (Tables, error) {
	tables := make(Tables)
	for _, category := range AllCategories {
		path := s.path(category, date)
		table, err := readTable(path, category)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("loading %s table: %w", category, err)
		}
		tables[category] = table
	}
	if len(tables) == 0 {
		return nil, apperrors.NoData.Explain("no measurement files for %s in %s", date.Format(dateLayout), s.Dir)
	}
	return tables, nil
}

func readTable(path string, category Category) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return NewTable(category), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	table := NewTable(category)
	for col, name := range header {
		if name == timestampColumn {
			ts, err := parseTimestamps(records, col)
			if err != nil {
				return nil, err
			}
			table.Timestamps = ts
			continue
		}
		// Columns that are not entirely numeric are skipped, like the
		// numeric-only selection the feature assembly relies on.
		if values, ok := parseNumeric(records, col); ok {
			table.SetColumn(name, values)
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func parseTimestamps(records [][]string, col int) ([]time.Time, error) {
	out := make([]time.Time, len(records))
	for i, rec := range records {
		ts, err := ParseTimestamp(rec[col])
		if err != nil {
			return nil, apperrors.InvalidInput.Explain("row %d: %v", i, err)
		}
		out[i] = ts
	}
	return out, nil
}

// ParseTimestamp accepts "2006-01-02 15:04:05" with optional fractional
// seconds, or RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(timestampLayout+".999999999", s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseNumeric parses a column as float64. Empty cells read as zero.
func parseNumeric(records [][]string, col int) ([]float64, bool) {
	out := make([]float64, len(records))
	for i, rec := range records {
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
