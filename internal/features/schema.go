// Package features turns per-category measurement tables into the aligned,
// scaled and windowed matrices consumed by the sequence predictor.
package features

import (
	"fmt"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
)

// Feature names one input column by its source category.
type Feature struct {
	Category dataset.Category `yaml:"category" json:"category"`
	Column   string           `yaml:"column" json:"column"`
}

func (f Feature) String() string {
	return fmt.Sprintf("%s.%s", f.Category, f.Column)
}

// Schema is the ordered list of feature columns. Column order in every
// FeatureMatrix follows the schema exactly.
type Schema []Feature

// DefaultSchema lists the columns produced by the collector, in category
// iteration order.
func DefaultSchema() Schema {
	var s Schema
	for _, c := range dataset.FeatureCategories {
		for _, col := range dataset.SimulatedColumns(c) {
			s = append(s, Feature{Category: c, Column: col})
		}
	}
	return s
}

// DiscoverSchema builds a schema from whatever numeric columns the tables
// declare. Categories are visited in the fixed iteration order and the
// first category to declare a column name owns it.
func DiscoverSchema(tables dataset.Tables) Schema {
	seen := make(map[string]bool)
	var s Schema
	for _, c := range dataset.FeatureCategories {
		table, ok := tables[c]
		if !ok || table == nil {
			continue
		}
		for _, col := range table.Columns() {
			if seen[col] {
				continue
			}
			seen[col] = true
			s = append(s, Feature{Category: c, Column: col})
		}
	}
	return s
}

// Validate rejects empty schemas, label-category features and repeated
// column names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return apperrors.InvalidInput.Explain("feature schema is empty")
	}
	seen := make(map[string]dataset.Category, len(s))
	allowed := make(map[dataset.Category]bool, len(dataset.FeatureCategories))
	for _, c := range dataset.FeatureCategories {
		allowed[c] = true
	}
	for _, f := range s {
		if !allowed[f.Category] {
			return apperrors.InvalidInput.Explain("feature %s: category is not a feature source", f)
		}
		if owner, dup := seen[f.Column]; dup {
			return apperrors.InvalidInput.Explain("feature %s: column already provided by %s", f, owner)
		}
		seen[f.Column] = f.Category
	}
	return nil
}

// Equal reports whether two schemas list the same features in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
