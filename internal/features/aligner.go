package features

import (
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
)

// Aligner merges feature tables into one matrix aligned row-for-row with
// the mindset table.
//
// Alignment is positional: row i of every table describes the same hour.
// Every present feature table must therefore have exactly as many rows as
// the mindset table. With StrictTimestamps set, timestamps must also match
// row by row wherever both tables carry them.
type Aligner struct {
	Schema           Schema
	StrictTimestamps bool

	logger *zap.SugaredLogger
}

// NewAligner creates an aligner for schema.
func NewAligner(schema Schema, strictTimestamps bool, logger *zap.SugaredLogger) *Aligner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Aligner{
		Schema:           schema,
		StrictTimestamps: strictTimestamps,
		logger:           logger,
	}
}

// Align produces a FeatureMatrix with one row per mindset row and one column
// per schema feature. Missing tables or columns yield all-zero columns.
func (a *Aligner) Align(tables dataset.Tables) (Matrix, error) {
	if err := a.Schema.Validate(); err != nil {
		return nil, err
	}
	mindset, err := mindsetTable(tables)
	if err != nil {
		return nil, err
	}
	n := mindset.Len()

	for _, c := range dataset.FeatureCategories {
		table, ok := tables[c]
		if !ok || table == nil {
			continue
		}
		if err := a.checkAligned(mindset, table); err != nil {
			return nil, err
		}
	}

	X := NewMatrix(n, len(a.Schema))
	var zeroFilled []string
	for j, f := range a.Schema {
		values, ok := tables[f.Category].Column(f.Column)
		if !ok {
			zeroFilled = append(zeroFilled, f.String())
			continue
		}
		for i := 0; i < n; i++ {
			X[i][j] = values[i]
		}
	}

	if len(zeroFilled) > 0 {
		a.logger.Debugw("Zero-filled missing feature columns",
			"columns", zeroFilled,
			"rows", n,
		)
	}
	return X, nil
}

func (a *Aligner) checkAligned(mindset, table *dataset.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	n := mindset.Len()
	if table.Len() != n {
		return apperrors.Misaligned.
			Explain("%s table has %d rows, mindset table has %d", table.Category, table.Len(), n).
			WithField("rows", string(table.Category), fmt.Sprintf("%d != %d", table.Len(), n))
	}
	if !a.StrictTimestamps || len(table.Timestamps) == 0 || len(mindset.Timestamps) == 0 {
		return nil
	}
	for i := range mindset.Timestamps {
		if !table.Timestamps[i].Equal(mindset.Timestamps[i]) {
			return apperrors.Misaligned.
				Explain("%s row %d at %s, mindset row at %s", table.Category, i, table.Timestamps[i], mindset.Timestamps[i]).
				WithField("timestamp", string(table.Category), fmt.Sprintf("row %d", i))
		}
	}
	return nil
}

// Labels extracts the target columns from the mindset table, one row per
// mindset row, in dataset.Targets order.
func Labels(tables dataset.Tables) (Matrix, error) {
	mindset, err := mindsetTable(tables)
	if err != nil {
		return nil, err
	}
	n := mindset.Len()
	Y := NewMatrix(n, len(dataset.Targets))
	for j, target := range dataset.Targets {
		values, ok := mindset.Column(target)
		if !ok {
			return nil, apperrors.NoData.
				Explain("mindset table has no %q column", target).
				WithField("missing", target, "target column absent")
		}
		for i := 0; i < n; i++ {
			Y[i][j] = values[i]
		}
	}
	return Y, nil
}

func mindsetTable(tables dataset.Tables) (*dataset.Table, error) {
	mindset, ok := tables[dataset.Mindset]
	if !ok || mindset == nil {
		return nil, apperrors.NoData.Explain("no mindset table supplied")
	}
	if err := mindset.Validate(); err != nil {
		return nil, err
	}
	return mindset, nil
}
