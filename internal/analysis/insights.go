package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
)

// Insight summarizes one predicted target over the day.
type Insight struct {
	Target string
	Mean   decimal.Decimal
	// Std is the sample standard deviation; invalid with fewer than two
	// predictions.
	Std decimal.NullDecimal
}

func (i Insight) String() string {
	std := "nan"
	if i.Std.Valid {
		std = i.Std.Decimal.StringFixed(2)
	}
	return fmt.Sprintf("Average %s: %s (std: %s)",
		strings.ReplaceAll(i.Target, "_", " "), i.Mean.StringFixed(2), std)
}

// Insights returns the mean and standard deviation of every target, rounded
// to two decimals.
func Insights(r *Result) ([]Insight, error) {
	if r == nil || r.Values.Rows() == 0 {
		return nil, apperrors.InsufficientData.Explain("no predictions to summarize")
	}
	out := make([]Insight, 0, len(r.Targets))
	for j, target := range r.Targets {
		mean, std := meanStd(r.Values.Column(j))
		insight := Insight{
			Target: target,
			Mean:   decimal.NewFromFloat(mean).Round(2),
		}
		if !math.IsNaN(std) {
			insight.Std = decimal.NewNullDecimal(decimal.NewFromFloat(std).Round(2))
		}
		out = append(out, insight)
	}
	return out, nil
}

func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if len(xs) < 2 {
		return mean, math.NaN()
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// Correlation is the Pearson coefficient between a predicted target and a
// feature column. Coefficient is NaN when either series is constant.
type Correlation struct {
	Target      string
	Feature     string
	Coefficient float64
}

// Correlations pairs every target with every numeric feature column named
// <category>_<column>. Feature row SequenceLength+i is paired with
// prediction i.
func Correlations(r *Result, tables dataset.Tables) ([]Correlation, error) {
	if r == nil || r.Values.Rows() == 0 {
		return nil, apperrors.InsufficientData.Explain("no predictions to correlate")
	}
	n, L := r.Values.Rows(), r.SequenceLength

	type feature struct {
		name   string
		values []float64
	}
	var feats []feature
	for _, c := range dataset.FeatureCategories {
		table, ok := tables[c]
		if !ok || table == nil {
			continue
		}
		for _, col := range table.Columns() {
			values, _ := table.Column(col)
			if len(values) < L+n {
				return nil, apperrors.Misaligned.Explain("%s.%s has %d rows, predictions need %d", c, col, len(values), L+n)
			}
			feats = append(feats, feature{
				name:   fmt.Sprintf("%s_%s", c, col),
				values: values[L : L+n],
			})
		}
	}

	out := make([]Correlation, 0, len(r.Targets)*len(feats))
	for j, target := range r.Targets {
		predicted := r.Values.Column(j)
		for _, f := range feats {
			out = append(out, Correlation{
				Target:      target,
				Feature:     f.name,
				Coefficient: pearson(predicted, f.values),
			})
		}
	}
	return out, nil
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || constant(x) || constant(y) {
		return math.NaN()
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	return sxy / math.Sqrt(sxx*syy)
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
