package preprocess

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tbdelay/platform/pkg/schema"
)

var ErrNotFitted = errors.New("preprocessor not fitted")

// ErrAllMissing is returned when a column has no observed value to learn an
// imputation statistic from.
var ErrAllMissing = errors.New("column has no observed values")

type MedianImputer struct {
	Medians map[string]float64 `json:"medians"`
}

func (m *MedianImputer) Fit(columns []string, rows []schema.Observation) error {
	m.Medians = make(map[string]float64, len(columns))
	for _, col := range columns {
		var values []float64
		for _, obs := range rows {
			if v, ok := obs.Number(col); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return fmt.Errorf("%s: %w", col, ErrAllMissing)
		}
		m.Medians[col] = median(values)
	}
	return nil
}

func (m *MedianImputer) Value(col string, obs schema.Observation) float64 {
	if v, ok := obs.Number(col); ok {
		return v
	}
	return m.Medians[col]
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

type MostFrequentImputer struct {
	Modes map[string]string `json:"modes"`
}

// Fit learns each column's most frequent value; ties go to the smallest
// value in lexical order.
func (m *MostFrequentImputer) Fit(columns []string, rows []schema.Observation) error {
	m.Modes = make(map[string]string, len(columns))
	for _, col := range columns {
		counts := make(map[string]int)
		for _, obs := range rows {
			if v, ok := obs.Category(col); ok {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			return fmt.Errorf("%s: %w", col, ErrAllMissing)
		}
		best, bestCount := "", -1
		for v, c := range counts {
			if c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}
		m.Modes[col] = best
	}
	return nil
}

func (m *MostFrequentImputer) Value(col string, obs schema.Observation) string {
	if v, ok := obs.Category(col); ok {
		return v
	}
	return m.Modes[col]
}

// OneHotEncoder expands categorical columns into one indicator per category
// seen during fit. Unseen categories encode as all zeros.
type OneHotEncoder struct {
	Categories map[string][]string `json:"categories"`
}

func (e *OneHotEncoder) Fit(columns []string, values map[string][]string) {
	e.Categories = make(map[string][]string, len(columns))
	for _, col := range columns {
		seen := make(map[string]struct{})
		for _, v := range values[col] {
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[col] = cats
	}
}

func (e *OneHotEncoder) Encode(col, value string, out []float64) []float64 {
	for _, cat := range e.Categories[col] {
		if cat == value {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// ColumnTransformer imputes numeric columns with the median, imputes and
// one-hot encodes categorical columns, and passes the remaining columns
// through. Output order is numeric, then encoded, then passthrough.
type ColumnTransformer struct {
	NumericColumns     []string            `json:"numeric_columns"`
	CategoricalColumns []string            `json:"categorical_columns"`
	PassthroughColumns []string            `json:"passthrough_columns"`
	Numeric            MedianImputer       `json:"numeric_imputer"`
	Categorical        MostFrequentImputer `json:"categorical_imputer"`
	Encoder            OneHotEncoder       `json:"encoder"`
	Fitted             bool                `json:"fitted"`
}

func NewColumnTransformer(numeric, categorical, passthrough []string) *ColumnTransformer {
	return &ColumnTransformer{
		NumericColumns:     numeric,
		CategoricalColumns: categorical,
		PassthroughColumns: passthrough,
	}
}

// FromSchema partitions the shared feature schema.
func FromSchema() *ColumnTransformer {
	return NewColumnTransformer(schema.NumericNames(), schema.CategoricalNames(), schema.PassthroughNames())
}

func (c *ColumnTransformer) Fit(rows []schema.Observation) error {
	if err := c.Numeric.Fit(c.NumericColumns, rows); err != nil {
		return fmt.Errorf("numeric imputer: %w", err)
	}
	if err := c.Categorical.Fit(c.CategoricalColumns, rows); err != nil {
		return fmt.Errorf("categorical imputer: %w", err)
	}

	imputed := make(map[string][]string, len(c.CategoricalColumns))
	for _, col := range c.CategoricalColumns {
		for _, obs := range rows {
			imputed[col] = append(imputed[col], c.Categorical.Value(col, obs))
		}
	}
	c.Encoder.Fit(c.CategoricalColumns, imputed)
	c.Fitted = true
	return nil
}

func (c *ColumnTransformer) Transform(obs schema.Observation) ([]float64, error) {
	if !c.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, 0, c.Width())
	for _, col := range c.NumericColumns {
		out = append(out, c.Numeric.Value(col, obs))
	}
	for _, col := range c.CategoricalColumns {
		out = c.Encoder.Encode(col, c.Categorical.Value(col, obs), out)
	}
	for _, col := range c.PassthroughColumns {
		v, ok := obs.Number(col)
		if !ok {
			return nil, fmt.Errorf("passthrough column %s has no value", col)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *ColumnTransformer) TransformAll(rows []schema.Observation) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, obs := range rows {
		sample, err := c.Transform(obs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = sample
	}
	return out, nil
}

// Width is the number of output columns.
func (c *ColumnTransformer) Width() int {
	width := len(c.NumericColumns) + len(c.PassthroughColumns)
	for _, col := range c.CategoricalColumns {
		width += len(c.Encoder.Categories[col])
	}
	return width
}

// FeatureNames labels each output column with its transformer prefix.
func (c *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, c.Width())
	for _, col := range c.NumericColumns {
		names = append(names, "num__"+col)
	}
	for _, col := range c.CategoricalColumns {
		for _, cat := range c.Encoder.Categories[col] {
			names = append(names, fmt.Sprintf("cat__%s_%s", col, cat))
		}
	}
	for _, col := range c.PassthroughColumns {
		names = append(names, "remainder__"+col)
	}
	return names
}

// InputColumns lists the raw columns the transformer consumes.
func (c *ColumnTransformer) InputColumns() []string {
	cols := make([]string, 0, len(c.NumericColumns)+len(c.CategoricalColumns)+len(c.PassthroughColumns))
	cols = append(cols, c.NumericColumns...)
	cols = append(cols, c.CategoricalColumns...)
	cols = append(cols, c.PassthroughColumns...)
	return cols
}
