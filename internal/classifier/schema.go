package classifier

import (
	"math"
	"sort"

	"recondiag/internal/dataset"
)

// CategoricalColumn records one categorical feature and its training-time
// domain. At predict time a value outside the domain maps to the dedicated
// unseen bucket (index len(Domain)) instead of failing.
type CategoricalColumn struct {
	Name   string   `json:"name"`
	Domain []string `json:"domain"`

	index map[string]int
}

// UnseenIndex returns the bucket for values absent from the domain.
func (c *CategoricalColumn) UnseenIndex() int { return len(c.Domain) }

func (c *CategoricalColumn) encode(v string) int {
	if c.index == nil {
		c.index = make(map[string]int, len(c.Domain))
		for i, d := range c.Domain {
			c.index[d] = i
		}
	}
	if i, ok := c.index[v]; ok {
		return i
	}
	return c.UnseenIndex()
}

// FeatureSchema is the ordered feature layout recorded at training time:
// numeric columns first, then categorical columns. Predict rebuilds its
// matrix through the same schema, so column order can never drift between
// train and predict.
type FeatureSchema struct {
	Numeric     []string            `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
}

// NewSchema captures the fixed feature layout from a training frame:
// the old/new value pairs with their differences, and the four trade
// descriptors with domains read off the data (sorted for stability).
func NewSchema(f *dataset.Frame) *FeatureSchema {
	s := &FeatureSchema{
		Numeric: []string{
			dataset.ColPVOld, dataset.ColPVNew, dataset.ColPVDiff,
			dataset.ColDeltaOld, dataset.ColDeltaNew, dataset.ColDeltaDiff,
		},
	}
	for _, col := range []string{
		dataset.ColProductType, dataset.ColFundingCurve,
		dataset.ColCSAType, dataset.ColModelVersion,
	} {
		domain := f.Distinct(col)
		sort.Strings(domain)
		s.Categorical = append(s.Categorical, CategoricalColumn{Name: col, Domain: domain})
	}
	return s
}

// Width returns the feature-vector length.
func (s *FeatureSchema) Width() int { return len(s.Numeric) + len(s.Categorical) }

// CategoricalMask marks which feature positions hold category indices;
// the tree learner splits those by equality instead of threshold.
func (s *FeatureSchema) CategoricalMask() []bool {
	mask := make([]bool, s.Width())
	for i := range s.Categorical {
		mask[len(s.Numeric)+i] = true
	}
	return mask
}

// derivedNumeric maps each difference feature to the old/new pair it is
// computed from when the frame does not carry the column itself.
var derivedNumeric = map[string][2]string{
	dataset.ColPVDiff:    {dataset.ColPVOld, dataset.ColPVNew},
	dataset.ColDeltaDiff: {dataset.ColDeltaOld, dataset.ColDeltaNew},
}

// Matrix builds the feature matrix for a frame. Null numerics become NaN
// (routed down the missing side of a split); null or non-string
// categoricals fall into the unseen bucket. The difference features are
// computed as new minus old when the frame lacks the diff columns, so a
// raw extract predicts without a prior flagging pass. A column the frame
// neither declares nor can derive is a MissingColumnError.
func (s *FeatureSchema) Matrix(f *dataset.Frame) ([][]float64, error) {
	derived := make(map[string][2]string)
	for _, col := range s.Numeric {
		if f.HasColumn(col) {
			continue
		}
		if pair, ok := derivedNumeric[col]; ok && f.HasColumn(pair[0]) && f.HasColumn(pair[1]) {
			derived[col] = pair
			continue
		}
		return nil, &MissingColumnError{Column: col}
	}
	for i := range s.Categorical {
		if !f.HasColumn(s.Categorical[i].Name) {
			return nil, &MissingColumnError{Column: s.Categorical[i].Name}
		}
	}

	rows := make([][]float64, f.Len())
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		vec := make([]float64, 0, s.Width())
		for _, col := range s.Numeric {
			if pair, ok := derived[col]; ok {
				oldV, okOld := row.Number(pair[0])
				newV, okNew := row.Number(pair[1])
				if okOld && okNew {
					vec = append(vec, newV-oldV)
				} else {
					vec = append(vec, math.NaN())
				}
				continue
			}
			if v, ok := row.Number(col); ok {
				vec = append(vec, v)
			} else {
				vec = append(vec, math.NaN())
			}
		}
		for j := range s.Categorical {
			c := &s.Categorical[j]
			if v, ok := row.String(c.Name); ok {
				vec = append(vec, float64(c.encode(v)))
			} else {
				vec = append(vec, float64(c.UnseenIndex()))
			}
		}
		rows[i] = vec
	}
	return rows, nil
}
