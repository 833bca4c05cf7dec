package features

import (
	"encoding/json"
	"fmt"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/types"
)

// Build maps a raw customer record into the fixed-order numeric vector the
// model expects, applying the schema's fitted scaling and one-hot encoding.
// Output order is exactly the schema's expanded column order. Pure; the
// record and schema are never mutated.
//
// Missing numeric or categorical features fail with a missing-feature
// error; categorical values outside the schema's level set fail with an
// unknown-category error. Nothing is silently defaulted.
func Build(record types.CustomerRecord, s *schema.FeatureSchema) ([]float64, error) {
	vector := make([]float64, 0, s.Width())

	for _, f := range s.Features() {
		raw, ok := record[f.Name]
		if !ok || raw == nil {
			return nil, errors.NewMissingFeatureError(f.Name)
		}

		switch f.Kind {
		case schema.KindNumeric:
			value, err := numericValue(f.Name, raw)
			if err != nil {
				return nil, err
			}
			vector = append(vector, (value-f.Mean)/f.Scale)

		case schema.KindCategorical:
			level, err := categoricalValue(f.Name, raw)
			if err != nil {
				return nil, err
			}

			matched := false
			for _, l := range f.Levels {
				if l == level {
					vector = append(vector, 1.0)
					matched = true
				} else {
					vector = append(vector, 0.0)
				}
			}
			if !matched {
				return nil, errors.NewUnknownCategoryError(f.Name, level)
			}
		}
	}

	return vector, nil
}

// numericValue coerces the JSON-decoded representation of a numeric
// attribute. Booleans are accepted as 0/1 indicator features.
func numericValue(feature string, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		value, err := v.Float64()
		if err != nil {
			return 0, errors.NewInvalidArgumentError(
				fmt.Sprintf("feature %q is not a valid number", feature), v.String())
		}
		return value, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return 0, errors.NewInvalidArgumentError(
			fmt.Sprintf("feature %q expects a numeric value", feature), fmt.Sprintf("%v", raw))
	}
}

// categoricalValue coerces the raw representation of a categorical attribute
func categoricalValue(feature string, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		return "", errors.NewInvalidArgumentError(
			fmt.Sprintf("feature %q expects a categorical value", feature), fmt.Sprintf("%v", raw))
	}
}
