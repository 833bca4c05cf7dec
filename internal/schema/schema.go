package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// FeatureKind tags how a schema feature is encoded
type FeatureKind string

const (
	KindNumeric     FeatureKind = "numeric"
	KindCategorical FeatureKind = "categorical"
)

// Feature describes one declared input feature. Numeric features carry the
// fitted scaler statistics; categorical features carry the enumerated level
// set in encoding order.
type Feature struct {
	Name   string      `json:"name"`
	Kind   FeatureKind `json:"kind"`
	Mean   float64     `json:"mean,omitempty"`
	Scale  float64     `json:"scale,omitempty"`
	Levels []string    `json:"levels,omitempty"`
}

// FeatureSchema is the fixed, ordered feature layout the model was fitted
// on. Immutable after construction; the expanded column order is
// load-bearing because the model has positions, not names.
type FeatureSchema struct {
	features []Feature
	columns  []string
}

// New validates the declared features and precomputes the expanded one-hot
// column order. A zero or negative scale and an empty level set are
// construction defects, rejected here rather than per scoring call.
func New(features []Feature) (*FeatureSchema, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("schema must declare at least one feature")
	}

	seen := make(map[string]bool, len(features))
	columns := make([]string, 0, len(features))

	for _, f := range features {
		if f.Name == "" {
			return nil, fmt.Errorf("schema contains a feature with an empty name")
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate feature %q in schema", f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case KindNumeric:
			if f.Scale <= 0 {
				return nil, fmt.Errorf("numeric feature %q has non-positive scale %v", f.Name, f.Scale)
			}
			columns = append(columns, f.Name)
		case KindCategorical:
			if len(f.Levels) == 0 {
				return nil, fmt.Errorf("categorical feature %q has no levels", f.Name)
			}
			levelSeen := make(map[string]bool, len(f.Levels))
			for _, level := range f.Levels {
				if levelSeen[level] {
					return nil, fmt.Errorf("categorical feature %q repeats level %q", f.Name, level)
				}
				levelSeen[level] = true
				columns = append(columns, ColumnName(f.Name, level))
			}
		default:
			return nil, fmt.Errorf("feature %q has unknown kind %q", f.Name, f.Kind)
		}
	}

	return &FeatureSchema{features: features, columns: columns}, nil
}

// Load reads a schema artifact from a JSON file
func Load(path string) (*FeatureSchema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema artifact: %w", err)
	}
	defer file.Close()

	var artifact struct {
		Features []Feature `json:"features"`
	}
	if err := json.NewDecoder(file).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode schema artifact: %w", err)
	}

	return New(artifact.Features)
}

// ColumnName returns the expanded column name for a categorical level
func ColumnName(feature, level string) string {
	return feature + "=" + level
}

// Features returns the declared features in schema order
func (s *FeatureSchema) Features() []Feature {
	return s.features
}

// Columns returns the expanded column names in vector order
func (s *FeatureSchema) Columns() []string {
	return s.columns
}

// Width returns the length every built feature vector must have
func (s *FeatureSchema) Width() int {
	return len(s.columns)
}
