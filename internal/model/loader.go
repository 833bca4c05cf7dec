package model

import (
	"encoding/json"
	"os"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
)

// artifact is the serialized model representation: weights keyed by expanded
// column name, an intercept, and the fitted column order.
type artifact struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
	Columns   []string           `json:"columns"`
}

// Load reads a model artifact from a JSON file. Any failure here is
// startup-fatal; the service must not score against a partial model.
func Load(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewModelLoadError("failed to open model artifact "+path, err)
	}
	defer file.Close()

	var a artifact
	if err := json.NewDecoder(file).Decode(&a); err != nil {
		return nil, errors.NewModelLoadError("failed to decode model artifact "+path, err)
	}

	return New(a.Columns, a.Weights, a.Intercept)
}
