package scoring

import (
	"fmt"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/explain"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/features"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/model"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/recommend"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/risk"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/types"
)

// ScoreResult is the full scoring response for one customer. Created once
// per request and never mutated.
type ScoreResult struct {
	Probability     float64          `json:"probability"`
	Tier            risk.Tier        `json:"tier"`
	Drivers         []explain.Driver `json:"drivers"`
	Recommendations []string         `json:"recommendations"`
}

// Pipeline holds the immutable scoring snapshot: model, schema, tier
// thresholds, and explanation length. Built once at startup; all methods
// are pure over it, so concurrent requests need no locking.
type Pipeline struct {
	model      *model.Model
	schema     *schema.FeatureSchema
	thresholds risk.Thresholds
	topN       int
	mapper     *recommend.Mapper
}

// NewPipeline validates the snapshot's cross-artifact contracts before any
// request is served: thresholds form a real partition, topN fits the schema
// width, and the model's column order is exactly the schema's expansion.
func NewPipeline(m *model.Model, s *schema.FeatureSchema, thresholds risk.Thresholds, topN int, mapper *recommend.Mapper) (*Pipeline, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if topN < 1 || topN > s.Width() {
		return nil, errors.NewInvalidArgumentError(
			"topN must be between 1 and the schema column count",
			fmt.Sprintf("topN=%d columns=%d", topN, s.Width()))
	}

	columns := s.Columns()
	modelColumns := m.Columns()
	if len(columns) != len(modelColumns) {
		return nil, errors.NewModelLoadError(
			fmt.Sprintf("schema expands to %d columns but model was fitted on %d", len(columns), len(modelColumns)), nil)
	}
	for i := range columns {
		if columns[i] != modelColumns[i] {
			return nil, errors.NewModelLoadError(
				fmt.Sprintf("column %d mismatch: schema %q vs model %q", i, columns[i], modelColumns[i]), nil)
		}
	}

	if mapper == nil {
		mapper = recommend.DefaultMapper()
	}

	return &Pipeline{
		model:      m,
		schema:     s,
		thresholds: thresholds,
		topN:       topN,
		mapper:     mapper,
	}, nil
}

// Score runs the full pipeline for one customer: build vector, predict
// probability, classify tier, rank drivers, map recommendations.
// Deterministic: identical input always yields the identical result.
func (p *Pipeline) Score(record types.CustomerRecord) (ScoreResult, error) {
	vector, err := features.Build(record, p.schema)
	if err != nil {
		return ScoreResult{}, err
	}

	probability, err := p.model.Predict(vector)
	if err != nil {
		return ScoreResult{}, err
	}

	tier := p.thresholds.Classify(probability)

	drivers, err := explain.TopDrivers(vector, p.model, p.topN)
	if err != nil {
		return ScoreResult{}, err
	}

	return ScoreResult{
		Probability:     probability,
		Tier:            tier,
		Drivers:         drivers,
		Recommendations: p.mapper.Recommend(tier, drivers),
	}, nil
}

// Baseline returns the model's intercept-only probability
func (p *Pipeline) Baseline() float64 {
	return p.model.Baseline()
}

// Schema exposes the feature layout for form rendering
func (p *Pipeline) Schema() *schema.FeatureSchema {
	return p.schema
}

// Thresholds returns the configured tier partition
func (p *Pipeline) Thresholds() risk.Thresholds {
	return p.thresholds
}

// TopN returns the configured explanation length
func (p *Pipeline) TopN() int {
	return p.topN
}
