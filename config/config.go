// Package config defines the JSON configuration of proximity queries and the proxima cache.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// Budget types.
const (
	BudgetTime     = "time"
	BudgetAccuracy = "accuracy"
)

// Query modes a cache can be built with.
const (
	QueryModeAll           = "all"
	QueryModeSkipSymmetric = "skip_symmetric"
)

// BVH volume types.
const (
	VolumeAABB   = "aabb"
	VolumeSphere = "sphere"
)

// BudgetConfig describes how long a proxima refinement may run.
type BudgetConfig struct {
	Type     string  `json:"type"`
	TimeMS   int     `json:"time_ms,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// UnmarshalJSON replaces the whole budget, so a configured budget never inherits fields of the default one.
func (b *BudgetConfig) UnmarshalJSON(data []byte) error {
	type budgetConfig BudgetConfig
	var raw budgetConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = BudgetConfig(raw)
	return nil
}

// Duration returns the time budget.
func (b BudgetConfig) Duration() time.Duration {
	return time.Duration(b.TimeMS) * time.Millisecond
}

// Validate ensures all parts of the config are valid.
func (b BudgetConfig) Validate(path string) error {
	switch b.Type {
	case BudgetTime:
		if b.TimeMS < 0 {
			return goutils.NewConfigValidationError(path, errors.Errorf("time_ms must be non-negative, got %d", b.TimeMS))
		}
	case BudgetAccuracy:
		if b.Accuracy < 0 {
			return goutils.NewConfigValidationError(path, errors.Errorf("accuracy must be non-negative, got %v", b.Accuracy))
		}
	case "":
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	default:
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown budget type %q", b.Type))
	}
	return nil
}

// QueryConfig configures group queries and the proxima cache.
type QueryConfig struct {
	Interpolation    float64      `json:"interpolation"`
	CutoffDistance   float64      `json:"cutoff_distance"`
	PNorm            float64      `json:"p_norm"`
	LossThreshold    float64      `json:"loss_threshold"`
	Budget           BudgetConfig `json:"budget"`
	BVHVolume        string       `json:"bvh_volume,omitempty"`
	QueryMode        string       `json:"query_mode"`
	Parallel         bool         `json:"parallel"`
	MaxGJKIterations int          `json:"max_gjk_iterations,omitempty"`
}

// DefaultQueryConfig returns the configuration used when none is given.
func DefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		Interpolation:  0,
		CutoffDistance: 0.5,
		PNorm:          15,
		LossThreshold:  0.5,
		Budget:         BudgetConfig{Type: BudgetAccuracy, Accuracy: 0.01},
		BVHVolume:      VolumeAABB,
		QueryMode:      QueryModeSkipSymmetric,
	}
}

// Validate returns every problem with the config at once.
func (c *QueryConfig) Validate(path string) error {
	var errs error
	if c.Interpolation < 0 || c.Interpolation > 1 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("interpolation must be within [0, 1], got %v", c.Interpolation)))
	}
	if math.IsNaN(c.CutoffDistance) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.New("cutoff_distance must be a number")))
	}
	if c.PNorm <= 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("p_norm must be positive, got %v", c.PNorm)))
	}
	if err := c.Budget.Validate(fmt.Sprintf("%s.%s", path, "budget")); err != nil {
		errs = multierr.Append(errs, err)
	}
	switch c.BVHVolume {
	case "", VolumeAABB, VolumeSphere:
	default:
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("unknown bvh_volume %q", c.BVHVolume)))
	}
	switch c.QueryMode {
	case QueryModeAll, QueryModeSkipSymmetric:
	case "":
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "query_mode"))
	default:
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("unknown query_mode %q", c.QueryMode)))
	}
	if c.MaxGJKIterations < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("max_gjk_iterations must be non-negative, got %d", c.MaxGJKIterations)))
	}
	return errs
}

// FromAttributes decodes an attribute map over the defaults and validates the result.
func FromAttributes(attributes map[string]interface{}) (*QueryConfig, error) {
	conf := DefaultQueryConfig()
	if _, ok := attributes["budget"]; ok {
		conf.Budget = BudgetConfig{}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: conf, ErrorUnused: true})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode query config attributes")
	}
	if err := conf.Validate("query"); err != nil {
		return nil, err
	}
	return conf, nil
}
