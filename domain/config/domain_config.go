package config

import (
	"math"
	"time"

	pkgerrors "mnemo/pkg/errors"
)

// weightSumTolerance is the allowed drift when checking that the five
// salience component weights sum to 1.0.
const weightSumTolerance = 0.01

// SalienceWeights holds the relative weight of each salience component.
// The five weights must sum to 1.0 within tolerance.
type SalienceWeights struct {
	Recency    float64 `yaml:"recency" json:"recency"`
	Frequency  float64 `yaml:"frequency" json:"frequency"`
	Emotional  float64 `yaml:"emotional" json:"emotional"`
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Contextual float64 `yaml:"contextual" json:"contextual"`
}

// Sum returns the total of all component weights.
func (w SalienceWeights) Sum() float64 {
	return w.Recency + w.Frequency + w.Emotional + w.Engagement + w.Contextual
}

// Validate checks the weights sum to 1.0 within tolerance.
func (w SalienceWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > weightSumTolerance {
		return pkgerrors.NewValidationError("salience weights must sum to 1.0").
			WithDetails(map[string]interface{}{"sum": w.Sum()})
	}
	return nil
}

// EdgeThresholds holds the minimum similarity per relationship dimension
// for an edge to be proposed.
type EdgeThresholds struct {
	Semantic  float64 `yaml:"semantic" json:"semantic"`
	Temporal  float64 `yaml:"temporal" json:"temporal"`
	Emotional float64 `yaml:"emotional" json:"emotional"`
	Actor     float64 `yaml:"actor" json:"actor"`
	Causal    float64 `yaml:"causal" json:"causal"`
	Response  float64 `yaml:"response" json:"response"`
}

// EdgeMultipliers scales a dimension's similarity into an edge weight.
type EdgeMultipliers struct {
	Semantic  float64 `yaml:"semantic" json:"semantic"`
	Temporal  float64 `yaml:"temporal" json:"temporal"`
	Emotional float64 `yaml:"emotional" json:"emotional"`
	Actor     float64 `yaml:"actor" json:"actor"`
	Causal    float64 `yaml:"causal" json:"causal"`
	Response  float64 `yaml:"response" json:"response"`
}

// MemoryConfig holds all configurable business rules for the memory subsystem
type MemoryConfig struct {
	// Salience scoring
	Weights             SalienceWeights
	RecencyHalfLife     time.Duration // half-life for recency decay
	FrequencyWindowDays int           // how far back rarity is judged
	HistoryLimit        int           // max events fed to the scorer

	// Graph construction
	MaxConnections   int // strongest edges retained per node
	Thresholds       EdgeThresholds
	Multipliers      EdgeMultipliers
	TemporalWindow   time.Duration // beyond this, temporal similarity is zero
	CausalWindow     time.Duration // max gap for causal ordering
	ResponseWindow   time.Duration // max gap for question/answer pairing
	MaxSimilarityScan int          // cap on candidate nodes compared per insert

	// Reflection
	MinReflectionEvents int           // below this a placeholder reflection is returned
	ThreadMaxGap        time.Duration // conversation thread split gap

	// Retention
	RetentionDays int
}

// DefaultMemoryConfig returns the default configuration
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		Weights: SalienceWeights{
			Recency:    0.20,
			Frequency:  0.15,
			Emotional:  0.25,
			Engagement: 0.20,
			Contextual: 0.20,
		},
		RecencyHalfLife:     72 * time.Hour,
		FrequencyWindowDays: 7,
		HistoryLimit:        100,

		MaxConnections: 10,
		Thresholds: EdgeThresholds{
			Semantic:  0.3,
			Temporal:  0.4,
			Emotional: 0.5,
			Actor:     0.8,
			Causal:    0.5,
			Response:  0.5,
		},
		Multipliers: EdgeMultipliers{
			Semantic:  1.0,
			Temporal:  0.7,
			Emotional: 0.9,
			Actor:     0.5,
			Causal:    1.2,
			Response:  1.1,
		},
		TemporalWindow:    48 * time.Hour,
		CausalWindow:      2 * time.Hour,
		ResponseWindow:    30 * time.Minute,
		MaxSimilarityScan: 1000,

		MinReflectionEvents: 3,
		ThreadMaxGap:        30 * time.Minute,

		RetentionDays: 90,
	}
}

// DevelopmentMemoryConfig returns a more permissive configuration for local work
func DevelopmentMemoryConfig() *MemoryConfig {
	cfg := DefaultMemoryConfig()
	cfg.MaxConnections = 20
	cfg.MaxSimilarityScan = 10000
	cfg.RetentionDays = 365
	return cfg
}

// LoadMemoryConfig loads memory configuration based on environment
func LoadMemoryConfig(environment string) *MemoryConfig {
	switch environment {
	case "development":
		return DevelopmentMemoryConfig()
	default:
		return DefaultMemoryConfig()
	}
}

// Validate checks if the configuration is valid
func (c *MemoryConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.RecencyHalfLife <= 0 {
		return pkgerrors.NewValidationError("recency half-life must be positive")
	}
	if c.FrequencyWindowDays <= 0 {
		return pkgerrors.NewValidationError("frequency window must be positive")
	}
	if c.MaxConnections <= 0 {
		return pkgerrors.NewValidationError("max connections must be positive")
	}
	if c.RetentionDays <= 0 {
		return pkgerrors.NewValidationError("retention window must be positive")
	}
	for name, v := range map[string]float64{
		"semantic":  c.Thresholds.Semantic,
		"temporal":  c.Thresholds.Temporal,
		"emotional": c.Thresholds.Emotional,
		"actor":     c.Thresholds.Actor,
		"causal":    c.Thresholds.Causal,
		"response":  c.Thresholds.Response,
	} {
		if v < 0 || v > 1 {
			return pkgerrors.NewValidationError("edge threshold out of range: " + name)
		}
	}
	return nil
}
