package valueobjects

// SalienceLevel buckets a salience score into a named importance tier
type SalienceLevel string

const (
	SalienceMinimal  SalienceLevel = "minimal"
	SalienceLow      SalienceLevel = "low"
	SalienceMedium   SalienceLevel = "medium"
	SalienceHigh     SalienceLevel = "high"
	SalienceCritical SalienceLevel = "critical"
)

// LevelForScore maps a score in [0,1] to its salience level.
// Bands: >=0.8 critical, >=0.6 high, >=0.4 medium, >=0.2 low, else minimal.
func LevelForScore(score float64) SalienceLevel {
	switch {
	case score >= 0.8:
		return SalienceCritical
	case score >= 0.6:
		return SalienceHigh
	case score >= 0.4:
		return SalienceMedium
	case score >= 0.2:
		return SalienceLow
	default:
		return SalienceMinimal
	}
}

// SalienceAnalysis is the immutable result of scoring an event's importance
type SalienceAnalysis struct {
	Score           float64            `json:"score"`
	Level           SalienceLevel      `json:"level"`
	ComponentScores map[string]float64 `json:"component_scores"`
}

// DefaultSalienceAnalysis returns the documented fallback when scoring fails
func DefaultSalienceAnalysis() SalienceAnalysis {
	return SalienceAnalysis{
		Score:           0.3,
		Level:           LevelForScore(0.3),
		ComponentScores: map[string]float64{},
	}
}
