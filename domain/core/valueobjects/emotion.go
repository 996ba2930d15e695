package valueobjects

import (
	"math"
	"sort"
	"strings"
)

// Emotion identifies one of the tracked emotion categories
type Emotion string

const (
	EmotionJoy       Emotion = "joy"
	EmotionSadness   Emotion = "sadness"
	EmotionAnger     Emotion = "anger"
	EmotionFear      Emotion = "fear"
	EmotionSurprise  Emotion = "surprise"
	EmotionLove      Emotion = "love"
	EmotionCuriosity Emotion = "curiosity"
	EmotionGratitude Emotion = "gratitude"

	// EmotionNone marks an analysis with no significant emotion
	EmotionNone Emotion = ""
)

// AllEmotions lists every tracked emotion in a stable order
var AllEmotions = []Emotion{
	EmotionJoy, EmotionSadness, EmotionAnger, EmotionFear,
	EmotionSurprise, EmotionLove, EmotionCuriosity, EmotionGratitude,
}

// significanceThreshold is the minimum intensity for an emotion to count
// as detected in the primary/secondary/fingerprint sense.
const significanceThreshold = 0.1

// highImpact emotions carry a fixed salience bonus when detected
var highImpact = map[Emotion]bool{
	EmotionAnger:    true,
	EmotionFear:     true,
	EmotionJoy:      true,
	EmotionLove:     true,
	EmotionSadness:  true,
	EmotionSurprise: true,
}

// IsHighImpact reports whether the emotion belongs to the high-impact set
func (e Emotion) IsHighImpact() bool {
	return highImpact[e]
}

// positiveEmotions contribute to positive valence
var positiveEmotions = map[Emotion]bool{
	EmotionJoy:       true,
	EmotionLove:      true,
	EmotionGratitude: true,
	EmotionCuriosity: true,
	EmotionSurprise:  true,
}

// negativeEmotions contribute to negative valence
var negativeEmotions = map[Emotion]bool{
	EmotionSadness: true,
	EmotionAnger:   true,
	EmotionFear:    true,
}

// highArousalEmotions push arousal up; lowArousalEmotions pull it down
var highArousalEmotions = map[Emotion]bool{
	EmotionAnger:    true,
	EmotionFear:     true,
	EmotionSurprise: true,
	EmotionJoy:      true,
}

var lowArousalEmotions = map[Emotion]bool{
	EmotionSadness:   true,
	EmotionGratitude: true,
}

// IsPositive reports whether the emotion belongs to the positive valence set
func (e Emotion) IsPositive() bool { return positiveEmotions[e] }

// IsNegative reports whether the emotion belongs to the negative valence set
func (e Emotion) IsNegative() bool { return negativeEmotions[e] }

// IsHighArousal reports whether the emotion belongs to the high-arousal set
func (e Emotion) IsHighArousal() bool { return highArousalEmotions[e] }

// IsLowArousal reports whether the emotion belongs to the low-arousal set
func (e Emotion) IsLowArousal() bool { return lowArousalEmotions[e] }

// EmotionAnalysis is the immutable result of analyzing a piece of text
type EmotionAnalysis struct {
	PrimaryEmotion    Emotion             `json:"primary_emotion"`
	SecondaryEmotions []Emotion           `json:"secondary_emotions,omitempty"`
	DetectedEmotions  map[Emotion]float64 `json:"detected_emotions"`
	Valence           float64             `json:"valence"`
	Arousal           float64             `json:"arousal"`
	Fingerprint       string              `json:"fingerprint"`
}

// NeutralEmotionAnalysis returns the documented fallback for empty or
// unparseable input.
func NeutralEmotionAnalysis() EmotionAnalysis {
	return EmotionAnalysis{
		PrimaryEmotion:   EmotionNone,
		DetectedEmotions: map[Emotion]float64{},
		Valence:          0,
		Arousal:          0,
		Fingerprint:      "neutral",
	}
}

// IsNeutral reports whether no significant emotion was detected
func (a EmotionAnalysis) IsNeutral() bool {
	return a.PrimaryEmotion == EmotionNone
}

// PrimaryIntensity returns the intensity of the primary emotion, or zero
func (a EmotionAnalysis) PrimaryIntensity() float64 {
	if a.PrimaryEmotion == EmotionNone {
		return 0
	}
	return a.DetectedEmotions[a.PrimaryEmotion]
}

// SignificantEmotions returns detected emotions above the significance
// threshold, sorted by descending intensity (primary first).
func (a EmotionAnalysis) SignificantEmotions() []Emotion {
	out := make([]Emotion, 0, len(a.DetectedEmotions))
	for e, v := range a.DetectedEmotions {
		if v > significanceThreshold {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := a.DetectedEmotions[out[i]], a.DetectedEmotions[out[j]]
		if vi != vj {
			return vi > vj
		}
		return out[i] < out[j]
	})
	return out
}

// intensityBucket maps an intensity to its fingerprint tier
func intensityBucket(v float64) string {
	switch {
	case v < 0.25:
		return "low"
	case v < 0.5:
		return "mild"
	case v < 0.75:
		return "strong"
	default:
		return "intense"
	}
}

// BuildFingerprint renders the top three significant emotions as
// "emotion:bucket" joined by "+", or "neutral" if there are none.
func BuildFingerprint(detected map[Emotion]float64) string {
	a := EmotionAnalysis{DetectedEmotions: detected}
	significant := a.SignificantEmotions()
	if len(significant) == 0 {
		return "neutral"
	}
	if len(significant) > 3 {
		significant = significant[:3]
	}
	parts := make([]string, 0, len(significant))
	for _, e := range significant {
		parts = append(parts, string(e)+":"+intensityBucket(detected[e]))
	}
	return strings.Join(parts, "+")
}

// FingerprintOverlap returns the fraction of shared emotion tokens between
// two fingerprints, ignoring intensity tiers.
func FingerprintOverlap(a, b string) float64 {
	if a == "" || b == "" || a == "neutral" || b == "neutral" {
		return 0
	}
	tokens := func(fp string) map[string]bool {
		set := make(map[string]bool)
		for _, part := range strings.Split(fp, "+") {
			if idx := strings.IndexByte(part, ':'); idx > 0 {
				set[part[:idx]] = true
			}
		}
		return set
	}
	as, bs := tokens(a), tokens(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	shared := 0
	for t := range as {
		if bs[t] {
			shared++
		}
	}
	return float64(shared) / math.Max(float64(len(as)), float64(len(bs)))
}
