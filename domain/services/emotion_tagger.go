package services

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

const (
	amplifierWindow = 2 // tokens looked back for amplifiers
	negationWindow  = 3 // tokens looked back for negation
	phraseHitWeight = 1.5
	keywordHitWeight = 1.0

	// systemDampening reduces intensities for system-originated text
	systemDampening = 0.7

	// lateNightAmplification boosts intensities for hours 0-5
	lateNightAmplification = 1.1
)

// AnalysisContext carries optional context for emotion analysis
type AnalysisContext struct {
	Actor entities.Actor
	Hour  int // hour of day 0-23, -1 when unknown
}

// EmotionTagger derives an emotion analysis from raw text using a
// lexicon and rule-based matching. It is stateless and safe for
// concurrent use.
type EmotionTagger struct {
	lexicon  *Lexicon
	keywords map[string]valueobjects.Emotion // inverted keyword index
	logger   *zap.Logger
}

// NewEmotionTagger creates an emotion tagger with the default lexicon
func NewEmotionTagger(logger *zap.Logger) *EmotionTagger {
	return NewEmotionTaggerWithLexicon(DefaultLexicon(), logger)
}

// NewEmotionTaggerWithLexicon creates a tagger with a custom lexicon
func NewEmotionTaggerWithLexicon(lexicon *Lexicon, logger *zap.Logger) *EmotionTagger {
	return &EmotionTagger{
		lexicon:  lexicon,
		keywords: buildKeywordIndex(lexicon),
		logger:   logger,
	}
}

// Analyze produces an emotion analysis for the given text.
// Empty or whitespace-only input deterministically yields the neutral
// analysis, never an error.
func (t *EmotionTagger) Analyze(text string, ctxInfo *AnalysisContext) valueobjects.EmotionAnalysis {
	normalized := normalizeText(text)
	if normalized == "" {
		return valueobjects.NeutralEmotionAnalysis()
	}

	tokens := strings.Fields(normalized)
	raw := t.scoreEmotions(normalized, tokens)

	// Normalize raw hit weights by text length so long rambling text
	// does not dominate short emphatic text.
	lengthNorm := 1.0 + math.Log1p(float64(len(tokens)))
	detected := make(map[valueobjects.Emotion]float64, len(raw))
	for _, e := range valueobjects.AllEmotions {
		score := raw[e] / lengthNorm
		if score > 1.0 {
			score = 1.0
		}
		if score > 0 {
			detected[e] = score
		}
	}

	if ctxInfo != nil {
		applyContext(detected, ctxInfo)
	}

	analysis := valueobjects.EmotionAnalysis{
		DetectedEmotions: detected,
		Fingerprint:      valueobjects.BuildFingerprint(detected),
	}

	significant := analysis.SignificantEmotions()
	if len(significant) > 0 {
		analysis.PrimaryEmotion = significant[0]
		rest := significant[1:]
		if len(rest) > 3 {
			rest = rest[:3]
		}
		if len(rest) > 0 {
			analysis.SecondaryEmotions = rest
		}
	}

	analysis.Valence, analysis.Arousal = t.deriveValenceArousal(tokens, detected)

	return analysis
}

// scoreEmotions accumulates raw hit weights per emotion
func (t *EmotionTagger) scoreEmotions(normalized string, tokens []string) map[valueobjects.Emotion]float64 {
	raw := make(map[valueobjects.Emotion]float64)

	// Phrase hits carry extra weight; they are unambiguous signals.
	for _, e := range valueobjects.AllEmotions {
		for _, phrase := range t.lexicon.Phrases[e] {
			if strings.Contains(normalized, phrase) {
				raw[e] += phraseHitWeight
			}
		}
	}

	// Keyword hits, with amplifier and negation windows.
	for i, token := range tokens {
		e, ok := t.keywords[token]
		if !ok {
			continue
		}
		weight := keywordHitWeight
		weight *= amplifierAt(tokens, i)
		if negatedAt(tokens, i) {
			weight *= negationMultiplier
		}
		raw[e] += weight
	}

	return raw
}

// buildKeywordIndex inverts the lexicon for O(1) token lookup.
// On a collision the first emotion in AllEmotions order wins.
func buildKeywordIndex(lexicon *Lexicon) map[string]valueobjects.Emotion {
	index := make(map[string]valueobjects.Emotion)
	for _, e := range valueobjects.AllEmotions {
		for _, kw := range lexicon.Keywords[e] {
			if _, exists := index[kw]; !exists {
				index[kw] = e
			}
		}
	}
	return index
}

// amplifierAt returns the strongest amplifier multiplier within the window
// preceding token i, or 1.0 when none applies.
func amplifierAt(tokens []string, i int) float64 {
	for j := i - 1; j >= 0 && j >= i-amplifierWindow; j-- {
		if m, ok := amplifiers[tokens[j]]; ok {
			return m
		}
	}
	return 1.0
}

// negatedAt reports whether a negation appears within the window before token i
func negatedAt(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
		if negations[tokens[j]] {
			return true
		}
	}
	return false
}

// deriveValenceArousal combines base polarity with weighted emotion sums
func (t *EmotionTagger) deriveValenceArousal(tokens []string, detected map[valueobjects.Emotion]float64) (float64, float64) {
	pos, neg := 0, 0
	for _, token := range tokens {
		if positiveWords[token] {
			pos++
		}
		if negativeWords[token] {
			neg++
		}
	}
	basePolarity := clamp(3.0*float64(pos-neg)/float64(len(tokens)), -0.5, 0.5)

	var posSum, negSum, highSum, lowSum float64
	for _, e := range valueobjects.AllEmotions {
		v := detected[e]
		if v == 0 {
			continue
		}
		if e.IsPositive() {
			posSum += v
		}
		if e.IsNegative() {
			negSum += v
		}
		if e.IsHighArousal() {
			highSum += v
		}
		if e.IsLowArousal() {
			lowSum += v
		}
	}

	valence := clamp(basePolarity+0.6*posSum-0.6*negSum, -1, 1)
	arousal := clamp(-0.1+0.8*highSum-0.4*lowSum, -1, 1)
	return valence, arousal
}

// applyContext applies multiplicative contextual adjustments in place
func applyContext(detected map[valueobjects.Emotion]float64, ctxInfo *AnalysisContext) {
	factor := 1.0
	if ctxInfo.Actor == entities.ActorSystem {
		factor *= systemDampening
	}
	if ctxInfo.Hour >= 0 && ctxInfo.Hour <= 5 {
		factor *= lateNightAmplification
	}
	if factor == 1.0 {
		return
	}
	for e, v := range detected {
		detected[e] = clamp(v*factor, 0, 1)
	}
}

// normalizeText lowercases, strips punctuation and collapses whitespace
func normalizeText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
