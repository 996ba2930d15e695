package services

import (
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mnemo/domain/config"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

// ScoreContext carries optional context for salience scoring
type ScoreContext struct {
	Hour        int      // hour of day 0-23, -1 when unknown
	Preferences []string // user preference terms that boost contextual score
}

// engagement keyword tiers. Matches add tiered bonuses, capped.
var (
	highImportanceWords = map[string]bool{
		"important": true, "urgent": true, "critical": true, "emergency": true,
		"remember": true, "never": true, "always": true, "must": true,
		"promise": true, "deadline": true,
	}
	mediumImportanceWords = map[string]bool{
		"need": true, "should": true, "want": true, "help": true,
		"problem": true, "decision": true, "plan": true, "change": true,
	}
	lowImportanceWords = map[string]bool{
		"maybe": true, "perhaps": true, "think": true, "feel": true,
		"guess": true, "wonder": true,
	}
)

// contextual keyword categories with their weights
var contextCategories = []struct {
	name   string
	weight float64
	words  map[string]bool
}{
	{"emergency", 0.50, map[string]bool{
		"emergency": true, "urgent": true, "crisis": true, "immediately": true,
		"asap": true, "911": true,
	}},
	{"health", 0.35, map[string]bool{
		"health": true, "doctor": true, "sick": true, "pain": true,
		"hospital": true, "medication": true, "sleep": true, "tired": true,
	}},
	{"personal", 0.30, map[string]bool{
		"family": true, "friend": true, "relationship": true, "birthday": true,
		"home": true, "myself": true, "personal": true, "feelings": true,
	}},
	{"work", 0.25, map[string]bool{
		"work": true, "job": true, "meeting": true, "project": true,
		"boss": true, "colleague": true, "career": true, "interview": true,
	}},
	{"learning", 0.25, map[string]bool{
		"learn": true, "study": true, "course": true, "book": true,
		"skill": true, "practice": true, "understand": true, "teach": true,
	}},
}

// SalienceScorer computes a multi-factor importance score for events.
// Scoring is a pure function of (event, history, context, now); weights can
// be recalibrated atomically at runtime.
type SalienceScorer struct {
	mu              sync.RWMutex
	weights         config.SalienceWeights
	halfLife        time.Duration
	frequencyWindow time.Duration
	logger          *zap.Logger
}

// NewSalienceScorer creates a scorer from the memory configuration
func NewSalienceScorer(cfg *config.MemoryConfig, logger *zap.Logger) (*SalienceScorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	return &SalienceScorer{
		weights:         cfg.Weights,
		halfLife:        cfg.RecencyHalfLife,
		frequencyWindow: time.Duration(cfg.FrequencyWindowDays) * 24 * time.Hour,
		logger:          logger,
	}, nil
}

// Weights returns the currently active component weights
func (s *SalienceScorer) Weights() config.SalienceWeights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// UpdateWeights atomically replaces the component weights.
// A rejected update leaves the previous weights fully intact.
func (s *SalienceScorer) UpdateWeights(w config.SalienceWeights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.weights = w
	s.mu.Unlock()
	s.logger.Info("salience weights recalibrated",
		zap.Float64("recency", w.Recency),
		zap.Float64("frequency", w.Frequency),
		zap.Float64("emotional", w.Emotional),
		zap.Float64("engagement", w.Engagement),
		zap.Float64("contextual", w.Contextual),
	)
	return nil
}

// Score computes the salience analysis for an event against its recent
// history. The reference time is explicit for determinism.
func (s *SalienceScorer) Score(event *entities.Event, history []*entities.Event, sctx *ScoreContext, now time.Time) valueobjects.SalienceAnalysis {
	s.mu.RLock()
	weights := s.weights
	halfLife := s.halfLife
	window := s.frequencyWindow
	s.mu.RUnlock()

	components := map[string]float64{
		"recency":    s.recencyScore(event, now, halfLife),
		"frequency":  s.frequencyScore(event, history, window),
		"emotional":  s.emotionalScore(event),
		"engagement": s.engagementScore(event),
		"contextual": s.contextualScore(event, sctx),
	}

	score := weights.Recency*components["recency"] +
		weights.Frequency*components["frequency"] +
		weights.Emotional*components["emotional"] +
		weights.Engagement*components["engagement"] +
		weights.Contextual*components["contextual"]
	score = clamp(score, 0, 1)

	return valueobjects.SalienceAnalysis{
		Score:           score,
		Level:           valueobjects.LevelForScore(score),
		ComponentScores: components,
	}
}

// recencyScore applies exponential decay against the half-life.
// Events under a day old score the maximum.
func (s *SalienceScorer) recencyScore(event *entities.Event, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(event.Timestamp())
	if age < 24*time.Hour {
		return 1.0
	}
	halfLives := age.Hours() / halfLife.Hours()
	return clamp(math.Exp2(-halfLives), 0, 1)
}

// frequencyScore is rarity-weighted: terms unseen in recent history score
// high, repeated terms low. Actor consistency adds a small reward.
func (s *SalienceScorer) frequencyScore(event *entities.Event, history []*entities.Event, window time.Duration) float64 {
	terms := event.Keywords()
	if len(terms) == 0 {
		return 0.5
	}

	cutoff := event.Timestamp().Add(-window)
	sameActor := 0
	windowed := 0
	docFreq := make(map[string]int, len(terms))
	for _, h := range history {
		if h.ID().Equals(event.ID()) || h.Timestamp().Before(cutoff) {
			continue
		}
		windowed++
		if h.Actor() == event.Actor() {
			sameActor++
		}
		set := h.TermSet()
		for _, term := range terms {
			if set[term] {
				docFreq[term]++
			}
		}
	}

	raritySum := 0.0
	for _, term := range terms {
		raritySum += 1.0 / (1.0 + float64(docFreq[term]))
	}
	rarity := raritySum / float64(len(terms))

	actorShare := 0.0
	if windowed > 0 {
		actorShare = float64(sameActor) / float64(windowed)
	}

	return clamp(0.8*rarity+0.2*actorShare, 0, 1)
}

// emotionalScore combines intensity, a high-impact category bonus and the
// magnitude of valence plus arousal.
func (s *SalienceScorer) emotionalScore(event *entities.Event) float64 {
	emotion := event.Emotion()
	intensity := emotion.PrimaryIntensity()

	bonus := 0.0
	if emotion.PrimaryEmotion.IsHighImpact() {
		bonus = 0.2
	}

	dimensional := (math.Abs(emotion.Valence) + math.Abs(emotion.Arousal)) / 2

	return clamp(0.5*intensity+bonus+0.3*dimensional, 0, 1)
}

// engagementScore rewards substantive, emphatic, user-originated content
func (s *SalienceScorer) engagementScore(event *entities.Event) float64 {
	content := event.Content()
	lengthFactor := math.Min(float64(len(content))/200.0, 1.0) * 0.3

	keywordScore := 0.0
	for _, token := range strings.Fields(strings.ToLower(content)) {
		token = strings.Trim(token, ".,!?;:\"'()[]{}")
		switch {
		case highImportanceWords[token]:
			keywordScore += 0.15
		case mediumImportanceWords[token]:
			keywordScore += 0.07
		case lowImportanceWords[token]:
			keywordScore += 0.03
		}
	}
	keywordScore = math.Min(keywordScore, 0.4)

	marks := strings.Count(content, "?") + strings.Count(content, "!")
	punctuation := math.Min(float64(marks)*0.05, 0.2)

	actorBonus := 0.0
	switch event.Actor() {
	case entities.ActorUser:
		actorBonus = 0.1
	case entities.ActorAgent:
		actorBonus = 0.05
	}

	return clamp(lengthFactor+keywordScore+punctuation+actorBonus, 0, 1)
}

// contextualScore matches keyword categories plus optional time-of-day and
// user preference signals.
func (s *SalienceScorer) contextualScore(event *entities.Event, sctx *ScoreContext) float64 {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(event.Content())) {
		tokens[strings.Trim(token, ".,!?;:\"'()[]{}")] = true
	}

	categoryScore := 0.0
	for _, category := range contextCategories {
		for token := range tokens {
			if category.words[token] {
				categoryScore += category.weight
				break
			}
		}
	}
	categoryScore = math.Min(categoryScore, 0.7)

	contextBonus := 0.0
	if sctx != nil {
		if sctx.Hour >= 0 && sctx.Hour <= 5 {
			contextBonus += 0.1
		}
		prefHits := 0.0
		for _, pref := range sctx.Preferences {
			if tokens[strings.ToLower(pref)] {
				prefHits += 0.1
			}
		}
		contextBonus += math.Min(prefHits, 0.2)
	}

	return clamp(categoryScore+contextBonus, 0, 1)
}
