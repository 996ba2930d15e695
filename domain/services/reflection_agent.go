package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
	"mnemo/pkg/utils"
)

// themeCategories drive the keyword hit counts behind key themes
var themeCategories = []struct {
	name  string
	words []string
}{
	{"learning", []string{"learn", "learned", "study", "course", "practice", "skill", "understand", "read"}},
	{"emotional", []string{"feel", "felt", "feeling", "emotion", "mood", "happy", "sad", "angry", "anxious"}},
	{"social", []string{"friend", "family", "talk", "conversation", "meet", "together", "people", "visit"}},
	{"work", []string{"work", "project", "meeting", "deadline", "task", "job", "team", "boss"}},
	{"health", []string{"health", "exercise", "sleep", "doctor", "tired", "energy", "walk", "rest"}},
	{"creativity", []string{"create", "design", "write", "music", "art", "idea", "build", "imagine"}},
	{"problem-solving", []string{"solve", "fix", "figure", "debug", "solution", "decide", "resolve", "plan"}},
}

// learningIndicators mark events that read like a learning moment
var learningIndicators = []string{
	"realized", "learned", "understood", "figured out", "discovered",
	"now i know", "it turns out", "makes sense now", "never knew",
}

// maxKeyEvents, maxLearningMoments and maxQuotes bound reflection lists
const (
	maxKeyEvents       = 5
	maxLearningMoments = 5
	maxQuotes          = 3
	keyEventMinScore   = 0.3
)

// ReflectionAgent synthesizes narrative summaries from event sets.
// Output is template-assembled prose, deterministic for a fixed input.
type ReflectionAgent struct {
	minEvents int
	logger    *zap.Logger
}

// NewReflectionAgent creates a reflection agent
func NewReflectionAgent(minEvents int, logger *zap.Logger) *ReflectionAgent {
	return &ReflectionAgent{minEvents: minEvents, logger: logger}
}

// GenerateDaily synthesizes a reflection for one day of events.
// Fewer events than the threshold yields a minimal placeholder, never an
// error.
func (a *ReflectionAgent) GenerateDaily(events []*entities.Event, date time.Time, now time.Time) *entities.Reflection {
	if len(events) < a.minEvents {
		return a.placeholder(entities.ReflectionDaily, date, len(events), now)
	}

	sorted := sortedByTime(events)

	actorCounts := make(map[entities.Actor]int)
	typeCounts := make(map[entities.EventType]int)
	hourly := make(map[int]int)
	emotionFreq := make(map[valueobjects.Emotion]int)
	intensitySum := 0.0
	valenceSum := 0.0
	emotional := 0

	for _, event := range sorted {
		actorCounts[event.Actor()]++
		typeCounts[event.Type()]++
		hourly[event.Timestamp().Hour()]++
		emotion := event.Emotion()
		if !emotion.IsNeutral() {
			emotionFreq[emotion.PrimaryEmotion]++
			intensitySum += emotion.PrimaryIntensity()
			valenceSum += emotion.Valence
			emotional++
		}
	}

	avgIntensity, avgValence := 0.0, 0.0
	if emotional > 0 {
		avgIntensity = intensitySum / float64(emotional)
		avgValence = valenceSum / float64(emotional)
	}

	tone := classifyTone(avgIntensity, avgValence)
	dominant := dominantEmotions(emotionFreq)
	themes := keyThemes(sorted)
	keyEvents := a.keyEvents(sorted)
	learning := learningMoments(sorted)
	quotes := memorableQuotes(sorted)

	reflection := &entities.Reflection{
		ID:               uuid.New().String(),
		Type:             entities.ReflectionDaily,
		Date:             utils.StartOfDay(date),
		KeyThemes:        themes,
		EmotionalTone:    tone,
		DominantEmotions: dominant,
		KeyEventIDs:      keyEvents,
		LearningMoments:  learning,
		MemorableQuotes:  quotes,
		EventCount:       len(sorted),
		GeneratedAt:      now,
	}
	reflection.Summary = a.dailyNarrative(reflection, actorCounts, hourly)

	a.logger.Debug("daily reflection generated",
		zap.Time("date", reflection.Date),
		zap.Int("events", reflection.EventCount),
		zap.String("tone", string(tone)),
	)

	return reflection
}

// GenerateWeekly aggregates daily reflections into a weekly narrative
func (a *ReflectionAgent) GenerateWeekly(dailies []*entities.Reflection, weekStart time.Time, now time.Time) *entities.Reflection {
	substantive := make([]*entities.Reflection, 0, len(dailies))
	totalEvents := 0
	for _, d := range dailies {
		totalEvents += d.EventCount
		if !d.Placeholder {
			substantive = append(substantive, d)
		}
	}
	if len(substantive) == 0 {
		return a.placeholder(entities.ReflectionWeekly, weekStart, totalEvents, now)
	}

	sort.Slice(substantive, func(i, j int) bool {
		return substantive[i].Date.Before(substantive[j].Date)
	})

	// Peak and quiet day detection against the weekly mean.
	mean := float64(totalEvents) / float64(len(dailies))
	var peak, quiet *entities.Reflection
	for _, d := range substantive {
		if peak == nil || float64(d.EventCount)-mean > float64(peak.EventCount)-mean {
			peak = d
		}
		if quiet == nil || float64(d.EventCount)-mean < float64(quiet.EventCount)-mean {
			quiet = d
		}
	}

	// Recurring themes appear on two or more days.
	themeDays := make(map[string]int)
	toneCounts := make(map[entities.EmotionalTone]int)
	emotionDays := make(map[valueobjects.Emotion]int)
	for _, d := range substantive {
		seen := make(map[string]bool)
		for _, theme := range d.KeyThemes {
			if !seen[theme] {
				themeDays[theme]++
				seen[theme] = true
			}
		}
		toneCounts[d.EmotionalTone]++
		for _, e := range d.DominantEmotions {
			emotionDays[e]++
		}
	}

	var recurring []string
	for theme, days := range themeDays {
		if days >= 2 {
			recurring = append(recurring, theme)
		}
	}
	sort.Slice(recurring, func(i, j int) bool {
		if themeDays[recurring[i]] != themeDays[recurring[j]] {
			return themeDays[recurring[i]] > themeDays[recurring[j]]
		}
		return recurring[i] < recurring[j]
	})

	weekTone := dominantTone(toneCounts)

	dominant := make([]valueobjects.Emotion, 0, len(emotionDays))
	for e := range emotionDays {
		dominant = append(dominant, e)
	}
	sort.Slice(dominant, func(i, j int) bool {
		if emotionDays[dominant[i]] != emotionDays[dominant[j]] {
			return emotionDays[dominant[i]] > emotionDays[dominant[j]]
		}
		return dominant[i] < dominant[j]
	})
	if len(dominant) > 3 {
		dominant = dominant[:3]
	}

	reflection := &entities.Reflection{
		ID:               uuid.New().String(),
		Type:             entities.ReflectionWeekly,
		Date:             utils.StartOfDay(weekStart),
		KeyThemes:        recurring,
		EmotionalTone:    weekTone,
		DominantEmotions: dominant,
		EventCount:       totalEvents,
		GeneratedAt:      now,
	}
	reflection.Summary = a.weeklyNarrative(reflection, substantive, peak, quiet)

	return reflection
}

// placeholder is the documented minimal reflection for insufficient data
func (a *ReflectionAgent) placeholder(kind entities.ReflectionType, date time.Time, count int, now time.Time) *entities.Reflection {
	period := "day"
	if kind == entities.ReflectionWeekly {
		period = "week"
	}
	return &entities.Reflection{
		ID:            uuid.New().String(),
		Type:          kind,
		Date:          utils.StartOfDay(date),
		Summary:       fmt.Sprintf("A quiet %s with too few recorded moments to reflect on.", period),
		EmotionalTone: entities.ToneNeutral,
		EventCount:    count,
		Placeholder:   true,
		GeneratedAt:   now,
	}
}

// classifyTone maps average intensity and valence into a tone band
func classifyTone(intensity, valence float64) entities.EmotionalTone {
	switch {
	case valence >= 0.4 && intensity >= 0.5:
		return entities.ToneVeryPositive
	case valence >= 0.15:
		return entities.TonePositive
	case valence <= -0.4 && intensity >= 0.5:
		return entities.ToneVeryNegative
	case valence <= -0.15:
		return entities.ToneNegative
	case intensity >= 0.6 && math.Abs(valence) < 0.15:
		return entities.ToneMixedIntense
	default:
		return entities.ToneNeutral
	}
}

// dominantEmotions returns at most three emotions by descending frequency
func dominantEmotions(freq map[valueobjects.Emotion]int) []valueobjects.Emotion {
	out := make([]valueobjects.Emotion, 0, len(freq))
	for e := range freq {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if freq[out[i]] != freq[out[j]] {
			return freq[out[i]] > freq[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func dominantTone(counts map[entities.EmotionalTone]int) entities.EmotionalTone {
	best := entities.ToneNeutral
	bestCount := -1
	// Stable order over the fixed tone set.
	for _, tone := range []entities.EmotionalTone{
		entities.ToneVeryPositive, entities.TonePositive, entities.ToneNegative,
		entities.ToneVeryNegative, entities.ToneMixedIntense, entities.ToneNeutral,
	} {
		if counts[tone] > bestCount {
			best = tone
			bestCount = counts[tone]
		}
	}
	return best
}

// keyThemes counts theme-keyword hits across all events
func keyThemes(events []*entities.Event) []string {
	hits := make(map[string]int)
	for _, event := range events {
		tokens := event.TermSet()
		lower := strings.ToLower(event.Content())
		for _, category := range themeCategories {
			for _, word := range category.words {
				if tokens[word] || strings.Contains(lower, word) {
					hits[category.name]++
					break
				}
			}
		}
	}
	themes := make([]string, 0, len(hits))
	for theme := range hits {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if hits[themes[i]] != hits[themes[j]] {
			return hits[themes[i]] > hits[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > 4 {
		themes = themes[:4]
	}
	return themes
}

// keyEvents ranks events by salience, emotion and substance
func (a *ReflectionAgent) keyEvents(events []*entities.Event) []valueobjects.EventID {
	type scored struct {
		id    valueobjects.EventID
		score float64
	}
	ranked := make([]scored, 0, len(events))
	for _, event := range events {
		lengthFactor := math.Min(float64(len(event.Content()))/300.0, 1.0)
		keywordBonus := 0.0
		lower := strings.ToLower(event.Content())
		for word := range highImportanceWords {
			if strings.Contains(lower, word) {
				keywordBonus = 0.1
				break
			}
		}
		score := 0.4*event.Salience().Score +
			0.3*event.Emotion().PrimaryIntensity() +
			0.2*lengthFactor +
			keywordBonus
		if score > keyEventMinScore {
			ranked = append(ranked, scored{id: event.ID(), score: score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})
	if len(ranked) > maxKeyEvents {
		ranked = ranked[:maxKeyEvents]
	}
	out := make([]valueobjects.EventID, len(ranked))
	for i, s := range ranked {
		out[i] = s.id
	}
	return out
}

// learningMoments collects events matching the indicator lexicon
func learningMoments(events []*entities.Event) []string {
	var moments []string
	for _, event := range events {
		lower := strings.ToLower(event.Content())
		for _, indicator := range learningIndicators {
			if strings.Contains(lower, indicator) {
				moments = append(moments, trimSnippet(event.Content(), 140))
				break
			}
		}
		if len(moments) >= maxLearningMoments {
			break
		}
	}
	return moments
}

// memorableQuotes picks short, emphatic or question-bearing user content
func memorableQuotes(events []*entities.Event) []string {
	var quotes []string
	for _, event := range events {
		content := event.Content()
		if event.Actor() != entities.ActorUser {
			continue
		}
		length := len(content)
		if length < 15 || length > 200 {
			continue
		}
		emphatic := strings.Contains(content, "!") || strings.Contains(content, "?")
		salient := event.Salience().Score >= 0.5
		if emphatic || salient {
			quotes = append(quotes, content)
		}
	}
	// Longest first reads best in the narrative.
	sort.Slice(quotes, func(i, j int) bool {
		if len(quotes[i]) != len(quotes[j]) {
			return len(quotes[i]) > len(quotes[j])
		}
		return quotes[i] < quotes[j]
	})
	if len(quotes) > maxQuotes {
		quotes = quotes[:maxQuotes]
	}
	return quotes
}

// dailyNarrative assembles the summary prose from the aggregates
func (a *ReflectionAgent) dailyNarrative(r *entities.Reflection, actors map[entities.Actor]int, hourly map[int]int) string {
	var clauses []string

	clauses = append(clauses, fmt.Sprintf("Recorded %d moments on %s", r.EventCount, r.Date.Format("January 2")))

	if user := actors[entities.ActorUser]; user > 0 {
		clauses = append(clauses, fmt.Sprintf("%d of them from the user", user))
	}

	if busiest, count := busiestHour(hourly); count > 1 {
		clauses = append(clauses, fmt.Sprintf("activity peaked around %02d:00", busiest))
	}

	sentence := strings.Join(clauses, ", ") + "."
	parts := []string{sentence}

	if len(r.KeyThemes) > 0 {
		parts = append(parts, fmt.Sprintf("The day centered on %s.", joinNatural(r.KeyThemes)))
	}

	switch r.EmotionalTone {
	case entities.ToneVeryPositive:
		parts = append(parts, "The mood was strongly upbeat.")
	case entities.TonePositive:
		parts = append(parts, "The mood leaned positive.")
	case entities.ToneNegative:
		parts = append(parts, "The mood leaned heavy.")
	case entities.ToneVeryNegative:
		parts = append(parts, "The mood was notably difficult.")
	case entities.ToneMixedIntense:
		parts = append(parts, "Emotions ran high in both directions.")
	default:
		parts = append(parts, "The emotional register stayed even.")
	}

	if len(r.DominantEmotions) > 0 {
		names := make([]string, len(r.DominantEmotions))
		for i, e := range r.DominantEmotions {
			names[i] = string(e)
		}
		parts = append(parts, fmt.Sprintf("Most present: %s.", joinNatural(names)))
	}

	if len(r.LearningMoments) > 0 {
		parts = append(parts, fmt.Sprintf("%d learning moment(s) stood out.", len(r.LearningMoments)))
	}

	return strings.Join(parts, " ")
}

// weeklyNarrative assembles the weekly summary prose
func (a *ReflectionAgent) weeklyNarrative(r *entities.Reflection, dailies []*entities.Reflection, peak, quiet *entities.Reflection) string {
	parts := []string{fmt.Sprintf(
		"Week of %s: %d moments across %d active days.",
		r.Date.Format("January 2"), r.EventCount, len(dailies),
	)}

	if peak != nil && quiet != nil && !peak.Date.Equal(quiet.Date) {
		parts = append(parts, fmt.Sprintf(
			"%s was the fullest day and %s the quietest.",
			peak.Date.Format("Monday"), quiet.Date.Format("Monday"),
		))
	}

	if len(r.KeyThemes) > 0 {
		parts = append(parts, fmt.Sprintf("Recurring across the week: %s.", joinNatural(r.KeyThemes)))
	}

	switch r.EmotionalTone {
	case entities.ToneVeryPositive, entities.TonePositive:
		parts = append(parts, "Overall the week trended positive.")
	case entities.ToneNegative, entities.ToneVeryNegative:
		parts = append(parts, "Overall the week carried a heavier tone.")
	case entities.ToneMixedIntense:
		parts = append(parts, "The week swung between emotional extremes.")
	default:
		parts = append(parts, "The week kept an even keel.")
	}

	return strings.Join(parts, " ")
}

// Helpers

func sortedByTime(events []*entities.Event) []*entities.Event {
	out := make([]*entities.Event, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp().Before(out[j].Timestamp())
	})
	return out
}

func busiestHour(hourly map[int]int) (int, int) {
	bestHour, bestCount := 0, 0
	for hour := 0; hour < 24; hour++ {
		if hourly[hour] > bestCount {
			bestHour, bestCount = hour, hourly[hour]
		}
	}
	return bestHour, bestCount
}

func trimSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "…"
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
