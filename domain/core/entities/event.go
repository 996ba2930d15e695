package entities

import (
	"sort"
	"strings"
	"time"

	"mnemo/domain/core/valueobjects"
	pkgerrors "mnemo/pkg/errors"
)

// Actor identifies who produced an event
type Actor string

const (
	ActorUser   Actor = "user"
	ActorAgent  Actor = "agent"
	ActorSystem Actor = "system"
)

// ParseActor validates and converts a string into an Actor
func ParseActor(s string) (Actor, error) {
	switch Actor(s) {
	case ActorUser, ActorAgent, ActorSystem:
		return Actor(s), nil
	}
	return "", pkgerrors.NewValidationError("unknown actor: " + s)
}

// EventType classifies what kind of interaction an event records
type EventType string

const (
	EventTypeInteraction EventType = "interaction"
	EventTypeDecision    EventType = "decision"
	EventTypeObservation EventType = "observation"
	EventTypeReflection  EventType = "reflection"
	EventTypeSystem      EventType = "system"
)

// ParseEventType validates and converts a string into an EventType
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventTypeInteraction, EventTypeDecision, EventTypeObservation,
		EventTypeReflection, EventTypeSystem:
		return EventType(s), nil
	}
	return "", pkgerrors.NewValidationError("unknown event type: " + s)
}

// Event is the main entity representing a recorded interaction unit.
// Content is write-once; emotion and salience analyses may be recomputed
// when scoring weights are recalibrated.
type Event struct {
	id        valueobjects.EventID
	timestamp time.Time
	actor     Actor
	eventType EventType
	content   string
	emotion   valueobjects.EmotionAnalysis
	salience  valueobjects.SalienceAnalysis
	related   map[valueobjects.EventID]struct{}
	metadata  map[string]interface{}
}

// NewEvent creates a new event with business rule validation.
// Analyses start neutral; enrichment attaches real ones afterwards.
func NewEvent(content string, actor Actor, eventType EventType, timestamp time.Time) (*Event, error) {
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if _, err := ParseActor(string(actor)); err != nil {
		return nil, err
	}
	if _, err := ParseEventType(string(eventType)); err != nil {
		return nil, err
	}
	if timestamp.IsZero() {
		return nil, pkgerrors.NewValidationError("timestamp cannot be zero")
	}

	return &Event{
		id:        valueobjects.NewEventID(),
		timestamp: timestamp.UTC(),
		actor:     actor,
		eventType: eventType,
		content:   content,
		emotion:   valueobjects.NeutralEmotionAnalysis(),
		salience:  valueobjects.DefaultSalienceAnalysis(),
		related:   make(map[valueobjects.EventID]struct{}),
		metadata:  make(map[string]interface{}),
	}, nil
}

// ReconstructEvent rebuilds an event from stored data with preserved analyses
func ReconstructEvent(
	id valueobjects.EventID,
	timestamp time.Time,
	actor Actor,
	eventType EventType,
	content string,
	emotion valueobjects.EmotionAnalysis,
	salience valueobjects.SalienceAnalysis,
	relatedIDs []valueobjects.EventID,
	metadata map[string]interface{},
) (*Event, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("event ID cannot be empty")
	}
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}

	related := make(map[valueobjects.EventID]struct{}, len(relatedIDs))
	for _, rid := range relatedIDs {
		related[rid] = struct{}{}
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Event{
		id:        id,
		timestamp: timestamp.UTC(),
		actor:     actor,
		eventType: eventType,
		content:   content,
		emotion:   emotion,
		salience:  salience,
		related:   related,
		metadata:  metadata,
	}, nil
}

// ID returns the event's unique identifier
func (e *Event) ID() valueobjects.EventID {
	return e.id
}

// Timestamp returns when the event occurred
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Actor returns who produced the event
func (e *Event) Actor() Actor {
	return e.actor
}

// Type returns the event's classification
func (e *Event) Type() EventType {
	return e.eventType
}

// Content returns the event's text, immutable after creation
func (e *Event) Content() string {
	return e.content
}

// Emotion returns the attached emotion analysis
func (e *Event) Emotion() valueobjects.EmotionAnalysis {
	return e.emotion
}

// Salience returns the attached salience analysis
func (e *Event) Salience() valueobjects.SalienceAnalysis {
	return e.salience
}

// AttachEmotion replaces the emotion analysis.
// Content never changes, but analyses may be recomputed on recalibration.
func (e *Event) AttachEmotion(a valueobjects.EmotionAnalysis) {
	e.emotion = a
}

// AttachSalience replaces the salience analysis
func (e *Event) AttachSalience(a valueobjects.SalienceAnalysis) {
	e.salience = a
}

// AddRelated records a graph edge to another event
func (e *Event) AddRelated(id valueobjects.EventID) {
	if id.Equals(e.id) || id.IsZero() {
		return
	}
	e.related[id] = struct{}{}
}

// RemoveRelated drops a graph edge reference
func (e *Event) RemoveRelated(id valueobjects.EventID) {
	delete(e.related, id)
}

// RelatedIDs returns the related event IDs in a stable order
func (e *Event) RelatedIDs() []valueobjects.EventID {
	out := make([]valueobjects.EventID, 0, len(e.related))
	for id := range e.related {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Metadata returns a copy of the open metadata map
func (e *Event) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(e.metadata))
	for k, v := range e.metadata {
		out[k] = v
	}
	return out
}

// SetMetadata stores an open metadata entry
func (e *Event) SetMetadata(key string, value interface{}) {
	e.metadata[key] = value
}

// Age returns how old the event is relative to now
func (e *Event) Age(now time.Time) time.Duration {
	return now.Sub(e.timestamp)
}

// Keywords extracts significant terms from the event content for
// similarity matching and frequency scoring
func (e *Event) Keywords() []string {
	return ExtractKeywords(e.content)
}

// TermSet returns the event's significant terms as a set for O(1) lookup
func (e *Event) TermSet() map[string]bool {
	set := make(map[string]bool)
	for _, kw := range ExtractKeywords(e.content) {
		set[kw] = true
	}
	return set
}

// stopWords excluded from keyword extraction
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "what": true, "when": true, "where": true, "how": true,
}

// ExtractKeywords extracts significant words from text for similarity matching
func ExtractKeywords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	keywords := []string{}

	seen := make(map[string]bool)
	for _, word := range words {
		// Clean punctuation
		word = strings.Trim(word, ".,!?;:\"'()[]{}")

		// Skip short words, stop words, and duplicates
		if len(word) > 3 && !stopWords[word] && !seen[word] {
			keywords = append(keywords, word)
			seen[word] = true
		}
	}

	return keywords
}
