package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mnemo/application/ports"
	"mnemo/domain/config"
	"mnemo/domain/core/aggregates"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/validators"
	"mnemo/domain/core/valueobjects"
	"mnemo/domain/events"
	domainservices "mnemo/domain/services"
	"mnemo/pkg/errors"
	"mnemo/pkg/extensions"
)

// recall ranking weights over salience, recency, emotion and term overlap
const (
	recallSalienceWeight = 0.4
	recallRecencyWeight  = 0.3
	recallEmotionWeight  = 0.2
	recallOverlapWeight  = 0.1
)

// RecordRequest carries the inputs for recording a new event
type RecordRequest struct {
	Content   string
	Actor     string
	EventType string
	Timestamp time.Time // zero value means "now"
	Metadata  map[string]interface{}
}

// RecallQuery describes a memory retrieval
type RecallQuery struct {
	Query          string
	Actor          string
	EventType      string
	Emotion        string
	MinSalience    float64
	Since          time.Time
	Until          time.Time
	Limit          int
	IncludeRelated bool
}

// RecallResult is one ranked retrieval hit
type RecallResult struct {
	Event   *entities.Event
	Score   float64
	Related []aggregates.RelatedEvent
}

// PatternReport summarizes structure and rhythm over a recall window
type PatternReport struct {
	WindowDays          int
	EventCount          int
	Graph               aggregates.GraphStatistics
	CentralEvents       []aggregates.CentralEvent
	ThreadCount         int
	LongestThread       int
	EmotionDistribution map[valueobjects.Emotion]int
	HourlyActivity      map[int]int
	ActorCounts         map[entities.Actor]int
	AverageSalience     float64
}

// RecallEngine orchestrates the full pipeline: validate, analyze, score,
// persist, index into the graph and reflect. It is the single entry point
// the rest of the system uses to touch memory.
type RecallEngine struct {
	store     ports.EventStore
	graph     *aggregates.MemoryGraph
	tagger    *domainservices.EmotionTagger
	scorer    *domainservices.SalienceScorer
	reflector *domainservices.ReflectionAgent
	validator *validators.EventValidator
	cache     ports.Cache
	hooks     *extensions.HookManager
	cfg       *config.MemoryConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecallEngine creates the orchestrator with its collaborators
func NewRecallEngine(
	store ports.EventStore,
	graph *aggregates.MemoryGraph,
	tagger *domainservices.EmotionTagger,
	scorer *domainservices.SalienceScorer,
	reflector *domainservices.ReflectionAgent,
	cache ports.Cache,
	hooks *extensions.HookManager,
	cfg *config.MemoryConfig,
	logger *zap.Logger,
) *RecallEngine {
	return &RecallEngine{
		store:     store,
		graph:     graph,
		tagger:    tagger,
		scorer:    scorer,
		reflector: reflector,
		validator: validators.NewEventValidator(),
		cache:     cache,
		hooks:     hooks,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// emit runs the hooks registered for a lifecycle point. Hook failures
// are logged, never propagated into the triggering operation.
func (e *RecallEngine) emit(ctx context.Context, point extensions.HookPoint, event events.DomainEvent) {
	if e.hooks == nil {
		return
	}
	if err := e.hooks.Execute(ctx, point, event); err != nil {
		e.logger.Warn("lifecycle hook failed",
			zap.String("point", string(point)), zap.Error(err))
	}
}

// Initialize rebuilds the in-memory graph from persisted events.
// Call once at startup before serving requests.
func (e *RecallEngine) Initialize(ctx context.Context) error {
	events, err := e.store.GetRecentEvents(ctx, e.cfg.RetentionDays, 0)
	if err != nil {
		return errors.Wrap(err, "failed to load events for graph rebuild")
	}
	e.graph.Rebuild(events)

	stats := e.graph.Statistics()
	e.logger.Info("memory graph initialized",
		zap.Int("nodes", stats.NodeCount),
		zap.Int("edges", stats.EdgeCount),
	)
	return nil
}

// Record runs the full ingestion pipeline for one event.
// Persistence failures abort; analysis and graph failures degrade so a
// recordable moment is never lost to enrichment trouble.
func (e *RecallEngine) Record(ctx context.Context, req RecordRequest) (*entities.Event, error) {
	if err := e.validator.ValidateRecord(req.Content, req.Actor, req.EventType, req.Metadata); err != nil {
		return nil, err
	}

	actor, err := entities.ParseActor(req.Actor)
	if err != nil {
		return nil, err
	}
	eventType, err := entities.ParseEventType(req.EventType)
	if err != nil {
		return nil, err
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = e.now()
	}

	event, err := entities.NewEvent(req.Content, actor, eventType, timestamp)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Metadata {
		event.SetMetadata(key, value)
	}

	event.AttachEmotion(e.tagger.Analyze(req.Content, &domainservices.AnalysisContext{
		Actor: actor,
		Hour:  timestamp.Hour(),
	}))

	history, err := e.store.GetRecentEvents(ctx, e.cfg.FrequencyWindowDays, e.cfg.HistoryLimit)
	if err != nil {
		// Scoring with an empty history is degraded but valid.
		e.logger.Warn("history unavailable, scoring without it", zap.Error(err))
		history = nil
	}
	event.AttachSalience(e.scorer.Score(event, history, &domainservices.ScoreContext{
		Hour: timestamp.Hour(),
	}, e.now()))

	if err := e.store.StoreEvent(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to persist event")
	}

	e.indexEvent(ctx, event)
	e.autoReflect(ctx, timestamp)
	e.emit(ctx, extensions.HookAfterEventRecorded,
		events.NewEventRecorded(event, len(event.RelatedIDs()), e.now()))

	e.logger.Info("event recorded",
		zap.String("event_id", event.ID().String()),
		zap.String("actor", string(actor)),
		zap.String("type", string(eventType)),
		zap.Float64("salience", event.Salience().Score),
		zap.String("emotion", string(event.Emotion().PrimaryEmotion)),
	)
	return event, nil
}

// indexEvent inserts the event into the graph and mirrors the resulting
// edges onto related-ID lists. Failures here are logged, never fatal.
func (e *RecallEngine) indexEvent(ctx context.Context, event *entities.Event) {
	edges := e.graph.AddEvent(event)
	if len(edges) == 0 {
		return
	}

	touched := make(map[valueobjects.EventID]bool)
	for _, edge := range edges {
		other := edge.TargetID
		if other.Equals(event.ID()) {
			other = edge.SourceID
		}
		event.AddRelated(other)
		touched[other] = true
	}

	// Persist the new event's related list, then mirror onto neighbors.
	if err := e.store.StoreEvent(ctx, event); err != nil {
		e.logger.Warn("failed to persist related ids", zap.Error(err))
	}
	for id := range touched {
		neighbor, err := e.store.GetEvent(ctx, id)
		if err != nil {
			e.logger.Warn("failed to load neighbor for backlink",
				zap.String("event_id", id.String()), zap.Error(err))
			continue
		}
		neighbor.AddRelated(event.ID())
		if err := e.store.StoreEvent(ctx, neighbor); err != nil {
			e.logger.Warn("failed to persist neighbor backlink",
				zap.String("event_id", id.String()), zap.Error(err))
		}
	}
}

// autoReflect generates yesterday's daily reflection on first use.
// It only fires when yesterday has recorded events and no reflection
// exists for it yet, so a backfilled day can still get a real
// reflection later. Failures are logged only.
func (e *RecallEngine) autoReflect(ctx context.Context, timestamp time.Time) {
	yesterday := timestamp.AddDate(0, 0, -1)
	if _, err := e.store.GetReflection(ctx, entities.ReflectionDaily, yesterday); err == nil {
		return
	} else if !errors.IsNotFound(err) {
		e.logger.Warn("reflection lookup failed", zap.Error(err))
		return
	}
	dayEvents, err := e.store.GetEventsForDate(ctx, yesterday)
	if err != nil {
		e.logger.Warn("auto reflection day lookup failed",
			zap.Time("date", yesterday), zap.Error(err))
		return
	}
	if len(dayEvents) == 0 {
		return
	}
	if _, err := e.Reflect(ctx, yesterday); err != nil {
		e.logger.Warn("auto reflection failed",
			zap.Time("date", yesterday), zap.Error(err))
	}
}

// Recall retrieves events relevant to the query, ranked by a blend of
// salience, recency, emotional intensity and term overlap.
func (e *RecallEngine) Recall(ctx context.Context, query RecallQuery) ([]RecallResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	filters := ports.EventFilters{
		Actor:       query.Actor,
		EventType:   query.EventType,
		Emotion:     query.Emotion,
		MinSalience: query.MinSalience,
		Since:       query.Since,
		Until:       query.Until,
	}

	candidates := make(map[string]*entities.Event)
	filtered, err := e.store.GetEvents(ctx, filters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	for _, event := range filtered {
		candidates[event.ID().String()] = event
	}

	if query.Query != "" {
		matches, err := e.store.SearchByContent(ctx, query.Query, 0)
		if err != nil {
			return nil, errors.Wrap(err, "content search failed")
		}
		for _, event := range matches {
			if matchesFilters(event, filters) {
				candidates[event.ID().String()] = event
			}
		}
	}

	queryTerms := termSet(query.Query)
	now := e.now()
	results := make([]RecallResult, 0, len(candidates))
	for _, event := range candidates {
		results = append(results, RecallResult{
			Event: event,
			Score: e.rankEvent(event, queryTerms, now),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Event.ID().String() < results[j].Event.ID().String()
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if query.IncludeRelated {
		for i := range results {
			results[i].Related = e.graph.RelatedEvents(results[i].Event.ID(), 2, 0.2, 5)
		}
	}
	return results, nil
}

// rankEvent computes the retrieval score for one candidate
func (e *RecallEngine) rankEvent(event *entities.Event, queryTerms map[string]bool, now time.Time) float64 {
	ageHours := now.Sub(event.Timestamp()).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := math.Exp2(-ageHours / e.cfg.RecencyHalfLife.Hours())

	overlap := 0.0
	if len(queryTerms) > 0 {
		matched := 0
		terms := event.TermSet()
		for term := range queryTerms {
			if terms[term] {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(queryTerms))
	}

	return recallSalienceWeight*event.Salience().Score +
		recallRecencyWeight*recency +
		recallEmotionWeight*event.Emotion().PrimaryIntensity() +
		recallOverlapWeight*overlap
}

// Reflect returns the daily reflection for a date, generating and storing
// it when absent. Stored reflections are authoritative.
func (e *RecallEngine) Reflect(ctx context.Context, date time.Time) (*entities.Reflection, error) {
	if cached, err := e.store.GetReflection(ctx, entities.ReflectionDaily, date); err == nil {
		return cached, nil
	} else if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, "reflection lookup failed")
	}

	dayEvents, err := e.store.GetEventsForDate(ctx, date)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load events for reflection")
	}

	reflection := e.reflector.GenerateDaily(dayEvents, date, e.now())
	if err := e.store.StoreReflection(ctx, reflection); err != nil {
		return nil, errors.Wrap(err, "failed to store reflection")
	}
	e.emit(ctx, extensions.HookAfterReflectionGenerated,
		events.NewReflectionGenerated(reflection, e.now()))
	return reflection, nil
}

// ReflectWeek returns the weekly reflection for the week starting at
// weekStart, generating it from daily reflections when absent.
func (e *RecallEngine) ReflectWeek(ctx context.Context, weekStart time.Time) (*entities.Reflection, error) {
	if cached, err := e.store.GetReflection(ctx, entities.ReflectionWeekly, weekStart); err == nil {
		return cached, nil
	} else if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, "reflection lookup failed")
	}

	dailies := make([]*entities.Reflection, 0, 7)
	for day := 0; day < 7; day++ {
		daily, err := e.Reflect(ctx, weekStart.AddDate(0, 0, day))
		if err != nil {
			return nil, err
		}
		dailies = append(dailies, daily)
	}

	reflection := e.reflector.GenerateWeekly(dailies, weekStart, e.now())
	if err := e.store.StoreReflection(ctx, reflection); err != nil {
		return nil, errors.Wrap(err, "failed to store weekly reflection")
	}
	e.emit(ctx, extensions.HookAfterReflectionGenerated,
		events.NewReflectionGenerated(reflection, e.now()))
	return reflection, nil
}

// patternCacheTTL bounds staleness of cached pattern reports, seconds
const patternCacheTTL = 300

// AnalyzePatterns reports structure and rhythm over the trailing window.
// Reports are cached briefly since they walk the full window.
func (e *RecallEngine) AnalyzePatterns(ctx context.Context, windowDays int) (*PatternReport, error) {
	if windowDays <= 0 {
		windowDays = 30
	}

	cacheKey := "patterns:" + strconv.Itoa(windowDays)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, cacheKey); ok {
			if report, ok := cached.(*PatternReport); ok {
				return report, nil
			}
		}
	}

	events, err := e.store.GetRecentEvents(ctx, windowDays, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load events for pattern analysis")
	}

	report := &PatternReport{
		WindowDays:          windowDays,
		EventCount:          len(events),
		Graph:               e.graph.Statistics(),
		CentralEvents:       e.graph.CentralEvents(5),
		EmotionDistribution: make(map[valueobjects.Emotion]int),
		HourlyActivity:      make(map[int]int),
		ActorCounts:         make(map[entities.Actor]int),
	}

	threads := e.graph.ConversationThreads(e.cfg.ThreadMaxGap)
	report.ThreadCount = len(threads)
	for _, thread := range threads {
		if len(thread) > report.LongestThread {
			report.LongestThread = len(thread)
		}
	}

	salienceSum := 0.0
	for _, event := range events {
		report.HourlyActivity[event.Timestamp().Hour()]++
		report.ActorCounts[event.Actor()]++
		salienceSum += event.Salience().Score
		if emotion := event.Emotion(); !emotion.IsNeutral() {
			report.EmotionDistribution[emotion.PrimaryEmotion]++
		}
	}
	if len(events) > 0 {
		report.AverageSalience = salienceSum / float64(len(events))
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, report, patternCacheTTL); err != nil {
			e.logger.Warn("failed to cache pattern report", zap.Error(err))
		}
	}
	return report, nil
}

// RecalibrateWeights atomically swaps the salience weight profile
func (e *RecallEngine) RecalibrateWeights(ctx context.Context, weights config.SalienceWeights) error {
	if err := e.scorer.UpdateWeights(weights); err != nil {
		return err
	}
	e.emit(ctx, extensions.HookAfterRecalibration, events.NewWeightsRecalibrated(e.now()))
	return nil
}

// Related exposes graph traversal from a given event
func (e *RecallEngine) Related(id valueobjects.EventID, maxDepth int, minWeight float64, limit int) ([]aggregates.RelatedEvent, error) {
	if !e.graph.HasEvent(id) {
		return nil, errors.NewNotFoundError("event")
	}
	return e.graph.RelatedEvents(id, maxDepth, minWeight, limit), nil
}

// FormatDigest renders a reflection as a short human-readable digest
func FormatDigest(r *entities.Reflection) string {
	var b strings.Builder

	label := "Daily reflection"
	if r.Type == entities.ReflectionWeekly {
		label = "Weekly reflection"
	}
	b.WriteString(label)
	b.WriteString(" for ")
	b.WriteString(r.Date.Format("2006-01-02"))
	b.WriteString("\n\n")
	b.WriteString(r.Summary)
	b.WriteString("\n")

	if len(r.KeyThemes) > 0 {
		b.WriteString("\nThemes: ")
		b.WriteString(strings.Join(r.KeyThemes, ", "))
		b.WriteString("\n")
	}
	if len(r.LearningMoments) > 0 {
		b.WriteString("\nLearning moments:\n")
		for _, moment := range r.LearningMoments {
			b.WriteString("  - ")
			b.WriteString(moment)
			b.WriteString("\n")
		}
	}
	if len(r.MemorableQuotes) > 0 {
		b.WriteString("\nMemorable:\n")
		for _, quote := range r.MemorableQuotes {
			b.WriteString("  \"")
			b.WriteString(quote)
			b.WriteString("\"\n")
		}
	}
	return b.String()
}

// matchesFilters re-applies query filters to content-search results
func matchesFilters(event *entities.Event, f ports.EventFilters) bool {
	if f.Actor != "" && string(event.Actor()) != f.Actor {
		return false
	}
	if f.EventType != "" && string(event.Type()) != f.EventType {
		return false
	}
	if f.Emotion != "" && string(event.Emotion().PrimaryEmotion) != f.Emotion {
		return false
	}
	if f.MinSalience > 0 && event.Salience().Score < f.MinSalience {
		return false
	}
	if !f.Since.IsZero() && event.Timestamp().Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && event.Timestamp().After(f.Until) {
		return false
	}
	return true
}

// termSet tokenizes a query the same way event keywords are extracted
func termSet(query string) map[string]bool {
	if query == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, keyword := range entities.ExtractKeywords(query) {
		set[keyword] = true
	}
	return set
}
