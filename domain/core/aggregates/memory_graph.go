package aggregates

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mnemo/domain/config"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/validators"
	"mnemo/domain/core/valueobjects"
)

// EdgeType defines the kind of relationship discovered between two events
type EdgeType string

const (
	EdgeTypeSemantic  EdgeType = "semantic"
	EdgeTypeTemporal  EdgeType = "temporal"
	EdgeTypeEmotional EdgeType = "emotional"
	EdgeTypeActor     EdgeType = "actor"
	EdgeTypeCausal    EdgeType = "causal"
	EdgeTypeResponse  EdgeType = "response"
)

// Edge represents a weighted relationship between two events.
// Each edge is stored once and indexed from both endpoints, so neighbor
// lookup is O(1) in either direction.
type Edge struct {
	ID        string
	SourceID  valueobjects.EventID
	TargetID  valueobjects.EventID
	Type      EdgeType
	Weight    float64
	CreatedAt time.Time

	source, target int // stable node indices
}

// RelatedEvent is a traversal result with its cumulative path weight
type RelatedEvent struct {
	EventID valueobjects.EventID
	Weight  float64
	Depth   int
}

// CentralEvent pairs an event with its centrality measure
type CentralEvent struct {
	EventID    valueobjects.EventID
	Centrality float64
	Degree     int
}

// GraphStatistics summarizes the structure of the memory graph
type GraphStatistics struct {
	NodeCount         int
	EdgeCount         int
	Density           float64
	AverageDegree     float64
	EdgeTypeCounts    map[EdgeType]int
	IsolatedNodes     int
	LargestComponent  int
	AverageClustering float64
}

// graphNode is one entry in the node table. Indices are stable for the
// lifetime of the graph; a rebuild starts a fresh table.
type graphNode struct {
	event *entities.Event
	edges []int // indices into the edge list, both directions
}

// MemoryGraph maintains weighted relationship edges between events.
// A single node table with stable integer indices plus one shared edge
// list avoids the drift risk of parallel forward/reverse adjacency maps.
//
// The similarity scan runs on a read snapshot; only the edge insert is
// serialized behind the write lock.
type MemoryGraph struct {
	mu        sync.RWMutex
	cfg       *config.MemoryConfig
	logger    *zap.Logger
	edgeRules *validators.EdgeValidator

	nodes []*graphNode
	index map[valueobjects.EventID]int
	edges []*Edge
}

// NewMemoryGraph creates an empty memory graph
func NewMemoryGraph(cfg *config.MemoryConfig, logger *zap.Logger) *MemoryGraph {
	return &MemoryGraph{
		cfg:       cfg,
		logger:    logger,
		edgeRules: validators.NewEdgeValidator(),
		index:     make(map[valueobjects.EventID]int),
	}
}

// edgeProposal is a candidate edge produced by the similarity scan
type edgeProposal struct {
	target int
	kind   EdgeType
	weight float64
}

// AddEvent indexes an event into the graph, discovering edges to existing
// events along every similarity dimension. Only the strongest
// MaxConnections proposals are kept. A failed comparison against a single
// candidate is logged and skipped, never aborting the insert.
func (g *MemoryGraph) AddEvent(event *entities.Event) []*Edge {
	if event == nil {
		return nil
	}

	g.mu.RLock()
	if _, exists := g.index[event.ID()]; exists {
		g.mu.RUnlock()
		return nil
	}
	// Snapshot the node table for the scan. Nodes are append-only, so the
	// slice header is a consistent view.
	snapshot := g.nodes
	g.mu.RUnlock()

	proposals := g.scanCandidates(event, snapshot)

	// Strongest first, cap at MaxConnections.
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].weight != proposals[j].weight {
			return proposals[i].weight > proposals[j].weight
		}
		return proposals[i].target < proposals[j].target
	})
	if len(proposals) > g.cfg.MaxConnections {
		proposals = proposals[:g.cfg.MaxConnections]
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sourceIdx := len(g.nodes)
	g.nodes = append(g.nodes, &graphNode{event: event})
	g.index[event.ID()] = sourceIdx

	created := make([]*Edge, 0, len(proposals))
	for _, p := range proposals {
		if p.target >= len(g.nodes) || g.nodes[p.target] == nil {
			continue
		}
		targetID := g.nodes[p.target].event.ID()
		if err := g.edgeRules.ValidateEdge(event.ID().String(), targetID.String()); err != nil {
			g.logger.Warn("rejected edge proposal", zap.Error(err))
			continue
		}
		if err := g.edgeRules.ValidateEdgeWeight(p.weight); err != nil {
			g.logger.Warn("rejected edge proposal", zap.Error(err))
			continue
		}
		edge := &Edge{
			ID:        uuid.New().String(),
			SourceID:  event.ID(),
			TargetID:  targetID,
			Type:      p.kind,
			Weight:    p.weight,
			CreatedAt: time.Now(),
			source:    sourceIdx,
			target:    p.target,
		}
		edgeIdx := len(g.edges)
		g.edges = append(g.edges, edge)
		g.nodes[sourceIdx].edges = append(g.nodes[sourceIdx].edges, edgeIdx)
		g.nodes[p.target].edges = append(g.nodes[p.target].edges, edgeIdx)
		created = append(created, edge)

		// The target may now exceed its connection budget.
		g.enforceConnectionLimitLocked(p.target)
	}

	return created
}

// scanCandidates compares the event against every existing node along the
// similarity dimensions and both pattern detectors.
func (g *MemoryGraph) scanCandidates(event *entities.Event, snapshot []*graphNode) []edgeProposal {
	terms := event.TermSet()
	content := strings.ToLower(event.Content())

	start := 0
	if g.cfg.MaxSimilarityScan > 0 && len(snapshot) > g.cfg.MaxSimilarityScan {
		start = len(snapshot) - g.cfg.MaxSimilarityScan
	}

	var proposals []edgeProposal
	for idx := start; idx < len(snapshot); idx++ {
		node := snapshot[idx]
		if node == nil || node.event.ID().Equals(event.ID()) {
			continue
		}
		pairProposals, err := g.compare(event, terms, content, node.event, idx)
		if err != nil {
			g.logger.Warn("similarity computation failed, skipping candidate",
				zap.String("event_id", event.ID().String()),
				zap.String("candidate_id", node.event.ID().String()),
				zap.Error(err),
			)
			continue
		}
		proposals = append(proposals, pairProposals...)
	}
	return proposals
}

// compare evaluates all similarity dimensions for a single candidate pair
func (g *MemoryGraph) compare(event *entities.Event, terms map[string]bool, content string, other *entities.Event, otherIdx int) ([]edgeProposal, error) {
	var proposals []edgeProposal

	add := func(kind EdgeType, sim, threshold, multiplier float64) {
		if sim >= threshold {
			weight := sim * multiplier
			if weight > 1 {
				weight = 1
			}
			if weight > 0 {
				proposals = append(proposals, edgeProposal{target: otherIdx, kind: kind, weight: weight})
			}
		}
	}

	add(EdgeTypeSemantic, semanticSimilarity(terms, other.TermSet()),
		g.cfg.Thresholds.Semantic, g.cfg.Multipliers.Semantic)
	add(EdgeTypeTemporal, temporalSimilarity(event.Timestamp(), other.Timestamp(), g.cfg.TemporalWindow),
		g.cfg.Thresholds.Temporal, g.cfg.Multipliers.Temporal)
	add(EdgeTypeEmotional, emotionalSimilarity(event.Emotion(), other.Emotion()),
		g.cfg.Thresholds.Emotional, g.cfg.Multipliers.Emotional)
	add(EdgeTypeActor, actorAffinity(event.Actor(), other.Actor()),
		g.cfg.Thresholds.Actor, g.cfg.Multipliers.Actor)
	add(EdgeTypeCausal, causalSimilarity(content, event.Timestamp(), other.Timestamp(), g.cfg.CausalWindow),
		g.cfg.Thresholds.Causal, g.cfg.Multipliers.Causal)
	add(EdgeTypeResponse, responseSimilarity(event, content, other, g.cfg.ResponseWindow),
		g.cfg.Thresholds.Response, g.cfg.Multipliers.Response)

	return proposals, nil
}

// enforceConnectionLimitLocked drops the weakest edge of a node while it
// exceeds MaxConnections. Caller must hold the write lock.
func (g *MemoryGraph) enforceConnectionLimitLocked(nodeIdx int) {
	node := g.nodes[nodeIdx]
	for len(node.edges) > g.cfg.MaxConnections {
		weakest := -1
		for _, edgeIdx := range node.edges {
			if g.edges[edgeIdx] == nil {
				continue
			}
			if weakest == -1 || g.edges[edgeIdx].Weight < g.edges[weakest].Weight {
				weakest = edgeIdx
			}
		}
		if weakest == -1 {
			return
		}
		g.removeEdgeLocked(weakest)
	}
}

// removeEdgeLocked detaches an edge from both endpoints and tombstones it
func (g *MemoryGraph) removeEdgeLocked(edgeIdx int) {
	edge := g.edges[edgeIdx]
	if edge == nil {
		return
	}
	for _, nodeIdx := range []int{edge.source, edge.target} {
		node := g.nodes[nodeIdx]
		if node == nil {
			continue
		}
		kept := node.edges[:0]
		for _, ei := range node.edges {
			if ei != edgeIdx {
				kept = append(kept, ei)
			}
		}
		node.edges = kept
	}
	g.edges[edgeIdx] = nil
}

// HasEvent reports whether an event is indexed in the graph
func (g *MemoryGraph) HasEvent(id valueobjects.EventID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[id]
	return ok
}

// NodeEdges returns the edges incident to an event, strongest first
func (g *MemoryGraph) NodeEdges(id valueobjects.EventID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]*Edge, 0, len(g.nodes[idx].edges))
	for _, edgeIdx := range g.nodes[idx].edges {
		if g.edges[edgeIdx] != nil {
			out = append(out, g.edges[edgeIdx])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// RelatedEvents performs a weighted breadth-first traversal from the given
// event. Path weight is the product of edge weights along the path;
// branches below minWeight or beyond maxDepth are pruned. The start event
// is excluded and each node is visited at most once. Results are sorted by
// descending cumulative weight and truncated to maxResults.
func (g *MemoryGraph) RelatedEvents(id valueobjects.EventID, maxDepth int, minWeight float64, maxResults int) []RelatedEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()

	startIdx, ok := g.index[id]
	if !ok {
		return nil
	}

	type frontierEntry struct {
		node   int
		weight float64
		depth  int
	}

	visited := map[int]bool{startIdx: true}
	var results []RelatedEvent
	queue := []frontierEntry{{node: startIdx, weight: 1.0, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		for _, edgeIdx := range g.nodes[current.node].edges {
			edge := g.edges[edgeIdx]
			if edge == nil {
				continue
			}
			next := edge.target
			if next == current.node {
				next = edge.source
			}
			if visited[next] {
				continue
			}
			pathWeight := current.weight * edge.Weight
			if pathWeight < minWeight {
				continue
			}
			visited[next] = true
			results = append(results, RelatedEvent{
				EventID: g.nodes[next].event.ID(),
				Weight:  pathWeight,
				Depth:   current.depth + 1,
			})
			queue = append(queue, frontierEntry{node: next, weight: pathWeight, depth: current.depth + 1})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		return results[i].EventID.String() < results[j].EventID.String()
	})
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// CentralEvents returns the most connected events, ranked by the sum of
// incident edge weights scaled by a logarithmic degree factor.
func (g *MemoryGraph) CentralEvents(limit int) []CentralEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]CentralEvent, 0, len(g.nodes))
	for _, node := range g.nodes {
		if node == nil {
			continue
		}
		degree := 0
		weightSum := 0.0
		for _, edgeIdx := range node.edges {
			if g.edges[edgeIdx] == nil {
				continue
			}
			degree++
			weightSum += g.edges[edgeIdx].Weight
		}
		centrality := weightSum * (1 + math.Log(1+float64(degree)))
		out = append(out, CentralEvent{
			EventID:    node.event.ID(),
			Centrality: centrality,
			Degree:     degree,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Centrality != out[j].Centrality {
			return out[i].Centrality > out[j].Centrality
		}
		return out[i].EventID.String() < out[j].EventID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ConversationThreads sorts events by time and splits them into runs
// wherever the gap exceeds maxGap. Runs shorter than two events are
// discarded.
func (g *MemoryGraph) ConversationThreads(maxGap time.Duration) [][]valueobjects.EventID {
	g.mu.RLock()
	events := make([]*entities.Event, 0, len(g.nodes))
	for _, node := range g.nodes {
		if node != nil {
			events = append(events, node.event)
		}
	}
	g.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp().Before(events[j].Timestamp())
	})

	var threads [][]valueobjects.EventID
	var run []valueobjects.EventID
	var last time.Time
	for i, event := range events {
		if i > 0 && event.Timestamp().Sub(last) > maxGap {
			if len(run) >= 2 {
				threads = append(threads, run)
			}
			run = nil
		}
		run = append(run, event.ID())
		last = event.Timestamp()
	}
	if len(run) >= 2 {
		threads = append(threads, run)
	}
	return threads
}

// Statistics computes structural metrics for the whole graph
func (g *MemoryGraph) Statistics() GraphStatistics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := GraphStatistics{EdgeTypeCounts: make(map[EdgeType]int)}

	liveEdges := 0
	for _, edge := range g.edges {
		if edge != nil {
			liveEdges++
			stats.EdgeTypeCounts[edge.Type]++
		}
	}

	liveNodes := 0
	degreeSum := 0
	for _, node := range g.nodes {
		if node == nil {
			continue
		}
		liveNodes++
		degree := g.degreeLocked(node)
		degreeSum += degree
		if degree == 0 {
			stats.IsolatedNodes++
		}
	}

	stats.NodeCount = liveNodes
	stats.EdgeCount = liveEdges
	if liveNodes > 1 {
		stats.Density = float64(liveEdges) / float64(liveNodes*(liveNodes-1))
	}
	if liveNodes > 0 {
		stats.AverageDegree = float64(degreeSum) / float64(liveNodes)
	}
	stats.LargestComponent = g.largestComponentLocked()
	stats.AverageClustering = g.averageClusteringLocked()

	return stats
}

func (g *MemoryGraph) degreeLocked(node *graphNode) int {
	degree := 0
	for _, edgeIdx := range node.edges {
		if g.edges[edgeIdx] != nil {
			degree++
		}
	}
	return degree
}

// neighborsLocked returns the distinct neighbor indices of a node
func (g *MemoryGraph) neighborsLocked(nodeIdx int) map[int]bool {
	neighbors := make(map[int]bool)
	for _, edgeIdx := range g.nodes[nodeIdx].edges {
		edge := g.edges[edgeIdx]
		if edge == nil {
			continue
		}
		next := edge.target
		if next == nodeIdx {
			next = edge.source
		}
		neighbors[next] = true
	}
	return neighbors
}

// largestComponentLocked finds the size of the largest connected component
// via breadth-first search over the undirected edge set.
func (g *MemoryGraph) largestComponentLocked() int {
	visited := make(map[int]bool)
	largest := 0
	for idx, node := range g.nodes {
		if node == nil || visited[idx] {
			continue
		}
		size := 0
		queue := []int{idx}
		visited[idx] = true
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			size++
			for neighbor := range g.neighborsLocked(current) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		if size > largest {
			largest = size
		}
	}
	return largest
}

// averageClusteringLocked computes the mean local clustering coefficient:
// the fraction of a node's neighbor pairs that are themselves connected.
func (g *MemoryGraph) averageClusteringLocked() float64 {
	liveNodes := 0
	total := 0.0
	for idx, node := range g.nodes {
		if node == nil {
			continue
		}
		liveNodes++
		neighbors := g.neighborsLocked(idx)
		k := len(neighbors)
		if k < 2 {
			continue
		}
		links := 0
		for a := range neighbors {
			for b := range g.neighborsLocked(a) {
				if a < b && neighbors[b] {
					links++
				}
			}
		}
		total += 2.0 * float64(links) / float64(k*(k-1))
	}
	if liveNodes == 0 {
		return 0
	}
	return total / float64(liveNodes)
}

// Rebuild replaces the graph contents from a full event set, recomputing
// all edges. Used after a bulk restore or retention cleanup.
func (g *MemoryGraph) Rebuild(events []*entities.Event) {
	sorted := make([]*entities.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})

	g.mu.Lock()
	g.nodes = nil
	g.edges = nil
	g.index = make(map[valueobjects.EventID]int)
	g.mu.Unlock()

	for _, event := range sorted {
		g.AddEvent(event)
	}
}

// Similarity dimensions

// semanticSimilarity is the Jaccard overlap of significant term sets
func semanticSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for term := range a {
		if b[term] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// temporalSimilarity decays exponentially with the gap between events.
// Gaps of an hour or less score the maximum.
func temporalSimilarity(a, b time.Time, window time.Duration) float64 {
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	if gap <= time.Hour {
		return 1.0
	}
	if gap > window {
		return 0
	}
	return math.Exp2(-gap.Hours() / 12.0)
}

// emotionalSimilarity blends primary-emotion match, fingerprint overlap
// and valence/arousal closeness.
func emotionalSimilarity(a, b valueobjects.EmotionAnalysis) float64 {
	if a.IsNeutral() || b.IsNeutral() {
		return 0
	}
	primaryMatch := 0.0
	if a.PrimaryEmotion == b.PrimaryEmotion {
		primaryMatch = 1.0
	}
	overlap := valueobjects.FingerprintOverlap(a.Fingerprint, b.Fingerprint)
	distance := (math.Abs(a.Valence-b.Valence) + math.Abs(a.Arousal-b.Arousal)) / 4.0
	closeness := 1.0 - distance

	return 0.5*primaryMatch + 0.3*overlap + 0.2*closeness
}

// actorAffinity scores exact and conversational-pair actor matches
func actorAffinity(a, b entities.Actor) float64 {
	if a == b {
		return 1.0
	}
	conversational := func(x entities.Actor) bool {
		return x == entities.ActorUser || x == entities.ActorAgent
	}
	if conversational(a) && conversational(b) {
		return 0.6
	}
	return 0.2
}

// causalMarkers are phrases that signal the new event is a consequence
var causalMarkers = []string{
	"because of", "because", "therefore", "as a result", "which led to",
	"that's why", "due to", "consequently", "so i", "which is why",
}

// causalSimilarity detects consequence phrasing in the new event paired
// with short time-after ordering relative to the candidate.
func causalSimilarity(content string, eventTime, otherTime time.Time, window time.Duration) float64 {
	gap := eventTime.Sub(otherTime)
	if gap <= 0 || gap > window {
		return 0
	}
	for _, marker := range causalMarkers {
		if strings.Contains(content, marker) {
			return 0.6 + 0.4*(1.0-gap.Hours()/window.Hours())
		}
	}
	return 0
}

// answerIndicators suggest the new event answers a prior question
var answerIndicators = []string{
	"yes", "no", "maybe", "sure", "probably", "definitely", "of course",
	"i think", "i believe", "it depends", "the answer",
}

// responseSimilarity detects a question in the candidate answered by the
// new event from the other conversational party shortly after.
func responseSimilarity(event *entities.Event, content string, other *entities.Event, window time.Duration) float64 {
	if !strings.Contains(other.Content(), "?") {
		return 0
	}
	gap := event.Timestamp().Sub(other.Timestamp())
	if gap <= 0 || gap > window {
		return 0
	}
	if event.Actor() == other.Actor() {
		return 0
	}
	for _, indicator := range answerIndicators {
		if strings.HasPrefix(content, indicator) || strings.Contains(content, " "+indicator) {
			return 0.5 + 0.5*(1.0-gap.Minutes()/window.Minutes())
		}
	}
	return 0
}
