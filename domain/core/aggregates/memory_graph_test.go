package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemo/domain/config"
	"mnemo/domain/core/entities"
)

var graphBase = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestGraph(t *testing.T) *MemoryGraph {
	t.Helper()
	return NewMemoryGraph(config.DefaultMemoryConfig(), zap.NewNop())
}

func graphEvent(t *testing.T, content string, actor entities.Actor, ts time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(content, actor, entities.EventTypeInteraction, ts)
	require.NoError(t, err)
	return event
}

func TestAddFirstEventNoEdges(t *testing.T) {
	graph := newTestGraph(t)

	event := graphEvent(t, "moved into the new apartment downtown", entities.ActorUser, graphBase)
	edges := graph.AddEvent(event)

	assert.Empty(t, edges)
	assert.True(t, graph.HasEvent(event.ID()))
}

func TestSemanticEdgeBetweenSimilarEvents(t *testing.T) {
	graph := newTestGraph(t)

	// Different actors and a gap past the temporal window isolate the
	// semantic dimension.
	first := graphEvent(t, "planning the garden vegetable beds layout", entities.ActorUser, graphBase)
	second := graphEvent(t, "finished the garden vegetable beds today", entities.ActorSystem, graphBase.Add(72*time.Hour))

	graph.AddEvent(first)
	edges := graph.AddEvent(second)

	require.NotEmpty(t, edges)
	found := false
	for _, edge := range edges {
		if edge.Type == EdgeTypeSemantic {
			found = true
			assert.Greater(t, edge.Weight, 0.0)
			assert.LessOrEqual(t, edge.Weight, 1.0)
		}
	}
	assert.True(t, found, "expected a semantic edge")
	assert.NotEmpty(t, graph.NodeEdges(first.ID()))
}

func TestNoEdgeBetweenUnrelatedEvents(t *testing.T) {
	graph := newTestGraph(t)

	first := graphEvent(t, "watching migrating birds over the estuary", entities.ActorUser, graphBase)
	second := graphEvent(t, "compiled quarterly spreadsheet numbers", entities.ActorSystem, graphBase.Add(100*time.Hour))

	graph.AddEvent(first)
	edges := graph.AddEvent(second)

	assert.Empty(t, edges)
}

func TestTemporalEdgeWithinWindow(t *testing.T) {
	graph := newTestGraph(t)

	first := graphEvent(t, "watching migrating birds over the estuary", entities.ActorUser, graphBase)
	second := graphEvent(t, "compiled quarterly spreadsheet numbers", entities.ActorSystem, graphBase.Add(30*time.Minute))

	graph.AddEvent(first)
	edges := graph.AddEvent(second)

	require.NotEmpty(t, edges)
	assert.Equal(t, EdgeTypeTemporal, edges[0].Type)
}

func TestActorEdgeSameActor(t *testing.T) {
	graph := newTestGraph(t)

	first := graphEvent(t, "watching migrating birds over the estuary", entities.ActorUser, graphBase)
	second := graphEvent(t, "compiled quarterly spreadsheet numbers", entities.ActorUser, graphBase.Add(100*time.Hour))

	graph.AddEvent(first)
	edges := graph.AddEvent(second)

	require.Len(t, edges, 1)
	assert.Equal(t, EdgeTypeActor, edges[0].Type)
}

func TestConnectionLimitEnforced(t *testing.T) {
	cfg := config.DefaultMemoryConfig()
	cfg.MaxConnections = 2
	graph := NewMemoryGraph(cfg, zap.NewNop())

	hub := graphEvent(t, "training for the spring marathon race", entities.ActorUser, graphBase)
	graph.AddEvent(hub)

	for i := 0; i < 5; i++ {
		satellite := graphEvent(t, "another long marathon training race run", entities.ActorUser,
			graphBase.Add(time.Duration(i+1)*time.Minute))
		graph.AddEvent(satellite)
	}

	assert.LessOrEqual(t, len(graph.NodeEdges(hub.ID())), cfg.MaxConnections)
}

func TestRelatedEventsTransitive(t *testing.T) {
	graph := newTestGraph(t)

	// A~B and B~C share terms; A and C share none. Actor and time
	// dimensions are kept out of range so only semantic edges form.
	a := graphEvent(t, "alpha beta gamma delta", entities.ActorUser, graphBase)
	b := graphEvent(t, "gamma delta epsilon zeta", entities.ActorAgent, graphBase.Add(80*time.Hour))
	c := graphEvent(t, "epsilon zeta theta kappa", entities.ActorSystem, graphBase.Add(160*time.Hour))

	graph.AddEvent(a)
	graph.AddEvent(b)
	graph.AddEvent(c)

	related := graph.RelatedEvents(a.ID(), 2, 0.05, 10)

	ids := make(map[string]int)
	for _, r := range related {
		ids[r.EventID.String()] = r.Depth
	}
	assert.Equal(t, 1, ids[b.ID().String()])
	assert.Equal(t, 2, ids[c.ID().String()])
	assert.NotContains(t, ids, a.ID().String(), "start event must be excluded")
}

func TestRelatedEventsSortedByDescendingWeight(t *testing.T) {
	graph := newTestGraph(t)

	// Term overlap with the start event decreases from high to low;
	// actor and time dimensions are kept out of range so the direct
	// semantic weights alone decide the order.
	start := graphEvent(t, "reading novel sailing ships ocean storms", entities.ActorUser, graphBase)
	high := graphEvent(t, "reading novel sailing ships tonight", entities.ActorSystem, graphBase.Add(72*time.Hour))
	mid := graphEvent(t, "reading novel sailing plans", entities.ActorAgent, graphBase.Add(144*time.Hour))
	low := graphEvent(t, "ocean storms ships battered coastal village", entities.ActorSystem, graphBase.Add(216*time.Hour))

	graph.AddEvent(start)
	graph.AddEvent(high)
	graph.AddEvent(mid)
	graph.AddEvent(low)

	related := graph.RelatedEvents(start.ID(), 2, 0.1, 10)

	require.Len(t, related, 3)
	assert.Equal(t, high.ID(), related[0].EventID)
	for i := 1; i < len(related); i++ {
		assert.GreaterOrEqual(t, related[i-1].Weight, related[i].Weight)
	}
	assert.InDelta(t, 4.0/7.0, related[0].Weight, 0.01)
}

func TestRelatedEventsDepthPrune(t *testing.T) {
	graph := newTestGraph(t)

	a := graphEvent(t, "alpha beta gamma delta", entities.ActorUser, graphBase)
	b := graphEvent(t, "gamma delta epsilon zeta", entities.ActorAgent, graphBase.Add(80*time.Hour))
	c := graphEvent(t, "epsilon zeta theta kappa", entities.ActorSystem, graphBase.Add(160*time.Hour))

	graph.AddEvent(a)
	graph.AddEvent(b)
	graph.AddEvent(c)

	related := graph.RelatedEvents(a.ID(), 1, 0.05, 10)
	require.Len(t, related, 1)
	assert.Equal(t, b.ID(), related[0].EventID)
}

func TestRelatedEventsUnknownID(t *testing.T) {
	graph := newTestGraph(t)
	stranger := graphEvent(t, "never added to this graph", entities.ActorUser, graphBase)

	assert.Empty(t, graph.RelatedEvents(stranger.ID(), 2, 0.1, 10))
}

func TestCentralEventsRankHub(t *testing.T) {
	graph := newTestGraph(t)

	hub := graphEvent(t, "weekend climbing trip with rope practice", entities.ActorUser, graphBase)
	graph.AddEvent(hub)
	for i := 0; i < 3; i++ {
		graph.AddEvent(graphEvent(t, "more climbing rope practice notes", entities.ActorUser,
			graphBase.Add(time.Duration(i+1)*10*time.Minute)))
	}
	loner := graphEvent(t, "replaced the kitchen faucet washer", entities.ActorSystem, graphBase.Add(200*time.Hour))
	graph.AddEvent(loner)

	central := graph.CentralEvents(10)
	require.NotEmpty(t, central)
	assert.Greater(t, central[0].Centrality, 0.0)
	assert.Greater(t, central[0].Degree, 0)
	// The isolated event cannot outrank connected ones.
	assert.NotEqual(t, loner.ID(), central[0].EventID)
}

func TestConversationThreads(t *testing.T) {
	cfg := config.DefaultMemoryConfig()
	graph := NewMemoryGraph(cfg, zap.NewNop())

	times := []time.Duration{0, 10 * time.Minute, 20 * time.Minute, 2 * time.Hour, 2*time.Hour + 10*time.Minute}
	for i, offset := range times {
		graph.AddEvent(graphEvent(t, "thread message number "+string(rune('a'+i)), entities.ActorUser, graphBase.Add(offset)))
	}

	threads := graph.ConversationThreads(cfg.ThreadMaxGap)
	require.Len(t, threads, 2)
	assert.Len(t, threads[0], 3)
	assert.Len(t, threads[1], 2)
}

func TestStatistics(t *testing.T) {
	graph := newTestGraph(t)

	a := graphEvent(t, "gamma delta reading list", entities.ActorUser, graphBase)
	b := graphEvent(t, "gamma delta reading notes", entities.ActorUser, graphBase.Add(10*time.Minute))
	graph.AddEvent(a)
	graph.AddEvent(b)

	stats := graph.Statistics()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Greater(t, stats.EdgeCount, 0)
	assert.Equal(t, 2, stats.LargestComponent)
	assert.Zero(t, stats.IsolatedNodes)
}

func TestRebuildReplacesContents(t *testing.T) {
	graph := newTestGraph(t)

	old := graphEvent(t, "old memory to be dropped", entities.ActorUser, graphBase)
	graph.AddEvent(old)

	kept1 := graphEvent(t, "gamma delta reading list", entities.ActorUser, graphBase.Add(time.Hour))
	kept2 := graphEvent(t, "gamma delta reading notes", entities.ActorUser, graphBase.Add(2*time.Hour))
	graph.Rebuild([]*entities.Event{kept2, kept1})

	assert.False(t, graph.HasEvent(old.ID()))
	assert.True(t, graph.HasEvent(kept1.ID()))
	assert.True(t, graph.HasEvent(kept2.ID()))
	assert.Greater(t, graph.Statistics().EdgeCount, 0)
}
