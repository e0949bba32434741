package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

type graphSource struct {
	edges  map[string][]string
	calls  int
	failAt int
}

func (g *graphSource) GetOutgoingReferrals(_ context.Context, _ string, ids []string) (map[string][]string, error) {
	g.calls++
	if g.failAt > 0 && g.calls == g.failAt {
		return nil, errors.New("соединение потеряно")
	}
	out := make(map[string][]string)
	for _, id := range ids {
		if children, ok := g.edges[id]; ok {
			out[id] = children
		}
	}
	return out, nil
}

func TestAnalyze_WidthAndDepth(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"d": {"e"},
		"e": {"f"},
		"x": {"y"},
	}}
	analyzer := NewAnalyzer(src, zap.NewNop())

	result := analyzer.Analyze(context.Background(), "agent-1", []string{"a", "x", "lonely"})

	assert.Equal(t, []models.NetworkData{
		{ClientID: "a", Width: 2, Depth: 3},
		{ClientID: "x", Width: 1, Depth: 1},
		{ClientID: "lonely", Width: 0, Depth: 1},
	}, result)
	assert.LessOrEqual(t, src.calls, MaxDepth)
}

func TestAnalyze_DepthTwo(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a"})

	assert.Equal(t, 1, result[0].Width)
	assert.Equal(t, 2, result[0].Depth)
}

func TestAnalyze_CycleDoesNotInflateDepth(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a", "b"})

	assert.Equal(t, models.NetworkData{ClientID: "a", Width: 1, Depth: 1}, result[0])
	assert.Equal(t, models.NetworkData{ClientID: "b", Width: 1, Depth: 1}, result[1])
}

func TestAnalyze_SelfLoop(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"a": {"a"},
	}}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a"})

	assert.Equal(t, 1, result[0].Width)
	assert.Equal(t, 1, result[0].Depth)
}

func TestAnalyze_ZeroWidthForcesDepthOne(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"b": {"c"},
		"c": {"d"},
	}}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a"})

	assert.Equal(t, models.NetworkData{ClientID: "a", Width: 0, Depth: 1}, result[0])
}

func TestAnalyze_FirstQueryFailureDefaults(t *testing.T) {
	src := &graphSource{edges: map[string][]string{"a": {"b"}}, failAt: 1}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a", "b"})

	assert.Equal(t, []models.NetworkData{
		{ClientID: "a", Width: 0, Depth: 1},
		{ClientID: "b", Width: 0, Depth: 1},
	}, result)
}

func TestAnalyze_LaterFailureKeepsWidth(t *testing.T) {
	src := &graphSource{edges: map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
	}, failAt: 2}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", []string{"a"})

	assert.Equal(t, models.NetworkData{ClientID: "a", Width: 2, Depth: 1}, result[0])
}

func TestAnalyze_Empty(t *testing.T) {
	src := &graphSource{}
	result := NewAnalyzer(src, zap.NewNop()).Analyze(context.Background(), "agent-1", nil)

	assert.Empty(t, result)
	assert.Equal(t, 0, src.calls)
}

func TestByClient(t *testing.T) {
	m := ByClient([]models.NetworkData{{ClientID: "a", Width: 2, Depth: 2}})
	assert.Equal(t, 2, m["a"].Width)
}
