package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depsOf(edges map[string][]string) func(string) []string {
	return func(name string) []string { return edges[name] }
}

func TestTopoOrder_RespectsDependencies(t *testing.T) {
	names := []string{"a", "b", "c"}
	edges := map[string][]string{
		"b": {"a"},
		"c": {"b"},
	}
	d, err := newDAG(names, depsOf(edges))
	require.NoError(t, err)

	order, err := d.topoOrder()
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestTopoOrder_DetectsCycle(t *testing.T) {
	names := []string{"a", "b"}
	edges := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	d, err := newDAG(names, depsOf(edges))
	require.NoError(t, err)

	_, err = d.topoOrder()
	assert.Error(t, err)
}

func TestNewDAG_UnknownDependency(t *testing.T) {
	names := []string{"a"}
	edges := map[string][]string{
		"a": {"ghost"},
	}
	_, err := newDAG(names, depsOf(edges))
	assert.Error(t, err)
}

func TestTransitiveSuccessors(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	edges := map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {"a"},
	}
	d, err := newDAG(names, depsOf(edges))
	require.NoError(t, err)

	succ := d.transitiveSuccessors("a")
	assert.ElementsMatch(t, []string{"b", "c", "d"}, succ)
}

func TestPredecessorsAndSuccessors(t *testing.T) {
	names := []string{"a", "b"}
	edges := map[string][]string{"b": {"a"}}
	d, err := newDAG(names, depsOf(edges))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, d.predecessorsOf("b"))
	assert.Equal(t, []string{"b"}, d.successorsOf("a"))
}
