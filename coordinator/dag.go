package coordinator

import (
	"fmt"

	rerrors "github.com/arc-framework/readiness/pkg/errors"
)

// dag is an index-based adjacency-list representation of a stage's
// dependency graph (spec §9 design note: "internally represented as an
// index-based adjacency list... to avoid cyclic owning references and to
// make Kahn's algorithm straightforward"), grounded on the corpus's
// other_examples dag executors (script-weaver's canonical-index
// adjacency list, the SWARM-INTELLIGENCE-NETWORK dag_engine) which use
// the same integer-id-over-pointer shape for exactly this reason.
type dag struct {
	names    []string
	index    map[string]int
	outgoing [][]int // outgoing[u] = successors of u
	incoming [][]int // incoming[v] = predecessors of v
}

// newDAG builds a dag over the given signal names plus a predecessor
// lookup (successor name -> predecessor names). An edge to/from a name
// outside names is an unknown-dependency configuration error.
func newDAG(names []string, dependenciesOf func(name string) []string) (*dag, error) {
	d := &dag{
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		d.index[n] = i
		d.names = append(d.names, n)
	}
	d.outgoing = make([][]int, len(names))
	d.incoming = make([][]int, len(names))

	for _, successor := range names {
		v := d.index[successor]
		for _, predecessor := range dependenciesOf(successor) {
			u, ok := d.index[predecessor]
			if !ok {
				return nil, rerrors.NewConfigurationError(fmt.Sprintf("unknown dependency %q required by %q", predecessor, successor))
			}
			d.outgoing[u] = append(d.outgoing[u], v)
			d.incoming[v] = append(d.incoming[v], u)
		}
	}
	return d, nil
}

// topoOrder runs Kahn's algorithm and returns a valid topological order,
// or a configuration error if the graph contains a cycle (spec §3
// Dependency graph: "Must be acyclic; a cycle is a configuration error
// detected at phase entry").
func (d *dag) topoOrder() ([]string, error) {
	inDegree := make([]int, len(d.names))
	for v, preds := range d.incoming {
		inDegree[v] = len(preds)
	}

	queue := make([]int, 0, len(d.names))
	for i, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, len(d.names))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, d.names[u])
		for _, v := range d.outgoing[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if len(order) != len(d.names) {
		return nil, rerrors.NewConfigurationError("dependency graph contains a cycle")
	}
	return order, nil
}

// predecessorsOf returns the direct predecessor names of a signal.
func (d *dag) predecessorsOf(name string) []string {
	u, ok := d.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(d.incoming[u]))
	for _, p := range d.incoming[u] {
		out = append(out, d.names[p])
	}
	return out
}

// successorsOf returns the direct successor names of a signal.
func (d *dag) successorsOf(name string) []string {
	u, ok := d.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(d.outgoing[u]))
	for _, s := range d.outgoing[u] {
		out = append(out, d.names[s])
	}
	return out
}

// transitiveSuccessors returns every signal reachable from name via
// outgoing edges (used to cascade Skipped(dependency_failed) to every
// downstream consumer of a failed predecessor, spec §4.F step 3
// DependencyAware).
func (d *dag) transitiveSuccessors(name string) []string {
	u, ok := d.index[name]
	if !ok {
		return nil
	}
	visited := make([]bool, len(d.names))
	var out []string
	var visit func(int)
	visit = func(x int) {
		for _, v := range d.outgoing[x] {
			if !visited[v] {
				visited[v] = true
				out = append(out, d.names[v])
				visit(v)
			}
		}
	}
	visit(u)
	return out
}
