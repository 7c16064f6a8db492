package schedule

import (
	"errors"
	"fmt"

	"github.com/planwright/planwright/internal/domain/task"
)

// ErrCyclicDependency is returned when the task dependency graph contains a
// cycle. The whole computation aborts; no partial schedule is produced.
var ErrCyclicDependency = errors.New("task dependencies contain a cycle")

// graph is the dependency DAG over a task sequence, keyed by dense position
// indices. An edge dep→i exists for every prerequisite dep of task i.
type graph struct {
	n    int
	succ [][]int // succ[i]: tasks that depend on i
	pred [][]int // pred[i]: prerequisites of i
}

// buildGraph constructs the dependency graph for the task sequence.
// Out-of-range and self-referential dependency entries are dropped rather
// than rejected, so one malformed reference never invalidates a plan.
func buildGraph(tasks []task.Task) *graph {
	n := len(tasks)
	g := &graph{
		n:    n,
		succ: make([][]int, n),
		pred: make([][]int, n),
	}
	for i := range tasks {
		for _, dep := range tasks[i].Dependencies {
			if dep < 0 || dep >= n || dep == i {
				continue
			}
			g.succ[dep] = append(g.succ[dep], i)
			g.pred[i] = append(g.pred[i], dep)
		}
	}
	return g
}

// topoOrder returns a topological ordering of the graph using Kahn's
// algorithm. Nodes become ready in a fixed order for identical input, so
// the ordering is deterministic. Returns ErrCyclicDependency when some
// node can never become ready.
func (g *graph) topoOrder() ([]int, error) {
	inDegree := make([]int, g.n)
	for i := range g.pred {
		inDegree[i] = len(g.pred[i])
	}

	queue := make([]int, 0, g.n)
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, g.n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, succ := range g.succ[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != g.n {
		return nil, fmt.Errorf("%w: ordered %d of %d tasks", ErrCyclicDependency, len(order), g.n)
	}
	return order, nil
}
