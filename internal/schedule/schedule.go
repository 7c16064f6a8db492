// Package schedule computes CPM/PERT project schedules over task sequences.
//
// A schedule run is a pure, synchronous computation: build the dependency
// graph, derive PERT expected durations, run the forward and backward
// critical-path-method passes, extract slack and the critical path, and map
// day-offsets onto calendar dates. All derived fields are recomputed from
// scratch on every run.
package schedule

import (
	"time"

	"github.com/planwright/planwright/internal/domain/task"
)

// SlackTolerance is the default zero-slack tolerance in days. Slack within
// this distance of zero marks a task as critical, absorbing floating-point
// accumulation error across the passes.
const SlackTolerance = 0.01

// Result is the output of one schedule computation.
type Result struct {
	// Tasks is a scheduled copy of the input sequence with all derived
	// fields populated; the caller's slice is never mutated.
	Tasks []task.Task
	// CriticalPath is the longest duration-weighted path through the DAG,
	// as ordered task positions.
	CriticalPath []int
	// TotalDuration is the project duration in days: max earliest finish.
	TotalDuration float64
}

// Engine computes schedules. The zero value is not usable; use NewEngine.
type Engine struct {
	// Tolerance is the zero-slack tolerance in days.
	Tolerance float64

	now func() time.Time
}

// NewEngine returns an Engine with the default slack tolerance.
func NewEngine() *Engine {
	return &Engine{Tolerance: SlackTolerance, now: time.Now}
}

// Compute schedules the task sequence. projectStart anchors calendar dates;
// the zero time means "now". The input slice is treated as read-only.
//
// Returns ErrCyclicDependency when the dependency graph contains a cycle.
// An empty sequence yields an empty result and no error.
func (e *Engine) Compute(tasks []task.Task, projectStart time.Time) (*Result, error) {
	if len(tasks) == 0 {
		return &Result{Tasks: []task.Task{}, CriticalPath: []int{}}, nil
	}
	if projectStart.IsZero() {
		projectStart = e.now()
	}

	out := make([]task.Task, len(tasks))
	copy(out, tasks)

	// PERT expected duration per task.
	expected := make([]float64, len(out))
	for i := range out {
		expected[i] = pertExpected(out[i].Optimistic, out[i].MostLikely, out[i].Pessimistic)
		out[i].Expected = expected[i]
	}

	g := buildGraph(out)
	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}

	// Forward pass: earliest start is the max earliest finish over
	// prerequisites, zero for sources.
	es := make([]float64, g.n)
	ef := make([]float64, g.n)
	for _, i := range order {
		for _, p := range g.pred[i] {
			if ef[p] > es[i] {
				es[i] = ef[p]
			}
		}
		ef[i] = es[i] + expected[i]
	}

	var total float64
	for i := range ef {
		if ef[i] > total {
			total = ef[i]
		}
	}

	// Backward pass: latest finish is the min latest start over dependents,
	// the project duration for sinks.
	ls := make([]float64, g.n)
	lf := make([]float64, g.n)
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		if len(g.succ[i]) == 0 {
			lf[i] = total
		} else {
			lf[i] = ls[g.succ[i][0]]
			for _, s := range g.succ[i][1:] {
				if ls[s] < lf[i] {
					lf[i] = ls[s]
				}
			}
		}
		ls[i] = lf[i] - expected[i]
	}

	slack := make([]float64, g.n)
	for i := range out {
		slack[i] = ls[i] - es[i]

		out[i].EarliestStart = es[i]
		out[i].EarliestFinish = ef[i]
		out[i].LatestStart = ls[i]
		out[i].LatestFinish = lf[i]
		out[i].Slack = slack[i]
		out[i].OnCriticalPath = isZeroSlack(slack[i], e.Tolerance)
		out[i].StartDate = projectStart.Add(daysToDuration(es[i]))
		out[i].EndDate = projectStart.Add(daysToDuration(ef[i]))
	}

	return &Result{
		Tasks:         out,
		CriticalPath:  e.extractCriticalPath(g, order, expected, slack),
		TotalDuration: total,
	}, nil
}

// pertExpected is the three-point PERT estimate: (O + 4M + P) / 6.
func pertExpected(optimistic, mostLikely, pessimistic float64) float64 {
	return (optimistic + 4*mostLikely + pessimistic) / 6
}

func isZeroSlack(slack, tolerance float64) bool {
	if slack < 0 {
		slack = -slack
	}
	return slack < tolerance
}

// daysToDuration converts fractional days into a time.Duration.
func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
