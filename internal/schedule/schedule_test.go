package schedule_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/planwright/planwright/internal/domain/task"
	"github.com/planwright/planwright/internal/schedule"
)

func newTask(name string, o, m, p float64, deps ...int) task.Task {
	if deps == nil {
		deps = []int{}
	}
	return task.Task{
		Name:         name,
		Optimistic:   o,
		MostLikely:   m,
		Pessimistic:  p,
		Dependencies: deps,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_SequentialChain(t *testing.T) {
	tasks := []task.Task{
		newTask("first", 1, 2, 3),
		newTask("second", 2, 3, 4, 0),
		newTask("third", 1, 2, 3, 1),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for k := 0; k < len(res.Tasks)-1; k++ {
		if !almostEqual(res.Tasks[k+1].EarliestStart, res.Tasks[k].EarliestFinish) {
			t.Fatalf("task %d: ES %.4f != predecessor EF %.4f",
				k+1, res.Tasks[k+1].EarliestStart, res.Tasks[k].EarliestFinish)
		}
	}
	for i, tk := range res.Tasks {
		if !almostEqual(tk.Slack, 0) {
			t.Fatalf("task %d: expected zero slack, got %.4f", i, tk.Slack)
		}
		if !tk.OnCriticalPath {
			t.Fatalf("task %d: expected on critical path", i)
		}
	}
	want := res.Tasks[2].EarliestFinish
	if !almostEqual(res.TotalDuration, want) {
		t.Fatalf("total duration %.4f, want %.4f", res.TotalDuration, want)
	}
}

func TestCompute_ParallelFanIn(t *testing.T) {
	tasks := []task.Task{
		newTask("start", 1, 2, 3),
		newTask("branch a", 4, 5, 6, 0),
		newTask("branch b", 1, 2, 3, 0),
		newTask("end", 1, 1, 1, 1, 2),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, b, end, start := res.Tasks[1], res.Tasks[2], res.Tasks[3], res.Tasks[0]
	if !almostEqual(a.EarliestStart, start.EarliestFinish) || !almostEqual(b.EarliestStart, start.EarliestFinish) {
		t.Fatalf("parallel branches should start at EF of start: a=%.4f b=%.4f want %.4f",
			a.EarliestStart, b.EarliestStart, start.EarliestFinish)
	}
	wantEnd := math.Max(a.EarliestFinish, b.EarliestFinish)
	if !almostEqual(end.EarliestStart, wantEnd) {
		t.Fatalf("end ES %.4f, want %.4f", end.EarliestStart, wantEnd)
	}
	// The shorter branch has strictly positive slack.
	if b.Slack <= 0 {
		t.Fatalf("shorter branch slack %.4f, want > 0", b.Slack)
	}
	if !almostEqual(a.Slack, 0) {
		t.Fatalf("longer branch slack %.4f, want 0", a.Slack)
	}
}

func TestCompute_IndependentTasks(t *testing.T) {
	tasks := []task.Task{
		newTask("a", 1, 2, 3),
		newTask("b", 4, 5, 6),
		newTask("c", 2, 3, 4),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var maxExpected float64
	for i, tk := range res.Tasks {
		if !almostEqual(tk.EarliestStart, 0) {
			t.Fatalf("task %d: ES %.4f, want 0", i, tk.EarliestStart)
		}
		if tk.Expected > maxExpected {
			maxExpected = tk.Expected
		}
	}
	if !almostEqual(res.TotalDuration, maxExpected) {
		t.Fatalf("total duration %.4f, want %.4f", res.TotalDuration, maxExpected)
	}
}

func TestCompute_PERTFormula(t *testing.T) {
	tasks := []task.Task{newTask("only", 2, 5, 8)}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Tasks[0].Expected, 5.0) {
		t.Fatalf("expected duration %.6f, want 5.0", res.Tasks[0].Expected)
	}
}

func TestCompute_CalendarMapping(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []task.Task{newTask("only", 2, 5, 8)}

	res, err := schedule.NewEngine().Compute(tasks, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := res.Tasks[0]
	if !got.StartDate.Equal(start) {
		t.Fatalf("start date %v, want %v", got.StartDate, start)
	}
	wantEnd := start.Add(time.Duration(got.Expected * 24 * float64(time.Hour)))
	if diff := got.EndDate.Sub(wantEnd); diff > time.Second || diff < -time.Second {
		t.Fatalf("end date %v, want %v (diff %v)", got.EndDate, wantEnd, diff)
	}
}

func TestCompute_CriticalPathDetection(t *testing.T) {
	tasks := []task.Task{
		newTask("start", 1, 1, 1),
		newTask("long branch", 5, 10, 15, 0),
		newTask("short branch", 1, 2, 3, 0),
		newTask("merge", 1, 1, 1, 1, 2),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	long, short := res.Tasks[1], res.Tasks[2]
	if !almostEqual(long.Slack, 0) || !long.OnCriticalPath {
		t.Fatalf("long branch: slack %.4f critical %v, want 0/true", long.Slack, long.OnCriticalPath)
	}
	if short.Slack <= 0 || short.OnCriticalPath {
		t.Fatalf("short branch: slack %.4f critical %v, want >0/false", short.Slack, short.OnCriticalPath)
	}

	want := []int{0, 1, 3}
	if len(res.CriticalPath) != len(want) {
		t.Fatalf("critical path %v, want %v", res.CriticalPath, want)
	}
	for i := range want {
		if res.CriticalPath[i] != want[i] {
			t.Fatalf("critical path %v, want %v", res.CriticalPath, want)
		}
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	res, err := schedule.NewEngine().Compute(nil, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tasks) != 0 || len(res.CriticalPath) != 0 || res.TotalDuration != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestCompute_CycleRejected(t *testing.T) {
	tasks := []task.Task{
		newTask("a", 1, 2, 3, 1),
		newTask("b", 1, 2, 3, 0),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if !errors.Is(err, schedule.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no partial result, got %+v", res)
	}
}

// Out-of-range and self-referential dependency entries are dropped, not
// rejected. This leniency is deliberate; do not tighten it.
func TestCompute_MalformedDependenciesDropped(t *testing.T) {
	tasks := []task.Task{
		newTask("a", 1, 2, 3, 0, -1, 99), // self-ref and both out-of-range
		newTask("b", 1, 2, 3, 0),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Tasks[0].EarliestStart, 0) {
		t.Fatalf("task a should be a source, ES=%.4f", res.Tasks[0].EarliestStart)
	}
	if !almostEqual(res.Tasks[1].EarliestStart, res.Tasks[0].EarliestFinish) {
		t.Fatalf("valid edge must survive: ES=%.4f want %.4f",
			res.Tasks[1].EarliestStart, res.Tasks[0].EarliestFinish)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		newTask("a", 1, 2, 3),
		newTask("b", 2, 4, 6, 0),
		newTask("c", 1, 3, 5, 0),
		newTask("d", 2, 2, 2, 1, 2),
	}

	eng := schedule.NewEngine()
	first, err := eng.Compute(tasks, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := eng.Compute(tasks, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Tasks {
		a, b := first.Tasks[i], second.Tasks[i]
		if a.Expected != b.Expected || a.EarliestStart != b.EarliestStart ||
			a.EarliestFinish != b.EarliestFinish || a.LatestStart != b.LatestStart ||
			a.LatestFinish != b.LatestFinish || a.Slack != b.Slack ||
			a.OnCriticalPath != b.OnCriticalPath ||
			!a.StartDate.Equal(b.StartDate) || !a.EndDate.Equal(b.EndDate) {
			t.Fatalf("task %d differs between runs:\n%+v\n%+v", i, a, b)
		}
	}
	if first.TotalDuration != second.TotalDuration {
		t.Fatalf("total duration differs: %v vs %v", first.TotalDuration, second.TotalDuration)
	}
	for i := range first.CriticalPath {
		if first.CriticalPath[i] != second.CriticalPath[i] {
			t.Fatalf("critical path differs: %v vs %v", first.CriticalPath, second.CriticalPath)
		}
	}
}

func TestCompute_SlackIdentity(t *testing.T) {
	tasks := []task.Task{
		newTask("a", 1, 2, 3),
		newTask("b", 4, 5, 9, 0),
		newTask("c", 1, 1, 1, 0),
		newTask("d", 2, 3, 4, 1, 2),
	}

	res, err := schedule.NewEngine().Compute(tasks, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, tk := range res.Tasks {
		if !almostEqual(tk.Slack, tk.LatestStart-tk.EarliestStart) {
			t.Fatalf("task %d: slack != LS-ES", i)
		}
		if !almostEqual(tk.Slack, tk.LatestFinish-tk.EarliestFinish) {
			t.Fatalf("task %d: slack != LF-EF", i)
		}
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	tasks := []task.Task{newTask("a", 2, 5, 8)}

	if _, err := schedule.NewEngine().Compute(tasks, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tasks[0].Expected != 0 || tasks[0].EarliestFinish != 0 || !tasks[0].StartDate.IsZero() {
		t.Fatalf("input slice was mutated: %+v", tasks[0])
	}
}
