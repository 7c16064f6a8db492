// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/planwright/planwright/internal/adapter/otel"
	"github.com/planwright/planwright/internal/domain"
	"github.com/planwright/planwright/internal/domain/plan"
	"github.com/planwright/planwright/internal/domain/task"
	"github.com/planwright/planwright/internal/port/broadcast"
	"github.com/planwright/planwright/internal/port/database"
	"github.com/planwright/planwright/internal/port/messagequeue"
	"github.com/planwright/planwright/internal/port/taskgen"
	"github.com/planwright/planwright/internal/schedule"
)

// PlanService orchestrates plan lifecycle: generation, scheduling,
// persistence, and event fan-out.
type PlanService struct {
	store      database.Store
	gen        taskgen.Generator
	queue      messagequeue.Queue
	hub        broadcast.Broadcaster
	engine     *schedule.Engine
	metrics    *otel.Metrics
	log        *slog.Logger
	genSem     *semaphore.Weighted
	genTimeout time.Duration
	maxTasks   int
}

// PlanServiceOptions bundles the knobs for NewPlanService.
type PlanServiceOptions struct {
	MaxTasks                 int
	MaxConcurrentGenerations int64
	GenerateTimeout          time.Duration
}

// NewPlanService creates a PlanService. queue, hub, and metrics may be nil;
// eventing and metrics are then skipped.
func NewPlanService(store database.Store, gen taskgen.Generator, queue messagequeue.Queue,
	hub broadcast.Broadcaster, engine *schedule.Engine, metrics *otel.Metrics,
	log *slog.Logger, opts PlanServiceOptions) *PlanService {
	return &PlanService{
		store:      store,
		gen:        gen,
		queue:      queue,
		hub:        hub,
		engine:     engine,
		metrics:    metrics,
		log:        log,
		genSem:     semaphore.NewWeighted(opts.MaxConcurrentGenerations),
		genTimeout: opts.GenerateTimeout,
		maxTasks:   opts.MaxTasks,
	}
}

// Create generates tasks for the goal, schedules them, and persists the plan.
func (s *PlanService) Create(ctx context.Context, req plan.CreateRequest) (*plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	drafts, err := s.generate(ctx, req.Goal, func(genCtx context.Context) ([]task.Draft, error) {
		return s.gen.GenerateTasks(genCtx, req.Goal, req.Deadline)
	})
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: generator produced no tasks", domain.ErrValidation)
	}

	p := &plan.Plan{
		Goal:     req.Goal,
		Deadline: req.Deadline,
		Tasks:    draftsToTasks(drafts),
	}
	if err := s.schedule(ctx, p); err != nil {
		return nil, err
	}

	stored, err := s.store.CreatePlan(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store plan: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PlansCreated.Add(ctx, 1)
		s.metrics.PlanTotalDuration.Record(ctx, stored.TotalDuration)
	}
	s.emit(ctx, messagequeue.SubjectPlanCreated, stored)

	s.log.Info("plan created",
		"plan_id", stored.ID, "tasks", len(stored.Tasks),
		"total_duration", stored.TotalDuration)
	return stored, nil
}

// Get loads a plan by ID.
func (s *PlanService) Get(ctx context.Context, id string) (*plan.Plan, error) {
	return s.store.GetPlan(ctx, id)
}

// List returns summaries of all plans, newest first.
func (s *PlanService) List(ctx context.Context) ([]plan.Summary, error) {
	return s.store.ListPlans(ctx)
}

// Update applies partial task edits by position, then reschedules and saves.
func (s *PlanService) Update(ctx context.Context, id string, req plan.UpdateRequest) (*plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	for i := range p.Tasks {
		if i >= len(req.Tasks) {
			break
		}
		applyTaskUpdate(&p.Tasks[i], req.Tasks[i])
	}

	return s.reschedule(ctx, p)
}

// Refine rebuilds the plan's tasks from user feedback via the generator.
func (s *PlanService) Refine(ctx context.Context, id string, req plan.FeedbackRequest) (*plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.regenerate(ctx, id, req.Feedback)
}

// Instruct applies a natural-language instruction to the plan. Instructions
// flow through the same reflective refinement as feedback.
func (s *PlanService) Instruct(ctx context.Context, id string, req plan.InstructionRequest) (*plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.regenerate(ctx, id, req.Instruction)
}

// Delete removes a plan and emits the deletion event.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeletePlan(ctx, id); err != nil {
		return err
	}

	s.emit(ctx, messagequeue.SubjectPlanDeleted, p)
	s.log.Info("plan deleted", "plan_id", id)
	return nil
}

// StartEventAudit subscribes to all plan lifecycle subjects and writes one
// audit log line per event, so the queue carries a durable trail even when
// no external consumer is attached. A nil queue yields a no-op cancel.
func (s *PlanService) StartEventAudit(ctx context.Context) (cancel func(), err error) {
	if s.queue == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.SubjectPlanAll, func(_ context.Context, subject string, data []byte) error {
		var ev messagequeue.PlanEventPayload
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal plan event: %w", err)
		}
		s.log.Info("plan event",
			"subject", subject,
			"plan_id", ev.PlanID,
			"version", ev.Version,
			"task_count", ev.TaskCount,
			"total_duration", ev.TotalDuration,
		)
		return nil
	})
}

// regenerate feeds the current tasks and user text back through the
// generator and replaces the plan's task list with the result.
func (s *PlanService) regenerate(ctx context.Context, id, text string) (*plan.Plan, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	drafts, err := s.generate(ctx, p.Goal, func(genCtx context.Context) ([]task.Draft, error) {
		return s.gen.RefinePlan(genCtx, p.Goal, tasksToDrafts(p.Tasks), text)
	})
	if err != nil {
		return nil, fmt.Errorf("refine tasks: %w", err)
	}

	p.Tasks = draftsToTasks(drafts)
	return s.reschedule(ctx, p)
}

// reschedule recomputes the plan's schedule and saves it.
func (s *PlanService) reschedule(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	if err := s.schedule(ctx, p); err != nil {
		return nil, err
	}

	stored, err := s.store.SavePlan(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.emit(ctx, messagequeue.SubjectPlanUpdated, stored)
	s.log.Info("plan rescheduled",
		"plan_id", stored.ID, "version", stored.Version,
		"total_duration", stored.TotalDuration)
	return stored, nil
}

// schedule runs the scheduling engine over the plan's tasks in place.
func (s *PlanService) schedule(ctx context.Context, p *plan.Plan) error {
	if len(p.Tasks) > s.maxTasks {
		return fmt.Errorf("%w: plan exceeds %d tasks", domain.ErrValidation, s.maxTasks)
	}
	for i := range p.Tasks {
		if err := taskEstimatesValid(p.Tasks[i]); err != nil {
			return err
		}
	}

	ctx, span := otel.StartScheduleSpan(ctx, p.ID, len(p.Tasks))
	defer span.End()

	start := time.Now()
	result, err := s.engine.Compute(p.Tasks, time.Time{})
	if err != nil {
		return err
	}

	p.Tasks = result.Tasks
	p.CriticalPath = result.CriticalPath
	p.TotalDuration = result.TotalDuration

	if s.metrics != nil {
		s.metrics.SchedulesComputed.Add(ctx, 1)
		s.metrics.ScheduleDuration.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

// generate runs one generator call under the concurrency semaphore with the
// configured timeout.
func (s *PlanService) generate(ctx context.Context, goal string, fn func(context.Context) ([]task.Draft, error)) ([]task.Draft, error) {
	if err := s.genSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire generation slot: %w", err)
	}
	defer s.genSem.Release(1)

	genCtx, span := otel.StartGenerationSpan(ctx, goal)
	defer span.End()

	genCtx, cancel := context.WithTimeout(genCtx, s.genTimeout)
	defer cancel()

	return fn(genCtx)
}

// emit publishes the plan event to the queue and broadcasts it to clients.
// Both paths are best-effort; failures are logged, never returned.
func (s *PlanService) emit(ctx context.Context, subject string, p *plan.Plan) {
	payload := messagequeue.PlanEventPayload{
		PlanID:        p.ID,
		Goal:          p.Goal,
		Version:       p.Version,
		TaskCount:     len(p.Tasks),
		TotalDuration: p.TotalDuration,
	}

	if s.queue != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			err = s.queue.Publish(ctx, subject, data)
		}
		if err != nil {
			s.log.Warn("plan event publish failed", "subject", subject, "error", err)
		}
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, subjectToEventType(subject), payload)
	}
}

func subjectToEventType(subject string) string {
	switch subject {
	case messagequeue.SubjectPlanCreated:
		return "plan.created"
	case messagequeue.SubjectPlanUpdated:
		return "plan.updated"
	case messagequeue.SubjectPlanDeleted:
		return "plan.deleted"
	default:
		return subject
	}
}

func taskEstimatesValid(t task.Task) error {
	if t.Optimistic <= 0 || t.MostLikely <= 0 || t.Pessimistic <= 0 {
		return fmt.Errorf("%w: task %q has non-positive duration estimates", domain.ErrValidation, t.Name)
	}
	return nil
}

func applyTaskUpdate(t *task.Task, u plan.TaskUpdate) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Optimistic != nil {
		t.Optimistic = *u.Optimistic
	}
	if u.MostLikely != nil {
		t.MostLikely = *u.MostLikely
	}
	if u.Pessimistic != nil {
		t.Pessimistic = *u.Pessimistic
	}
	if u.Dependencies != nil {
		t.Dependencies = *u.Dependencies
	}
	if u.IsComplete != nil {
		t.IsComplete = *u.IsComplete
	}
}

func draftsToTasks(drafts []task.Draft) []task.Task {
	tasks := make([]task.Task, 0, len(drafts))
	for _, d := range drafts {
		tasks = append(tasks, task.Task{
			Name:         d.Name,
			Description:  d.Description,
			Optimistic:   d.Optimistic,
			MostLikely:   d.MostLikely,
			Pessimistic:  d.Pessimistic,
			Dependencies: d.Dependencies,
		})
	}
	return tasks
}

func tasksToDrafts(tasks []task.Task) []task.Draft {
	drafts := make([]task.Draft, 0, len(tasks))
	for _, t := range tasks {
		drafts = append(drafts, task.Draft{
			Name:         t.Name,
			Description:  t.Description,
			Optimistic:   t.Optimistic,
			MostLikely:   t.MostLikely,
			Pessimistic:  t.Pessimistic,
			Dependencies: t.Dependencies,
		})
	}
	return drafts
}
