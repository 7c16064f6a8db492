package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planwright/planwright/internal/domain"
	"github.com/planwright/planwright/internal/domain/plan"
	"github.com/planwright/planwright/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	criticalJSON, err := json.Marshal(emptyIfNil(p.CriticalPath))
	if err != nil {
		return nil, fmt.Errorf("marshal critical path: %w", err)
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO plans (goal, deadline, total_duration, critical_path)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, version, created_at, updated_at`,
		p.Goal, p.Deadline, p.TotalDuration, criticalJSON)

	stored := *p
	if err := row.Scan(&stored.ID, &stored.Version, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	stored.Tasks, err = insertTasks(ctx, tx, stored.ID, p.Tasks)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &stored, nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, goal, deadline, total_duration, critical_path, version, created_at, updated_at
		 FROM plans WHERE id = $1`, id)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get plan %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}

	p.Tasks, err = s.loadTasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]plan.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.goal, p.created_at, p.total_duration, p.deadline,
		        (SELECT count(*) FROM tasks t WHERE t.plan_id = p.id) AS task_count
		 FROM plans p ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var summaries []plan.Summary
	for rows.Next() {
		var s plan.Summary
		if err := rows.Scan(&s.ID, &s.Goal, &s.CreatedAt, &s.TotalDuration, &s.Deadline, &s.TaskCount); err != nil {
			return nil, fmt.Errorf("scan plan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SavePlan replaces the plan's tasks and schedule inside one transaction.
// The version check makes concurrent edits lose cleanly with ErrConflict.
func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	criticalJSON, err := json.Marshal(emptyIfNil(p.CriticalPath))
	if err != nil {
		return nil, fmt.Errorf("marshal critical path: %w", err)
	}

	row := tx.QueryRow(ctx,
		`UPDATE plans
		 SET goal = $2, deadline = $3, total_duration = $4, critical_path = $5,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $6
		 RETURNING id, version, created_at, updated_at`,
		p.ID, p.Goal, p.Deadline, p.TotalDuration, criticalJSON, p.Version)

	stored := *p
	if err := row.Scan(&stored.ID, &stored.Version, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("save plan %s: %w", p.ID, domain.ErrConflict)
		}
		return nil, fmt.Errorf("save plan %s: %w", p.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE plan_id = $1`, p.ID); err != nil {
		return nil, fmt.Errorf("clear tasks for plan %s: %w", p.ID, err)
	}

	stored.Tasks, err = insertTasks(ctx, tx, p.ID, p.Tasks)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &stored, nil
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete plan %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// insertTasks writes the plan's tasks ordered by position and returns them
// with their generated IDs and timestamps.
func insertTasks(ctx context.Context, tx pgx.Tx, planID string, tasks []task.Task) ([]task.Task, error) {
	stored := make([]task.Task, 0, len(tasks))
	for i, t := range tasks {
		depsJSON, err := json.Marshal(emptyIfNil(t.Dependencies))
		if err != nil {
			return nil, fmt.Errorf("marshal dependencies: %w", err)
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO tasks (plan_id, position, name, description,
			     optimistic_duration, most_likely_duration, pessimistic_duration,
			     dependencies, is_complete, expected_duration,
			     earliest_start, earliest_finish, latest_start, latest_finish,
			     slack, is_on_critical_path, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			 RETURNING id, created_at, updated_at`,
			planID, i, t.Name, t.Description,
			t.Optimistic, t.MostLikely, t.Pessimistic,
			depsJSON, t.IsComplete, t.Expected,
			t.EarliestStart, t.EarliestFinish, t.LatestStart, t.LatestFinish,
			t.Slack, t.OnCriticalPath, nullableTime(t.StartDate), nullableTime(t.EndDate))

		t.PlanID = planID
		if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert task %d: %w", i, err)
		}
		stored = append(stored, t)
	}
	return stored, nil
}

func (s *Store) loadTasks(ctx context.Context, planID string) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, plan_id, name, description,
		        optimistic_duration, most_likely_duration, pessimistic_duration,
		        dependencies, is_complete, expected_duration,
		        earliest_start, earliest_finish, latest_start, latest_finish,
		        slack, is_on_critical_path, start_date, end_date,
		        created_at, updated_at
		 FROM tasks WHERE plan_id = $1 ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]task.Task, 0)
	for rows.Next() {
		var t task.Task
		var depsJSON []byte
		var startDate, endDate *time.Time
		if err := rows.Scan(&t.ID, &t.PlanID, &t.Name, &t.Description,
			&t.Optimistic, &t.MostLikely, &t.Pessimistic,
			&depsJSON, &t.IsComplete, &t.Expected,
			&t.EarliestStart, &t.EarliestFinish, &t.LatestStart, &t.LatestFinish,
			&t.Slack, &t.OnCriticalPath, &startDate, &endDate,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if err := json.Unmarshal(depsJSON, &t.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies: %w", err)
		}
		if startDate != nil {
			t.StartDate = *startDate
		}
		if endDate != nil {
			t.EndDate = *endDate
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanPlan(row pgx.Row) (plan.Plan, error) {
	var p plan.Plan
	var criticalJSON []byte
	if err := row.Scan(&p.ID, &p.Goal, &p.Deadline, &p.TotalDuration, &criticalJSON,
		&p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return plan.Plan{}, err
	}
	if err := json.Unmarshal(criticalJSON, &p.CriticalPath); err != nil {
		return plan.Plan{}, fmt.Errorf("unmarshal critical path: %w", err)
	}
	return p, nil
}

// emptyIfNil keeps JSONB columns as [] instead of null.
func emptyIfNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
