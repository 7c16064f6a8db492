package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pwhttp "github.com/planwright/planwright/internal/adapter/http"
	"github.com/planwright/planwright/internal/domain"
	"github.com/planwright/planwright/internal/domain/plan"
	"github.com/planwright/planwright/internal/domain/task"
	"github.com/planwright/planwright/internal/insight"
	"github.com/planwright/planwright/internal/schedule"
	"github.com/planwright/planwright/internal/service"
)

// mockStore implements database.Store for handler tests.
type mockStore struct {
	plans  map[string]*plan.Plan
	nextID int
}

func newMockStore() *mockStore {
	return &mockStore{plans: make(map[string]*plan.Plan)}
}

func (m *mockStore) CreatePlan(_ context.Context, p *plan.Plan) (*plan.Plan, error) {
	m.nextID++
	stored := *p
	stored.ID = fmt.Sprintf("plan-%d", m.nextID)
	stored.Version = 1
	m.plans[stored.ID] = &stored
	return &stored, nil
}

func (m *mockStore) GetPlan(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("get plan %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) ListPlans(_ context.Context) ([]plan.Summary, error) {
	var out []plan.Summary
	for _, p := range m.plans {
		out = append(out, plan.Summary{ID: p.ID, Goal: p.Goal, TaskCount: len(p.Tasks)})
	}
	return out, nil
}

func (m *mockStore) SavePlan(_ context.Context, p *plan.Plan) (*plan.Plan, error) {
	if _, ok := m.plans[p.ID]; !ok {
		return nil, fmt.Errorf("save plan %s: %w", p.ID, domain.ErrNotFound)
	}
	stored := *p
	stored.Version++
	m.plans[stored.ID] = &stored
	return &stored, nil
}

func (m *mockStore) DeletePlan(_ context.Context, id string) error {
	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("delete plan %s: %w", id, domain.ErrNotFound)
	}
	delete(m.plans, id)
	return nil
}

// mockGenerator implements taskgen.Generator for handler tests.
type mockGenerator struct {
	drafts    []task.Draft
	healthErr error
}

func (m *mockGenerator) GenerateTasks(context.Context, string, *time.Time) ([]task.Draft, error) {
	return m.drafts, nil
}

func (m *mockGenerator) RefinePlan(_ context.Context, _ string, current []task.Draft, _ string) ([]task.Draft, error) {
	if m.drafts != nil {
		return m.drafts, nil
	}
	return current, nil
}

func (m *mockGenerator) Health(context.Context) error { return m.healthErr }

func testRouter(store *mockStore, gen *mockGenerator) chi.Router {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	plans := service.NewPlanService(store, gen, nil, nil, schedule.NewEngine(), nil, log,
		service.PlanServiceOptions{
			MaxTasks:                 200,
			MaxConcurrentGenerations: 2,
			GenerateTimeout:          time.Second,
		})
	insights := service.NewInsightService(store, insight.NewAnalyzer(insight.DefaultPolicy()), nil, time.Minute, log)

	r := chi.NewRouter()
	pwhttp.MountRoutes(r, pwhttp.NewHandlers(plans, insights, gen))
	return r
}

func defaultDrafts() []task.Draft {
	return []task.Draft{
		{Name: "Design", Optimistic: 1, MostLikely: 2, Pessimistic: 3, Dependencies: []int{}},
		{Name: "Build", Optimistic: 2, MostLikely: 4, Pessimistic: 6, Dependencies: []int{0}},
	}
}

func doRequest(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreatePlan(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	rec := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "launch the portal"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var p plan.Plan
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID == "" || len(p.Tasks) != 2 {
		t.Errorf("plan = %+v", p)
	}
	if !p.Tasks[0].OnCriticalPath || !p.Tasks[1].OnCriticalPath {
		t.Error("sequential chain should be fully critical")
	}
}

func TestCreatePlanEmptyGoal(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	rec := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreatePlanInvalidBody(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreatePlanCyclicDependencies(t *testing.T) {
	cyclic := []task.Draft{
		{Name: "A", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Dependencies: []int{1}},
		{Name: "B", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Dependencies: []int{0}},
	}
	r := testRouter(newMockStore(), &mockGenerator{drafts: cyclic})

	rec := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "cyclic"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetPlan(t *testing.T) {
	store := newMockStore()
	r := testRouter(store, &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/plans/"+p.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetPlanNotFound(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	rec := doRequest(t, r, http.MethodGet, "/api/v1/plans/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListPlansEmpty(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	rec := doRequest(t, r, http.MethodGet, "/api/v1/plans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Empty list must serialize as [], not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestUpdatePlan(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	name := "Renamed"
	rec := doRequest(t, r, http.MethodPut, "/api/v1/plans/"+p.ID, plan.UpdateRequest{
		Tasks: []plan.TaskUpdate{{Name: &name}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var updated plan.Plan
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Tasks[0].Name != "Renamed" {
		t.Errorf("task name = %q", updated.Tasks[0].Name)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
}

func TestRefinePlanRequiresFeedback(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/plans/"+p.ID+"/feedback", plan.FeedbackRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInstructPlan(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/plans/"+p.ID+"/instructions",
		plan.InstructionRequest{Instruction: "add a QA phase"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDeletePlan(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	rec := doRequest(t, r, http.MethodDelete, "/api/v1/plans/"+p.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/plans/"+p.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", rec.Code)
	}
}

func TestPlanInsights(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	created := doRequest(t, r, http.MethodPost, "/api/v1/plans", plan.CreateRequest{Goal: "goal"})
	var p plan.Plan
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/plans/"+p.ID+"/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var report insight.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if len(report.CriticalPath) != 2 {
		t.Errorf("critical path = %v", report.CriticalPath)
	}
}

func TestGeneratorHealth(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts()})

	rec := doRequest(t, r, http.MethodGet, "/api/v1/health/generator", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var health map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &health)
	if health["status"] != "healthy" {
		t.Errorf("status = %q", health["status"])
	}
}

func TestGeneratorHealthUnreachable(t *testing.T) {
	r := testRouter(newMockStore(), &mockGenerator{drafts: defaultDrafts(), healthErr: fmt.Errorf("connection refused")})

	rec := doRequest(t, r, http.MethodGet, "/api/v1/health/generator", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var health map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &health)
	if health["status"] != "unhealthy" {
		t.Errorf("status = %q", health["status"])
	}
}
