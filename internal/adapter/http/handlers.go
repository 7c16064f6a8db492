package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/planwright/planwright/internal/domain/plan"
	"github.com/planwright/planwright/internal/port/taskgen"
	"github.com/planwright/planwright/internal/schedule"
	"github.com/planwright/planwright/internal/service"
)

// maxBodyBytes caps JSON request bodies. Plans carry full task lists, so
// this is roomier than a typical API limit.
const maxBodyBytes = 1 << 20

// Handlers bundles HTTP handlers with their service dependencies.
type Handlers struct {
	Plans    *service.PlanService
	Insights *service.InsightService
	Gen      taskgen.Generator
}

// NewHandlers creates the handler set.
func NewHandlers(plans *service.PlanService, insights *service.InsightService, gen taskgen.Generator) *Handlers {
	return &Handlers{Plans: plans, Insights: insights, Gen: gen}
}

// CreatePlan generates tasks for a goal, schedules them, and stores the plan.
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[plan.CreateRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}

	p, err := h.Plans.Create(r.Context(), req)
	if err != nil {
		writePlanError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPlans returns summaries of all plans.
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Plans.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "plans not found")
		return
	}
	if summaries == nil {
		summaries = []plan.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetPlan returns a plan with its full task list.
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.Plans.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePlan applies partial task edits and reschedules the plan.
func (h *Handlers) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[plan.UpdateRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}

	p, err := h.Plans.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writePlanError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RefinePlan reworks the plan's tasks from user feedback.
func (h *Handlers) RefinePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[plan.FeedbackRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}

	p, err := h.Plans.Refine(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writePlanError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// InstructPlan applies a natural-language instruction to the plan.
func (h *Handlers) InstructPlan(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[plan.InstructionRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}

	p, err := h.Plans.Instruct(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writePlanError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePlan removes a plan and its tasks.
func (h *Handlers) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlanInsights returns the analytics report for a plan.
func (h *Handlers) PlanInsights(w http.ResponseWriter, r *http.Request) {
	report, err := h.Insights.Report(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// generatorHealth is the response body for the generator health endpoint.
type generatorHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GeneratorHealth reports whether the model runtime is reachable.
func (h *Handlers) GeneratorHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Gen.Health(ctx); err != nil {
		writeJSON(w, http.StatusOK, generatorHealth{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, generatorHealth{Status: "healthy"})
}

// writePlanError maps scheduling errors to 400 before falling back to the
// shared domain error mapping.
func writePlanError(w http.ResponseWriter, err error, fallbackMsg string) {
	if errors.Is(err, schedule.ErrCyclicDependency) {
		writeError(w, http.StatusBadRequest, "tasks contain a dependency cycle")
		return
	}
	writeDomainError(w, err, fallbackMsg)
}
