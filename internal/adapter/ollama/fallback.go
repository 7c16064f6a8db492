package ollama

import (
	"fmt"
	"math"
	"strings"

	"github.com/planwright/planwright/internal/domain/task"
)

type template struct {
	name        string
	description string
}

// fallbackDrafts builds a heuristic plan tailored to the goal's keywords.
// Used when the model is unreachable or returns nothing usable.
func fallbackDrafts(goal string) []task.Draft {
	templates := templatesFor(goal)

	drafts := make([]task.Draft, 0, len(templates))
	for idx, tpl := range templates {
		deps := make([]int, 0, idx)
		for i := range idx {
			deps = append(deps, i)
		}

		drafts = append(drafts, task.Draft{
			Name:         tpl.name,
			Description:  tpl.description,
			Optimistic:   math.Max(1.0, 1.5+float64(idx)*0.5),
			MostLikely:   math.Max(2.0, 3.0+float64(idx)*0.75),
			Pessimistic:  math.Max(3.5, 4.5+float64(idx)*1.0),
			Dependencies: deps,
		})
	}
	return drafts
}

func templatesFor(goal string) []template {
	lower := strings.ToLower(goal)

	switch {
	case containsAny(lower, "drug", "pharma", "clinical", "fda", "medical"):
		return []template{
			{"Regulatory & Compliance Scoping",
				fmt.Sprintf("Identify regulatory pathways, target markets, and approval requirements related to %s.", goal)},
			{"Clinical Evidence Alignment",
				"Align clinical data packages and safety profiles to meet regulatory expectations."},
			{"Manufacturing Scale-Up",
				"Secure GMP manufacturing capacity, validate batches, and prepare quality documentation."},
			{"Market Access & Pricing Strategy",
				"Model reimbursement scenarios, prepare HTA dossiers, and finalise launch pricing."},
			{"Stakeholder & Medical Affairs Enablement",
				"Train field medical teams, develop risk mitigation plans, and ready educational materials."},
			{"Launch Readiness & Pharmacovigilance",
				"Coordinate commercial launch go/no-go, setup safety surveillance, and execute rollout."},
		}
	case containsAny(lower, "product", "saas", "software", "platform"):
		return []template{
			{"Product Vision & OKR Alignment", "Clarify customer outcomes, enterprise KPIs, and release roadmap."},
			{"Solution Architecture & Security Review", "Design target architecture, perform threat modelling, and secure approvals."},
			{"Implementation & Integrations", "Build features, APIs, and integrations prioritised for MVP adoption."},
			{"Quality Engineering & Performance Tuning", "Execute automated testing, load tests, and resolve critical defects."},
			{"Customer Enablement & Support Playbooks", "Prepare documentation, onboarding assets, and 24/7 support coverage."},
			{"Launch Operations & Post-Go-Live Monitoring", "Run launch checklist, monitor telemetry, and execute hyper-care plan."},
		}
	case containsAny(lower, "marketing", "campaign", "event", "growth"):
		return []template{
			{"Audience & Positioning Research", "Validate personas, segment audiences, and refine value propositions."},
			{"Campaign Creative & Asset Production", "Produce messaging, creative assets, and localisation per channel."},
			{"Channel Orchestration", "Plan omnichannel rollout, media buys, and automation journeys."},
			{"Enablement & Launch Communications", "Align sales, PR, and stakeholders with launch materials."},
			{"Execution & Real-Time Optimisation", "Launch campaigns, monitor performance, and optimise in-flight."},
			{"Measurement & Post-Mortem", "Consolidate analytics, assess ROI, and capture learnings for iteration."},
		}
	default:
		return []template{
			{"Stakeholder Alignment & Vision", fmt.Sprintf("Align sponsors and stakeholders on the objectives for: %s", goal)},
			{"Solution Definition", "Translate the goal into measurable outcomes, scope, and guardrails."},
			{"Delivery Planning", "Sequence workstreams, allocate teams, and establish programme governance."},
			{"Execution & Quality Control", "Run focused workstreams with quality and risk management at enterprise standards."},
			{"Enablement & Change Management", "Prepare end users, documentation, and support processes for adoption."},
			{"Launch & Continuous Improvement", "Deliver the outcome, monitor success metrics, and feed insights into the roadmap."},
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
