// Package insight derives risk analytics and recommendations from a
// scheduled plan: deadline buffer, slack pressure, high-risk task ranking,
// and an overall risk label.
package insight

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/planwright/planwright/internal/domain/plan"
)

// Risk labels.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Deadline statuses.
const (
	StatusNoSchedule = "No schedule"
	StatusNoDeadline = "No deadline"
	StatusOnTrack    = "On track"
	StatusAtRisk     = "At risk"
	StatusBehind     = "Behind"
)

// HighRiskTask is one entry of the high-risk ranking: an incomplete task
// with little scheduling flexibility left.
type HighRiskTask struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Slack            float64 `json:"slack"`
	ExpectedDuration float64 `json:"expected_duration"`
	Impact           string  `json:"impact"`
}

// Report is the flat analytics view of a plan. All fields are primitives;
// it carries no behavior and is safe to serialize as-is.
type Report struct {
	OverallRisk        string         `json:"overall_risk"`
	ProgressPercentage float64        `json:"progress_percentage"`
	AverageSlack       float64        `json:"average_slack"`
	ZeroSlackTasks     int            `json:"zero_slack_tasks"`
	DeadlineStatus     string         `json:"deadline_status"`
	DeadlineMessage    string         `json:"deadline_message"`
	BufferDays         *float64       `json:"buffer_days"`
	CriticalPath       []string       `json:"critical_path"`
	HighRiskTasks      []HighRiskTask `json:"high_risk_tasks"`
	Recommendations    []string       `json:"recommendations"`
}

// Analyzer produces Reports from scheduled plans.
type Analyzer struct {
	policy Policy
	now    func() time.Time
}

// NewAnalyzer returns an Analyzer using the given policy.
func NewAnalyzer(policy Policy) *Analyzer {
	return &Analyzer{policy: policy, now: time.Now}
}

// Analyze produces the analytics report for a plan. The plan is read-only;
// a plan without tasks yields the early "no schedule" report.
func (a *Analyzer) Analyze(p *plan.Plan) *Report {
	total := len(p.Tasks)
	if total == 0 {
		return &Report{
			OverallRisk:     RiskLow,
			DeadlineStatus:  StatusNoSchedule,
			DeadlineMessage: "No tasks available to analyse",
			CriticalPath:    []string{},
			HighRiskTasks:   []HighRiskTask{},
			Recommendations: []string{
				"Generate tasks for this plan to unlock scheduling insights.",
			},
		}
	}

	completed := 0
	var slackSum float64
	zeroSlack := 0
	for i := range p.Tasks {
		if p.Tasks[i].IsComplete {
			completed++
		}
		slackSum += p.Tasks[i].Slack
		if p.Tasks[i].Slack <= a.policy.ZeroSlackThreshold {
			zeroSlack++
		}
	}
	progress := round2(float64(completed) / float64(total) * 100)
	averageSlack := round2(slackSum / float64(total))

	report := &Report{
		ProgressPercentage: progress,
		AverageSlack:       averageSlack,
		ZeroSlackTasks:     zeroSlack,
		CriticalPath:       a.criticalPathNames(p),
		HighRiskTasks:      a.highRiskTasks(p),
	}

	bufferDays := a.deadlineAnalysis(p, report)
	report.OverallRisk = a.riskLabel(bufferDays, zeroSlack, total, len(report.HighRiskTasks), progress, completed)
	report.Recommendations = a.recommendations(bufferDays, report, zeroSlack, progress)

	return report
}

// criticalPathNames resolves the plan's critical path positions to task
// names; positions that no longer resolve are stringified rather than
// dropped. An empty path falls back to the tasks flagged critical.
func (a *Analyzer) criticalPathNames(p *plan.Plan) []string {
	names := make([]string, 0, len(p.CriticalPath))
	for _, node := range p.CriticalPath {
		if node >= 0 && node < len(p.Tasks) {
			names = append(names, p.Tasks[node].Name)
		} else {
			names = append(names, strconv.Itoa(node))
		}
	}
	if len(names) == 0 {
		for i := range p.Tasks {
			if p.Tasks[i].OnCriticalPath {
				names = append(names, p.Tasks[i].Name)
			}
		}
	}
	return names
}

// highRiskTasks ranks incomplete tasks with slack below the policy
// threshold, most constrained first, capped at MaxHighRiskTasks.
func (a *Analyzer) highRiskTasks(p *plan.Plan) []HighRiskTask {
	candidates := make([]HighRiskTask, 0)
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Slack >= a.policy.HighRiskSlack || t.IsComplete {
			continue
		}
		impact := "High"
		if t.OnCriticalPath {
			impact = "Critical"
		}
		candidates = append(candidates, HighRiskTask{
			ID:               t.ID,
			Name:             t.Name,
			Slack:            round2(t.Slack),
			ExpectedDuration: round2(t.Expected),
			Impact:           impact,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Slack < candidates[j].Slack
	})
	if len(candidates) > a.policy.MaxHighRiskTasks {
		candidates = candidates[:a.policy.MaxHighRiskTasks]
	}
	return candidates
}

// deadlineAnalysis fills the deadline status fields and returns the buffer,
// or nil when the plan has no deadline.
func (a *Analyzer) deadlineAnalysis(p *plan.Plan, report *Report) *float64 {
	if p.Deadline == nil {
		report.DeadlineStatus = StatusNoDeadline
		report.DeadlineMessage = fmt.Sprintf("No deadline provided; total duration is %.1f days.", p.TotalDuration)
		return nil
	}

	baseline := a.now()
	found := false
	for i := range p.Tasks {
		sd := p.Tasks[i].StartDate
		if sd.IsZero() {
			continue
		}
		if !found || sd.Before(baseline) {
			baseline = sd
			found = true
		}
	}

	daysAvailable := p.Deadline.Sub(baseline).Seconds() / 86400
	buffer := round2(daysAvailable - p.TotalDuration)
	report.BufferDays = &buffer

	switch {
	case buffer >= a.policy.OnTrackBuffer:
		report.DeadlineStatus = StatusOnTrack
		report.DeadlineMessage = fmt.Sprintf("Deadline achievable with %s days of buffer.", formatDays(buffer))
	case buffer >= 0:
		report.DeadlineStatus = StatusAtRisk
		report.DeadlineMessage = fmt.Sprintf("Deadline is achievable but only %s days of buffer remain.", formatDays(buffer))
	default:
		report.DeadlineStatus = StatusBehind
		report.DeadlineMessage = fmt.Sprintf("Schedule exceeds the deadline by %s days.", formatDays(math.Abs(buffer)))
	}
	return &buffer
}

// riskLabel applies the additive scoring heuristic. The order and exact
// thresholds of the checks are load-bearing for reproducibility.
func (a *Analyzer) riskLabel(buffer *float64, zeroSlack, total, highRisk int, progress float64, completed int) string {
	score := 0

	if buffer != nil {
		switch {
		case *buffer < 0:
			score += 2
		case *buffer < a.policy.ThinBuffer:
			score++
		}
	}

	ratio := float64(zeroSlack) / float64(total)
	switch {
	case ratio > a.policy.HighZeroSlackRatio:
		score += 2
	case ratio > a.policy.MediumZeroSlackRatio:
		score++
	}

	if highRisk >= a.policy.HighRiskCountTrigger {
		score++
	}
	if progress < a.policy.LowProgressPercent && completed < total {
		score++
	}

	switch {
	case score >= a.policy.HighScore:
		return RiskHigh
	case score >= a.policy.MediumScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

// recommendations appends at most one recommendation per condition, in a
// fixed order.
func (a *Analyzer) recommendations(buffer *float64, report *Report, zeroSlack int, progress float64) []string {
	recs := make([]string, 0, 4)

	if buffer != nil {
		switch {
		case *buffer < 0:
			recs = append(recs, "Extend the deadline or remove scope; the plan exceeds the available time.")
		case *buffer < a.policy.ThinBuffer:
			recs = append(recs, "Add contingency or accelerate critical tasks to improve the schedule buffer.")
		}
	} else {
		recs = append(recs, "Set a deadline to track schedule risk and buffer more effectively.")
	}

	if len(report.HighRiskTasks) > 0 {
		focus := report.HighRiskTasks[0]
		recs = append(recs, fmt.Sprintf("Prioritise '%s' — slack is only %s days.", focus.Name, formatDays(focus.Slack)))
	}

	if zeroSlack > 0 {
		recs = append(recs, "Introduce parallel workstreams or re-sequence tasks to reduce the number of zero-slack items.")
	}

	if progress < 100 {
		recs = append(recs, "Review completed work weekly and update task statuses to keep the plan accurate.")
	}

	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatDays renders a day count with at least one decimal, so a whole
// number of days reads "5.0" rather than "5" in client-facing messages.
func formatDays(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
