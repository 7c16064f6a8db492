package insight

// Policy holds the thresholds of the risk-scoring heuristic. The values are
// a fixed policy, not a derived algorithm; keeping them in one place lets
// them be tuned without touching the analyzer or the scheduler.
type Policy struct {
	// ZeroSlackThreshold marks a task as schedule-constrained (days).
	ZeroSlackThreshold float64
	// HighRiskSlack is the slack below which an incomplete task is ranked
	// as high risk (days).
	HighRiskSlack float64
	// MaxHighRiskTasks caps the high-risk ranking length.
	MaxHighRiskTasks int

	// OnTrackBuffer and ThinBuffer split deadline status into
	// on-track / at-risk / behind (days of buffer).
	OnTrackBuffer float64
	ThinBuffer    float64

	// Zero-slack ratio bands contributing to the risk score.
	HighZeroSlackRatio   float64
	MediumZeroSlackRatio float64

	// HighRiskCountTrigger adds to the score when at least this many tasks
	// rank as high risk.
	HighRiskCountTrigger int
	// LowProgressPercent adds to the score when progress is below it and
	// the plan is not fully complete.
	LowProgressPercent float64

	// Score bands for the overall risk label.
	HighScore   int
	MediumScore int
}

// DefaultPolicy returns the standard risk policy.
func DefaultPolicy() Policy {
	return Policy{
		ZeroSlackThreshold:   0.1,
		HighRiskSlack:        1.0,
		MaxHighRiskTasks:     5,
		OnTrackBuffer:        5,
		ThinBuffer:           3,
		HighZeroSlackRatio:   0.4,
		MediumZeroSlackRatio: 0.2,
		HighRiskCountTrigger: 3,
		LowProgressPercent:   30,
		HighScore:            4,
		MediumScore:          2,
	}
}
