package plan

import (
	"fmt"
	"strings"

	"github.com/planwright/planwright/internal/domain"
)

const maxGoalLength = 2000

// Validate checks the CreateRequest for structural correctness.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Goal) == "" {
		return fmt.Errorf("%w: goal is required", domain.ErrValidation)
	}
	if len(r.Goal) > maxGoalLength {
		return fmt.Errorf("%w: goal exceeds %d characters", domain.ErrValidation, maxGoalLength)
	}
	return nil
}

// Validate checks that every provided duration estimate is positive.
// Dependency indices are not range-checked here: the scheduler tolerates
// out-of-range and self-referential entries by dropping them.
func (r *UpdateRequest) Validate() error {
	if len(r.Tasks) == 0 {
		return fmt.Errorf("%w: at least one task update is required", domain.ErrValidation)
	}
	for i, u := range r.Tasks {
		for _, d := range []*float64{u.Optimistic, u.MostLikely, u.Pessimistic} {
			if d != nil && *d <= 0 {
				return fmt.Errorf("%w: task %d: duration estimates must be positive", domain.ErrValidation, i)
			}
		}
	}
	return nil
}

// Validate checks the FeedbackRequest.
func (r *FeedbackRequest) Validate() error {
	if r.Feedback == "" {
		return fmt.Errorf("%w: feedback is required", domain.ErrValidation)
	}
	return nil
}

// Validate checks the InstructionRequest.
func (r *InstructionRequest) Validate() error {
	if r.Instruction == "" {
		return fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}
	return nil
}
