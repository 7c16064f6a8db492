// Package ollama provides an HTTP client for a local Ollama model runtime,
// used to draft and refine project task lists.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/planwright/planwright/internal/domain/task"
	"github.com/planwright/planwright/internal/resilience"
)

// Client talks to the Ollama generate API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
	onFallback func(context.Context)
	log        *slog.Logger
}

// NewClient creates a new Ollama client for the given base URL and model.
func NewClient(baseURL, model string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// OnFallback registers a hook invoked whenever GenerateTasks gives up on
// the model and returns template drafts instead.
func (c *Client) OnFallback(fn func(context.Context)) {
	c.onFallback = fn
}

// GenerateTasks asks the model for draft tasks, retrying once with a
// stricter prompt. When both attempts fail it returns heuristic template
// drafts so a plan can always be created.
func (c *Client) GenerateTasks(ctx context.Context, goal string, deadline *time.Time) ([]task.Draft, error) {
	attempts := []struct {
		label  string
		prompt string
	}{
		{"primary", primaryPrompt(goal, deadline)},
		{"retry", retryPrompt(goal, deadline)},
	}

	for _, attempt := range attempts {
		drafts, err := c.requestDrafts(ctx, attempt.prompt, goal)
		if err != nil {
			c.log.Warn("task generation attempt failed",
				"attempt", attempt.label, "error", err)
			continue
		}
		if len(drafts) > 0 {
			return drafts, nil
		}
	}

	c.log.Info("falling back to template tasks", "goal_len", len(goal))
	if c.onFallback != nil {
		c.onFallback(ctx)
	}
	return fallbackDrafts(goal), nil
}

// RefinePlan asks the model to rework the current drafts according to the
// user's feedback. On any failure the current drafts are returned unchanged.
func (c *Client) RefinePlan(ctx context.Context, goal string, current []task.Draft, feedback string) ([]task.Draft, error) {
	prompt, err := refinePrompt(goal, current, feedback)
	if err != nil {
		return current, nil
	}

	drafts, err := c.requestDrafts(ctx, prompt, goal)
	if err != nil || len(drafts) == 0 {
		if err != nil {
			c.log.Warn("plan refinement failed, keeping current tasks", "error", err)
		}
		return current, nil
	}
	return drafts, nil
}

// Health checks that the Ollama runtime is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState reports the circuit breaker state for health endpoints.
// Returns "none" when no breaker is attached.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "none"
	}
	return c.breaker.State()
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

// generateResponse is the subset of the Ollama response we consume.
type generateResponse struct {
	Response string `json:"response"`
}

// requestDrafts runs one generate call and parses the model output into
// sanitized drafts. Returns a nil slice when the output held no usable tasks.
func (c *Client) requestDrafts(ctx context.Context, prompt, goal string) ([]task.Draft, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	var result generateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return parseDrafts(result.Response, goal), nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ollama API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func primaryPrompt(goal string, deadline *time.Time) string {
	deadlineStr := ""
	if deadline != nil {
		deadlineStr = fmt.Sprintf(" The launch deadline is %s so ensure timelines are realistic.", deadline.Format("2006-01-02"))
	}

	return "You are an elite programme manager creating an execution plan for a large enterprise. " +
		"Break the goal down into concrete, domain-specific workstreams rather than generic phases." +
		" Each task must be uniquely relevant to the goal, actionable, and written in concise business language." +
		deadlineStr + "\n\n" +
		"Goal: " + goal + "\n\n" +
		"Return ONLY a JSON array (no markdown, no commentary) with 6-12 task objects. Each object must include:" +
		"\n- name (<= 80 characters, domain-specific)" +
		"\n- description (1-2 sentences detailing what happens)" +
		"\n- optimistic_duration (float days > 0)" +
		"\n- most_likely_duration (float days > 0)" +
		"\n- pessimistic_duration (float days > 0)" +
		"\n- dependencies (array of 0-based indices of prerequisite tasks; [] when none)" +
		"\nAvoid placeholders like 'Planning', 'Development', 'Testing' unless the goal explicitly requires them." +
		" Tailor the sequencing to enterprise readiness, compliance, go-to-market, stakeholder alignment, and risk mitigation."
}

func retryPrompt(goal string, deadline *time.Time) string {
	deadlineHint := ""
	if deadline != nil {
		deadlineHint = fmt.Sprintf(" Honour the target completion date of %s.", deadline.Format("2006-01-02"))
	}

	return "Produce a structured execution plan tailored to the following enterprise initiative." +
		" Respond with RAW JSON ONLY (no code fences, no prose)." +
		deadlineHint + "\n\n" +
		"Initiative: " + goal + "\n\n" +
		"Rules:" +
		"\n1. Create between 6 and 12 tasks, each describing a unique deliverable." +
		"\n2. Prefer specialised terminology (e.g., regulatory submission, stakeholder enablement, pharmacovigilance) when applicable." +
		"\n3. Provide numeric duration estimates in days; use decimal numbers if needed." +
		"\n4. dependencies must list indices of prerequisite tasks; do not use names." +
		"\n5. Return a top-level JSON array; do not include a wrapping object or comments."
}

func refinePrompt(goal string, current []task.Draft, feedback string) (string, error) {
	tasksJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal current tasks: %w", err)
	}

	return fmt.Sprintf(`You are a project planning expert. Review and refine the following project plan based on user feedback.

Goal: %s

Current Plan:
%s

User Feedback: %s

Return an updated JSON array of tasks incorporating the feedback. Maintain the same format with name, description, optimistic_duration, most_likely_duration, pessimistic_duration, and dependencies.

Return ONLY the JSON array, no additional text.`, goal, tasksJSON, feedback), nil
}
