package ollama

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/planwright/planwright/internal/domain/task"
)

// maxDependencyIndex bounds dependency indices accepted from the model.
const maxDependencyIndex = 50

var (
	codeBlockRe = regexp.MustCompile("(?is)```json\\s*(\\[.*?\\])\\s*```")
	arrayRe     = regexp.MustCompile(`(?s)\[.*\]`)
)

// parseDrafts extracts a sanitized draft list from raw model output.
// Returns nil when no usable tasks can be recovered.
func parseDrafts(text, goal string) []task.Draft {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil
	}

	var candidates []map[string]any
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil
	}

	drafts := make([]task.Draft, 0, len(candidates))
	for idx, cand := range candidates {
		if cand == nil {
			continue
		}
		if !hasKeys(cand, "name", "optimistic_duration", "most_likely_duration", "pessimistic_duration") {
			continue
		}

		optimistic := positiveFloat(cand["optimistic_duration"], 1.0)
		mostLikely := positiveFloat(cand["most_likely_duration"], math.Max(optimistic, 1.5))
		pessimistic := positiveFloat(cand["pessimistic_duration"], math.Max(mostLikely*1.5, 3.0))

		drafts = append(drafts, task.Draft{
			Name:         truncate(strings.TrimSpace(stringValue(cand["name"], "Task")), 120),
			Description:  truncate(strings.TrimSpace(stringValue(cand["description"], goal)), 1000),
			Optimistic:   optimistic,
			MostLikely:   mostLikely,
			Pessimistic:  math.Max(pessimistic, math.Max(mostLikely, optimistic)),
			Dependencies: sanitizeDependencies(cand["dependencies"], idx),
		})
	}

	if len(drafts) == 0 {
		return nil
	}
	return drafts
}

// extractJSONArray pulls a JSON array out of model output that may be bare,
// fenced in a ```json block, or buried in prose.
func extractJSONArray(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "[") && strings.HasSuffix(cleaned, "]") {
		return cleaned
	}
	if m := codeBlockRe.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	if m := arrayRe.FindString(cleaned); m != "" {
		return m
	}
	return ""
}

// sanitizeDependencies keeps only integer indices in [0, maxDependencyIndex)
// that do not point at the task itself. Everything else is dropped quietly.
func sanitizeDependencies(raw any, selfIdx int) []int {
	list, ok := raw.([]any)
	if !ok {
		return []int{}
	}

	deps := make([]int, 0, len(list))
	for _, item := range list {
		idx, ok := intValue(item)
		if !ok {
			continue
		}
		if idx >= 0 && idx < maxDependencyIndex && idx != selfIdx {
			deps = append(deps, idx)
		}
	}
	return deps
}

func hasKeys(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

// positiveFloat coerces a JSON value to a finite positive float,
// returning fallback otherwise.
func positiveFloat(v any, fallback float64) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		if err := json.Unmarshal([]byte(n), &f); err != nil {
			return fallback
		}
	default:
		return fallback
	}

	if math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 {
		return fallback
	}
	return f
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(n), &f); err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func stringValue(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

// truncate caps s at n runes. Slicing bytes could split a multi-byte rune
// in model output, so the cut is made on rune boundaries.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
