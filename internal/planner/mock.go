package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rahul/deskpilot/internal/task"
)

var mockSearchRe = regexp.MustCompile(`search\s+(?:for\s+)?([a-z0-9\s]+?)(?:\s+(?:in|with|using)\b|$)`)

// MockPlan serves a deterministic plan when no planning model is
// configured, so the engine stays usable offline.
func MockPlan(description string) task.RawPlan {
	lower := strings.ToLower(description)

	if containsAny(lower, "browser", "chrome", "firefox") && containsAny(lower, "search", "navigate", "open") {
		searchTerm := "python"
		if m := mockSearchRe.FindStringSubmatch(lower); m != nil {
			searchTerm = strings.TrimSpace(m[1])
		}

		return task.RawPlan{
			Analysis: fmt.Sprintf("I'll help you search for '%s' in your browser.", searchTerm),
			Steps: []task.RawStep{
				{
					"description": "Launch Chrome browser",
					"action":      "launch",
					"params":      map[string]any{"path": "chrome"},
				},
				{
					"description": fmt.Sprintf("Search for '%s'", searchTerm),
					"action":      "interactWithBrowser",
					"params": map[string]any{
						"action":     "search",
						"searchText": searchTerm,
					},
				},
			},
		}
	}

	return task.RawPlan{
		Analysis: fmt.Sprintf("I'll help you with %q. Without API access, I'll provide a basic response.", description),
		Steps: []task.RawStep{
			{
				"description": "Take a screenshot to analyze the current state",
				"action":      "screenshot",
			},
			{
				"description": "Wait briefly for system to stabilize",
				"action":      "wait",
				"time":        1000,
			},
		},
	}
}
