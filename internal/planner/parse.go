package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rahul/deskpilot/internal/task"
)

// The planning model frequently wraps its JSON in prose or emits it with
// small syntax defects. ParsePlanResponse runs a repair ladder where each
// stage is attempted only if the previous one failed to parse; the final
// stage synthesizes a diagnostic plan, so a usable RawPlan always comes
// back.

var (
	braceSpanRe = regexp.MustCompile(`\{[\s\S]*\}`)
	trailObjRe  = regexp.MustCompile(`,\s*\}`)
	trailArrRe  = regexp.MustCompile(`,\s*\]`)
	analysisRe  = regexp.MustCompile(`["']analysis["']\s*:\s*["']([^"']*)["']`)
)

// ParsePlanResponse extracts a RawPlan from free-form model output.
func ParsePlanResponse(text string) task.RawPlan {
	if strings.TrimSpace(text) == "" {
		return FallbackRaw("Empty response from planner")
	}
	if p, err := parseDirect(text); err == nil {
		return p
	}
	if p, err := parseBraceSpan(text); err == nil {
		return p
	}
	if p, err := parseRepaired(text); err == nil {
		return p
	}
	if p, err := parseLastObject(text); err == nil {
		return p
	}
	if p, err := parseAnalysisField(text); err == nil {
		return p
	}
	return FallbackRaw("Failed to parse planner response. Using fallback analysis.")
}

func parseDirect(text string) (task.RawPlan, error) {
	var p task.RawPlan
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return task.RawPlan{}, err
	}
	return p, nil
}

// parseBraceSpan parses the largest brace-delimited substring.
func parseBraceSpan(text string) (task.RawPlan, error) {
	span := braceSpanRe.FindString(text)
	if span == "" {
		return task.RawPlan{}, fmt.Errorf("no brace-delimited object found")
	}
	return parseDirect(span)
}

// parseRepaired normalizes whitespace and strips trailing commas, then
// retries the direct and brace-span stages.
func parseRepaired(text string) (task.RawPlan, error) {
	fixed := strings.ReplaceAll(text, "\n", " ")
	fixed = strings.Join(strings.Fields(fixed), " ")
	fixed = trailObjRe.ReplaceAllString(fixed, "}")
	fixed = trailArrRe.ReplaceAllString(fixed, "]")

	if p, err := parseDirect(fixed); err == nil {
		return p, nil
	}
	return parseBraceSpan(fixed)
}

// parseLastObject parses the substring between the last opening and last
// closing brace.
func parseLastObject(text string) (task.RawPlan, error) {
	open := strings.LastIndex(text, "{")
	close := strings.LastIndex(text, "}")
	if open < 0 || close <= open {
		return task.RawPlan{}, fmt.Errorf("no trailing object found")
	}
	return parseDirect(text[open : close+1])
}

// parseAnalysisField salvages just the analysis value and wraps it in a
// minimal valid plan.
func parseAnalysisField(text string) (task.RawPlan, error) {
	m := analysisRe.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return task.RawPlan{}, fmt.Errorf("no analysis field found")
	}
	return FallbackRaw(m[1]), nil
}

// FallbackRaw builds the minimal diagnostic plan: assess the screen, then
// give the system a moment to settle. Steps are left in the flat shape so
// they flow through the same normalization as planner output.
func FallbackRaw(message string) task.RawPlan {
	return task.RawPlan{
		Analysis: message,
		Steps: []task.RawStep{
			{
				"description": "Take screenshot to assess current state",
				"action":      "screenshot",
			},
			{
				"description": "Wait for system to stabilize",
				"action":      "wait",
				"time":        2000,
			},
		},
	}
}

// FormatAgentInfo wraps a model-written self-description in an info-only
// plan, cleaning up bullet formatting along the way.
func FormatAgentInfo(text string) task.RawPlan {
	formatted := strings.ReplaceAll(text, "•", "• ")
	formatted = regexp.MustCompile(`\n- `).ReplaceAllString(formatted, "\n• ")
	formatted = strings.ReplaceAll(formatted, "* ", "• ")
	formatted = regexp.MustCompile(`\.([A-Z])`).ReplaceAllString(formatted, ". $1")

	return task.RawPlan{
		Analysis:  formatted,
		AgentInfo: true,
		Steps: []task.RawStep{
			{
				"description": "Take a screenshot to help you visualize the current state",
				"action":      "screenshot",
			},
		},
	}
}

// AgentInfoFallback renders the canned identity block as an info-only
// plan for when the planner is unreachable.
func AgentInfoFallback(info AgentInfo) task.RawPlan {
	var b strings.Builder
	b.WriteString(info.Purpose)
	b.WriteString("\n\nI can help you with:\n")
	for _, c := range info.Capabilities {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nMy limitations:\n")
	for _, l := range info.Limitations {
		fmt.Fprintf(&b, "- %s\n", l)
	}

	return task.RawPlan{
		Analysis:  b.String(),
		AgentInfo: true,
		Steps: []task.RawStep{
			{
				"description": "Take a screenshot to help you visualize the current state",
				"action":      "screenshot",
			},
		},
	}
}
