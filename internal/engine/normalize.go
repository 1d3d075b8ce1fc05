package engine

import (
	"fmt"

	"github.com/rahul/deskpilot/internal/task"
)

// quickActions are interactive verbs that mark a step as a system step
// when no type is declared.
var quickActions = map[string]bool{
	"click":  true,
	"type":   true,
	"wait":   true,
	"press":  true,
	"scroll": true,
}

// flatParamKeys are the primitive parameters recognized when a step
// carries a flat "action" field instead of an actions list.
var flatParamKeys = []string{"text", "target", "time"}

// NormalizePlan converts loose planner output into a canonical Plan.
// The rules are ordered and idempotent: normalizing an already canonical
// plan changes nothing.
//
// Per step: infer a missing type (quick-action steps and everything else
// default to system, unrecognized types are kept for the router's own
// fallback), assign a 1-based id when absent, and wrap a flat "action"
// field into a single-element actions list. Steps left with no actions
// are legal; the router synthesizes a default action at execution time,
// when the blackboard may hold context the normalizer cannot see.
func NormalizePlan(raw task.RawPlan) (task.Plan, error) {
	plan := task.Plan{
		Analysis:   raw.Analysis,
		Challenges: raw.Challenges,
		AgentInfo:  raw.AgentInfo,
	}

	for i, rs := range raw.Steps {
		if rs == nil {
			return task.Plan{}, fmt.Errorf("step %d is not an object", i+1)
		}
		step := task.Step{
			Name:        stringField(rs, "name"),
			Description: stringField(rs, "description"),
			Type:        stringField(rs, "type"),
		}

		if step.Type == "" {
			step.Type = task.TypeSystem
		}

		step.ID = intField(rs, "id")
		if step.ID == 0 {
			step.ID = i + 1
		}

		step.Actions = normalizeActions(rs)
		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}

func normalizeActions(rs task.RawStep) []task.Action {
	if list, ok := rs["actions"].([]any); ok && len(list) > 0 {
		var actions []task.Action
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			a := task.Action{Name: stringField(m, "action")}
			if params, ok := m["params"].(map[string]any); ok {
				a.Params = params
			}
			if a.Params == nil {
				a.Params = map[string]any{}
			}
			actions = append(actions, a)
		}
		if len(actions) > 0 {
			return actions
		}
	}

	// A flat action with primitive parameters becomes a one-element list.
	// An explicit flat params map is honored as-is.
	if flat := stringField(rs, "action"); flat != "" {
		params := map[string]any{}
		if p, ok := rs["params"].(map[string]any); ok {
			for k, v := range p {
				params[k] = v
			}
		}
		for _, key := range flatParamKeys {
			if v, ok := rs[key]; ok {
				params[key] = v
			}
		}
		return []task.Action{{Name: flat, Params: params}}
	}

	return nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// StepToRaw renders a canonical step back into its loose form. Round
// tripping through NormalizePlan reproduces the step exactly.
func StepToRaw(s task.Step) task.RawStep {
	raw := task.RawStep{
		"id":          s.ID,
		"name":        s.Name,
		"description": s.Description,
		"type":        s.Type,
	}
	if len(s.Actions) > 0 {
		list := make([]any, 0, len(s.Actions))
		for _, a := range s.Actions {
			list = append(list, map[string]any{"action": a.Name, "params": a.Params})
		}
		raw["actions"] = list
	}
	return raw
}
