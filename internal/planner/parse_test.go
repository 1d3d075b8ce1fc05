package planner

import (
	"testing"
)

func TestParsePlanResponse_Direct(t *testing.T) {
	raw := ParsePlanResponse(`{"analysis": "open the editor", "steps": [{"id": 1, "name": "Open"}], "challenges": ["focus"]}`)

	if raw.Analysis != "open the editor" {
		t.Errorf("analysis = %q", raw.Analysis)
	}
	if len(raw.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(raw.Steps))
	}
	if raw.Steps[0]["name"] != "Open" {
		t.Errorf("step name = %v", raw.Steps[0]["name"])
	}
	if len(raw.Challenges) != 1 || raw.Challenges[0] != "focus" {
		t.Errorf("challenges = %v", raw.Challenges)
	}
}

func TestParsePlanResponse_EmbeddedInProse(t *testing.T) {
	text := `Sure! Here is the plan you asked for:

{"analysis": "launch the browser", "steps": [{"description": "start chrome", "action": "launch"}]}

Let me know if you need anything else.`

	raw := ParsePlanResponse(text)
	if raw.Analysis != "launch the browser" {
		t.Errorf("analysis = %q, want embedded object's analysis", raw.Analysis)
	}
	if len(raw.Steps) != 1 || raw.Steps[0]["action"] != "launch" {
		t.Errorf("steps = %v", raw.Steps)
	}
}

func TestParsePlanResponse_TrailingCommas(t *testing.T) {
	text := `{"analysis": "tidy up",
		"steps": [
			{"description": "list files", "action": "list",},
		],
	}`

	raw := ParsePlanResponse(text)
	if raw.Analysis != "tidy up" {
		t.Errorf("analysis = %q", raw.Analysis)
	}
	if len(raw.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(raw.Steps))
	}
}

func TestParsePlanResponse_AnalysisSalvage(t *testing.T) {
	// Unbalanced braces defeat every structural stage; the analysis value
	// should still be salvaged into a minimal plan.
	text := `broken { "analysis": "check the download folder", "steps": [[[`

	raw := ParsePlanResponse(text)
	if raw.Analysis != "check the download folder" {
		t.Errorf("analysis = %q", raw.Analysis)
	}
	if len(raw.Steps) == 0 {
		t.Error("salvaged plan should carry diagnostic steps")
	}
}

func TestParsePlanResponse_Hopeless(t *testing.T) {
	raw := ParsePlanResponse("complete nonsense with no structure at all")

	if raw.Analysis == "" {
		t.Error("diagnostic fallback should carry a message")
	}
	if len(raw.Steps) != 2 {
		t.Errorf("diagnostic fallback steps = %d, want 2", len(raw.Steps))
	}
	if raw.Steps[0]["action"] != "screenshot" {
		t.Errorf("first fallback step = %v", raw.Steps[0]["action"])
	}
}

func TestParsePlanResponse_Empty(t *testing.T) {
	raw := ParsePlanResponse("   ")
	if raw.Analysis != "Empty response from planner" {
		t.Errorf("analysis = %q", raw.Analysis)
	}
}

func TestFormatAgentInfo_Flagged(t *testing.T) {
	raw := FormatAgentInfo("I am a desktop agent.\n- screenshots\n- typing")
	if !raw.AgentInfo {
		t.Error("agent info plan must carry the flag")
	}
	if len(raw.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(raw.Steps))
	}
}
