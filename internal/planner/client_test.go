package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func newTestClient(m llms.Model, retries int) *Client {
	c := NewClient(m, retries, time.Second)
	c.backoff = time.Millisecond
	return c
}

func TestIsAgentInfoQuery(t *testing.T) {
	c := NewClient(nil, 1, time.Second)

	for _, q := range []string{"what can you do", "Who are you?", "tell me about yourself please"} {
		if !c.IsAgentInfoQuery(q) {
			t.Errorf("IsAgentInfoQuery(%q) = false, want true", q)
		}
	}
	for _, q := range []string{"", "search for cats in chrome", "create a file"} {
		if c.IsAgentInfoQuery(q) {
			t.Errorf("IsAgentInfoQuery(%q) = true, want false", q)
		}
	}
}

func TestGeneratePlan_RetriesThenSucceeds(t *testing.T) {
	model := &fakeModel{
		errs:    []error{errors.New("timeout"), errors.New("timeout")},
		replies: []string{"", "", `{"analysis": "third time lucky", "steps": []}`},
	}
	c := newTestClient(model, 3)

	raw, err := c.GeneratePlan(context.Background(), "open calculator")
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	if raw.Analysis != "third time lucky" {
		t.Errorf("analysis = %q", raw.Analysis)
	}
	if model.calls != 3 {
		t.Errorf("model calls = %d, want 3", model.calls)
	}
}

func TestGeneratePlan_ExhaustedRetries(t *testing.T) {
	model := &fakeModel{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	c := newTestClient(model, 3)

	_, err := c.GeneratePlan(context.Background(), "open calculator")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	var perr *PlannerError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *PlannerError", err)
	}
	if perr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", perr.Attempts)
	}
}

func TestGeneratePlan_MalformedOutputStillYieldsPlan(t *testing.T) {
	model := &fakeModel{replies: []string{"not json at all"}}
	c := newTestClient(model, 1)

	raw, err := c.GeneratePlan(context.Background(), "do something")
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	if len(raw.Steps) == 0 {
		t.Error("repair ladder should produce diagnostic steps")
	}
}

func TestGeneratePlan_OfflineMockMode(t *testing.T) {
	c := NewClient(nil, 1, time.Second)

	raw, err := c.GeneratePlan(context.Background(), "search for rust programming in chrome")
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	if len(raw.Steps) != 2 {
		t.Fatalf("mock browser plan steps = %d, want 2", len(raw.Steps))
	}
	if raw.Steps[1]["action"] != "interactWithBrowser" {
		t.Errorf("second mock step action = %v", raw.Steps[1]["action"])
	}
}

func TestGenerateAgentInfo_FallsBackOnError(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("down")}}
	c := newTestClient(model, 1)

	raw, err := c.GenerateAgentInfo(context.Background(), "who are you")
	if err != nil {
		t.Fatalf("GenerateAgentInfo must not fail: %v", err)
	}
	if !raw.AgentInfo {
		t.Error("fallback identity plan must carry the agent info flag")
	}
	if raw.Analysis == "" {
		t.Error("fallback identity plan must describe the agent")
	}
}
