package engine

import (
	"context"
	"testing"

	"github.com/rahul/deskpilot/internal/handlers"
	"github.com/rahul/deskpilot/internal/notify"
	"github.com/rahul/deskpilot/internal/task"
)

// fakeHandler records calls and answers through a scripted function.
type fakeHandler struct {
	domain string
	fn     func(action string, params map[string]any) (handlers.Result, error)
	calls  []string
}

func (f *fakeHandler) Domain() string { return f.domain }

func (f *fakeHandler) Execute(_ context.Context, action string, params map[string]any) (handlers.Result, error) {
	f.calls = append(f.calls, action)
	if f.fn != nil {
		return f.fn(action, params)
	}
	return handlers.OK(nil), nil
}

func okHandler(domain string) *fakeHandler {
	return &fakeHandler{domain: domain}
}

func strictHandler(domain string, known ...string) *fakeHandler {
	supported := map[string]bool{}
	for _, k := range known {
		supported[k] = true
	}
	return &fakeHandler{
		domain: domain,
		fn: func(action string, params map[string]any) (handlers.Result, error) {
			if !supported[action] {
				return handlers.Result{}, &handlers.UnsupportedActionError{Domain: domain, Action: action}
			}
			return handlers.OK(map[string]any{"action": action}), nil
		},
	}
}

func TestRouterRescuesExecuteVariant(t *testing.T) {
	sys := strictHandler(task.TypeSystem, "execute")
	r := NewRouter(nil, sys)

	step := task.Step{
		Type: task.TypeSystem,
		Actions: []task.Action{
			{Name: "execute_terminal_command", Params: map[string]any{"command": "uname"}},
		},
	}
	results, err := r.ExecuteStep(context.Background(), step, NewBlackboard())
	if err != nil {
		t.Fatalf("rescue should have absorbed the unknown action: %v", err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v", results)
	}
	if got := sys.calls[len(sys.calls)-1]; got != "execute" {
		t.Fatalf("last dispatched action = %q, want execute", got)
	}
}

func TestRouterRescuesCalculatorVariant(t *testing.T) {
	code := strictHandler(task.TypeCode, "automateCalculator")
	code.fn = func(action string, params map[string]any) (handlers.Result, error) {
		if action != "automateCalculator" {
			return handlers.Result{}, &handlers.UnsupportedActionError{Domain: task.TypeCode, Action: action}
		}
		return handlers.OK(map[string]any{
			"operation": "3 + 4",
			"result":    7,
			"message":   "Task completed. The answer is 7.",
		}), nil
	}

	notifier := notify.New()
	var calcEvents []notify.CalculationResult
	notifier.On(notify.EventCalculationResult, func(evt notify.Event) {
		calcEvents = append(calcEvents, evt.Payload.(notify.CalculationResult))
	})

	r := NewRouter(notifier, code)
	bb := NewBlackboard()
	step := task.Step{
		Type: task.TypeCode,
		Actions: []task.Action{
			{Name: "openCalculatorAndCompute", Params: map[string]any{
				"num1": 3.0, "num2": 4.0, "operation": "+",
			}},
		},
	}

	if _, err := r.ExecuteStep(context.Background(), step, bb); err != nil {
		t.Fatal(err)
	}
	if v, _ := bb.Get("calculation_result"); v != 7 {
		t.Fatalf("calculation_result = %v, want 7", v)
	}
	if len(calcEvents) != 1 || calcEvents[0].Result != 7 {
		t.Fatalf("calculation events = %+v", calcEvents)
	}
}

func TestRouterUnrescuableActionErrors(t *testing.T) {
	sys := strictHandler(task.TypeSystem, "execute")
	r := NewRouter(nil, sys)

	step := task.Step{
		Type:    task.TypeSystem,
		Actions: []task.Action{{Name: "levitate", Params: map[string]any{}}},
	}
	_, err := r.ExecuteStep(context.Background(), step, NewBlackboard())
	if err == nil {
		t.Fatal("expected an unsupported-action error")
	}
}

func TestRouterSynthesizesSearchAction(t *testing.T) {
	sys := okHandler(task.TypeSystem)
	r := NewRouter(nil, sys)
	bb := NewBlackboard()
	bb.Set("search_term", "rust programming")

	step := task.Step{Name: "Perform Search", Type: task.TypeSystem}
	if _, err := r.ExecuteStep(context.Background(), step, bb); err != nil {
		t.Fatal(err)
	}
	if len(sys.calls) != 1 || sys.calls[0] != "interactWithBrowser" {
		t.Fatalf("calls = %v, want a synthesized browser interaction", sys.calls)
	}
}

func TestRouterSynthesizesFileCreate(t *testing.T) {
	file := okHandler(task.TypeFile)
	sys := okHandler(task.TypeSystem)
	r := NewRouter(nil, file, sys)

	step := task.Step{Name: "Create report", Type: task.TypeFile}
	if _, err := r.ExecuteStep(context.Background(), step, NewBlackboard()); err != nil {
		t.Fatal(err)
	}
	if len(file.calls) != 1 || file.calls[0] != "create" {
		t.Fatalf("file calls = %v, want a synthesized create", file.calls)
	}
}

func TestRouterUnknownTypeFallsBackToSystem(t *testing.T) {
	sys := okHandler(task.TypeSystem)
	r := NewRouter(nil, sys)

	step := task.Step{
		Type:    "hologram",
		Actions: []task.Action{{Name: "execute", Params: map[string]any{"command": "true"}}},
	}
	if _, err := r.ExecuteStep(context.Background(), step, NewBlackboard()); err != nil {
		t.Fatal(err)
	}
	if len(sys.calls) != 1 {
		t.Fatalf("system handler received %v calls", sys.calls)
	}
}

func TestRouterMergesWebResults(t *testing.T) {
	web := &fakeHandler{
		domain: task.TypeWeb,
		fn: func(action string, params map[string]any) (handlers.Result, error) {
			return handlers.OK(map[string]any{"title": "Example", "content": "body"}), nil
		},
	}
	r := NewRouter(nil, web)
	bb := NewBlackboard()

	step := task.Step{
		Type:    task.TypeWeb,
		Actions: []task.Action{{Name: "extract", Params: map[string]any{}}},
	}
	if _, err := r.ExecuteStep(context.Background(), step, bb); err != nil {
		t.Fatal(err)
	}
	if !bb.Has("web_results") {
		t.Fatal("web_results not merged into the blackboard")
	}
}
