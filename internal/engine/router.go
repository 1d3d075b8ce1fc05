package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rahul/deskpilot/internal/handlers"
	"github.com/rahul/deskpilot/internal/notify"
	"github.com/rahul/deskpilot/internal/task"
)

// Router dispatches step actions to domain handlers by step type, with
// a forgiving rescue stage for near-miss action names, and merges
// recognized structured outputs back onto the blackboard.
type Router struct {
	handlers map[string]handlers.Handler
	notifier *notify.Notifier
}

func NewRouter(notifier *notify.Notifier, hs ...handlers.Handler) *Router {
	r := &Router{
		handlers: make(map[string]handlers.Handler, len(hs)),
		notifier: notifier,
	}
	for _, h := range hs {
		r.handlers[h.Domain()] = h
	}
	return r
}

// ExecuteStep runs every action of a step in order. A step with no
// actions gets exactly one synthesized default action first. Actions
// after a failed one still run; the step only errors when a handler
// returns a hard error that the rescue stage cannot absorb.
func (r *Router) ExecuteStep(ctx context.Context, step task.Step, bb *Blackboard) ([]handlers.Result, error) {
	actions := step.Actions
	if len(actions) == 0 {
		actions = []task.Action{r.synthesizeDefault(step, bb)}
	}

	var results []handlers.Result
	for _, action := range actions {
		result, err := r.dispatch(ctx, step, action, bb)
		if err != nil {
			return results, err
		}
		r.mergeResult(step, action, result, bb)
		results = append(results, result)
	}
	return results, nil
}

// synthesizeDefault guesses a single action for an action-less step
// from its name, description, type, and the live blackboard.
func (r *Router) synthesizeDefault(step task.Step, bb *Blackboard) task.Action {
	name := strings.ToLower(step.Name)
	desc := strings.ToLower(step.Description)
	mentions := func(terms ...string) bool {
		return containsAnyOf(name, terms...) || containsAnyOf(desc, terms...)
	}

	switch {
	case mentions("browser", "chrome", "search"):
		if mentions("search") {
			term := bb.GetString("search_term")
			if term == "" {
				term = "python"
			}
			return task.Action{Name: "interactWithBrowser", Params: map[string]any{
				"action":     "search",
				"searchText": term,
			}}
		}
		browser := bb.GetString("browser_name")
		if browser == "" {
			browser = "chrome"
		}
		return task.Action{Name: "launch", Params: map[string]any{"path": browser}}

	case step.Type == task.TypeFile || mentions("file", "create", "read"):
		if mentions("create") {
			return task.Action{Name: "create", Params: map[string]any{
				"path":    "hello.txt",
				"content": "Hello, World!",
			}}
		}
		if mentions("list") {
			return task.Action{Name: "list", Params: map[string]any{"path": "."}}
		}
		return task.Action{Name: "execute", Params: map[string]any{"command": "ls"}}

	default:
		return task.Action{Name: "execute", Params: map[string]any{
			"command": `echo "Executing default action"`,
		}}
	}
}

// resolveDomain picks the handler domain for an action. Steps typed with
// one of the four known domains route directly; untyped steps whose
// action is an interactive verb route to system; everything else also
// lands on system, with a warning.
func (r *Router) resolveDomain(step task.Step, action task.Action) string {
	domain := strings.ToLower(step.Type)
	if _, ok := r.handlers[domain]; ok {
		return domain
	}
	if domain == "" && quickActions[strings.ToLower(action.Name)] {
		return task.TypeSystem
	}
	if domain != "" {
		log.Printf("unknown step type %q, treating as system", step.Type)
	}
	return task.TypeSystem
}

func (r *Router) dispatch(ctx context.Context, step task.Step, action task.Action, bb *Blackboard) (handlers.Result, error) {
	domain := r.resolveDomain(step, action)
	h, ok := r.handlers[domain]
	if !ok {
		return handlers.Result{}, fmt.Errorf("no handler registered for domain %q", domain)
	}

	result, err := h.Execute(ctx, action.Name, action.Params)
	var unsupported *handlers.UnsupportedActionError
	if errors.As(err, &unsupported) {
		if rescued, ok := rescue(action); ok {
			rh, found := r.handlers[rescued.domain]
			if !found {
				return handlers.Result{}, err
			}
			log.Printf("reinterpreting action %q as %s/%s", action.Name, rescued.domain, rescued.action)
			return rh.Execute(ctx, rescued.action, action.Params)
		}
		return handlers.Result{}, err
	}
	return result, err
}

type rescuedAction struct {
	domain string
	action string
}

// rescue reinterprets an unrecognized action name from its intent and
// parameters. Returns false when no best-effort reading exists; the
// original unsupported-action error then stands.
func rescue(action task.Action) (rescuedAction, bool) {
	name := strings.ToLower(action.Name)
	has := func(key string) bool {
		v, ok := action.Params[key]
		return ok && v != nil
	}

	switch {
	case strings.Contains(name, "execute") && has("command"):
		return rescuedAction{task.TypeSystem, "execute"}, true
	case (strings.Contains(name, "create") || strings.Contains(name, "save")) &&
		(has("path") || has("filename")):
		return rescuedAction{task.TypeFile, "create"}, true
	case strings.Contains(name, "calculator") &&
		has("num1") && has("num2") && has("operation"):
		return rescuedAction{task.TypeCode, "automateCalculator"}, true
	}
	return rescuedAction{}, false
}

// mergeResult folds recognized structured outputs into the blackboard
// so later steps and the summarizer can see them.
func (r *Router) mergeResult(step task.Step, action task.Action, result handlers.Result, bb *Blackboard) {
	if !result.Success {
		return
	}

	domain := strings.ToLower(step.Type)
	if domain == task.TypeCode && strings.Contains(strings.ToLower(action.Name), "calculator") {
		if value := result.Get("result"); value != nil {
			bb.Set("calculation_result", value)
			bb.Set("calculation_operation", result.Get("operation"))
			if r.notifier != nil {
				op, _ := result.Get("operation").(string)
				msg, _ := result.Get("message").(string)
				r.notifier.Emit(notify.EventCalculationResult, notify.CalculationResult{
					Operation: op,
					Result:    value,
					Message:   msg,
				})
			}
		}
		return
	}

	if len(result.Fields) == 0 {
		return
	}
	switch domain {
	case task.TypeWeb:
		bb.Set("web_results", result.Fields)
	case task.TypeFile:
		bb.Set("file_results", result.Fields)
	}
}
