package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rahul/deskpilot/internal/handlers"
	"github.com/rahul/deskpilot/internal/notify"
	"github.com/rahul/deskpilot/internal/observability"
	"github.com/rahul/deskpilot/internal/task"
)

// PlanSource produces plans for task descriptions. The planner client
// implements it; tests substitute fakes.
type PlanSource interface {
	IsAgentInfoQuery(query string) bool
	GeneratePlan(ctx context.Context, description string) (task.RawPlan, error)
	GenerateAgentInfo(ctx context.Context, query string) (task.RawPlan, error)
}

// RunRecorder persists run history. Recording failures are logged and
// never interrupt execution.
type RunRecorder interface {
	RecordRun(runID, description, analysis string, steps int) error
	RecordStep(runID string, index int, name string, success bool) error
	RecordSummary(runID string, summary task.Summary) error
}

// StepOutcome is the result of advancing the state machine one step.
type StepOutcome struct {
	Completed bool
	Step      task.Step
	Index     int
	Results   []handlers.Result
}

// TaskResult is the outcome of a full run.
type TaskResult struct {
	Success bool
	Task    string
	Context map[string]any
	Summary task.Summary
}

// TaskState is a point-in-time snapshot of the engine.
type TaskState struct {
	Task             string
	CurrentStepIndex int
	TotalSteps       int
	Steps            []task.Step
	Context          map[string]any
}

// Engine is the task orchestration state machine. One task is active at
// a time; analyzing a new task discards the previous plan and context.
// All exported methods serialize on an internal mutex.
type Engine struct {
	mu       sync.Mutex
	planner  PlanSource
	router   *Router
	notifier *notify.Notifier
	logger   *observability.Logger
	recorder RunRecorder

	runID       string
	currentTask string
	plan        task.Plan
	stepIndex   int
	bb          *Blackboard
}

// Option configures optional engine collaborators.
type Option func(*Engine)

func WithLogger(l *observability.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func New(planner PlanSource, router *Router, notifier *notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		planner:   planner,
		router:    router,
		notifier:  notifier,
		stepIndex: -1,
		bb:        NewBlackboard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) emit(t notify.EventType, payload any) {
	if e.notifier != nil {
		e.notifier.Emit(t, payload)
	}
}

// Analyze turns a task description into a plan and resets execution
// state. Plan sources are tried in order: agent-info detection, the
// pre-planner intent rules, the external planner, and finally the
// heuristic fallback generator. Analyze never fails because of the
// planner; only structurally hopeless descriptions surface an error.
func (e *Engine) Analyze(ctx context.Context, description string) (task.Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emit(notify.EventAnalyzing, notify.Analyzing{Task: description})
	log.Printf("analyzing task: %s", description)

	runID := uuid.NewString()
	if e.logger != nil {
		e.logger.LogTask(runID, description)
	}

	if e.planner != nil && e.planner.IsAgentInfoQuery(description) {
		raw, err := e.planner.GenerateAgentInfo(ctx, description)
		if err != nil {
			// GenerateAgentInfo degrades internally; a hard error here
			// still gets the canned identity treatment.
			raw = task.RawPlan{Analysis: description, AgentInfo: true}
		}
		plan, err := NormalizePlan(raw)
		if err != nil {
			return task.Plan{}, fmt.Errorf("agent info plan: %w", err)
		}
		plan.AgentInfo = true

		e.reset(runID, description, plan)
		e.bb.Set("isAgentInfoResponse", true)
		e.emitAnalyzed(description, plan)
		return plan, nil
	}

	if intent, ok := MatchIntent(description); ok {
		e.reset(runID, description, intent.Plan)
		e.bb.Merge(intent.Context)
		e.emitAnalyzed(description, intent.Plan)
		e.recordRun(description, intent.Plan)
		return intent.Plan, nil
	}

	plan, fallback := e.planOrFallback(ctx, description)
	e.reset(runID, description, plan)
	if fallback != nil {
		e.bb.Merge(fallback.Context)
	}
	e.emitAnalyzed(description, plan)
	e.recordRun(description, plan)
	if e.logger != nil {
		e.logger.LogPlan(runID, plan.Analysis, len(plan.Steps), fallback != nil)
	}
	return plan, nil
}

// planOrFallback consults the external planner and falls back to the
// heuristic generator on any failure, including unusable output.
func (e *Engine) planOrFallback(ctx context.Context, description string) (task.Plan, *Intent) {
	if e.planner != nil {
		raw, err := e.planner.GeneratePlan(ctx, description)
		if err == nil {
			plan, nerr := NormalizePlan(raw)
			if nerr == nil {
				return plan, nil
			}
			err = nerr
		}
		log.Printf("planner unavailable, using fallback plan: %v", err)
	}

	intent := GenerateFallback(description)
	return intent.Plan, &intent
}

func (e *Engine) reset(runID, description string, plan task.Plan) {
	e.runID = runID
	e.currentTask = description
	e.plan = plan
	e.stepIndex = -1
	e.bb = NewBlackboard()
	e.bb.Set("task_description", description)
	e.bb.Set("analysis", plan.Analysis)
	e.bb.Set("challenges", plan.Challenges)
}

func (e *Engine) emitAnalyzed(description string, plan task.Plan) {
	e.emit(notify.EventAnalyzed, notify.Analyzed{
		Task:       description,
		Analysis:   plan.Analysis,
		Steps:      plan.Steps,
		Challenges: plan.Challenges,
		AgentInfo:  plan.AgentInfo,
	})
}

func (e *Engine) recordRun(description string, plan task.Plan) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordRun(e.runID, description, plan.Analysis, len(plan.Steps)); err != nil {
		log.Printf("failed to record run: %v", err)
	}
}

// ExecuteNextStep advances the state machine by one step. Once past the
// last step it reports completion without executing anything. A step
// error is returned to the caller after the step-error notification;
// the index stays advanced so a subsequent call proceeds to the next
// step.
func (e *Engine) ExecuteNextStep(ctx context.Context) (StepOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executeNextStep(ctx)
}

func (e *Engine) executeNextStep(ctx context.Context) (StepOutcome, error) {
	if len(e.plan.Steps) == 0 {
		return StepOutcome{}, ErrNoTask
	}

	if e.stepIndex >= len(e.plan.Steps)-1 {
		e.emit(notify.EventCompleted, notify.Completed{Task: e.currentTask})
		return StepOutcome{Completed: true}, nil
	}

	e.stepIndex++
	step := e.plan.Steps[e.stepIndex]

	e.emit(notify.EventStepStarted, notify.StepStarted{
		Step:  step,
		Index: e.stepIndex,
		Total: len(e.plan.Steps),
	})
	if e.logger != nil {
		e.logger.LogStep(e.runID, e.stepIndex, step.Name, "started")
	}

	results, err := e.router.ExecuteStep(ctx, step, e.bb)
	if err != nil {
		log.Printf("error executing step %d: %v", e.stepIndex, err)
		e.emit(notify.EventStepError, notify.StepError{
			Step:  step,
			Index: e.stepIndex,
			Err:   err.Error(),
		})
		e.recordStep(step, false)
		return StepOutcome{Step: step, Index: e.stepIndex, Results: results}, err
	}

	if len(results) > 0 {
		e.bb.Set(fmt.Sprintf("step_%d_result", e.stepIndex), results[len(results)-1])
	}

	e.emit(notify.EventStepCompleted, notify.StepCompleted{
		Step:    step,
		Index:   e.stepIndex,
		Results: results,
	})
	e.recordStep(step, true)
	if e.logger != nil {
		e.logger.LogStep(e.runID, e.stepIndex, step.Name, "completed")
	}

	return StepOutcome{Step: step, Index: e.stepIndex, Results: results}, nil
}

func (e *Engine) recordStep(step task.Step, success bool) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordStep(e.runID, e.stepIndex, step.Name, success); err != nil {
		log.Printf("failed to record step: %v", err)
	}
}

// ExecuteFullTask drives the current plan from the beginning through
// completion. Per-step errors are reported and skipped rather than
// aborting the run; the summary always gets produced. Agent-info plans
// short-circuit with a success summary and zero step executions.
func (e *Engine) ExecuteFullTask(ctx context.Context) (TaskResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan.AgentInfo {
		summary := task.Summary{
			Task:       e.currentTask,
			Successful: true,
			Results:    map[string]any{},
			Message:    "Information provided successfully.",
		}
		e.emit(notify.EventTaskSummary, summary)
		return TaskResult{
			Success: true,
			Task:    e.currentTask,
			Context: e.bb.Snapshot(),
			Summary: summary,
		}, nil
	}

	if e.currentTask == "" {
		e.emit(notify.EventError, notify.TaskError{Err: ErrNoTask.Error()})
		return TaskResult{}, ErrNoTask
	}
	if len(e.plan.Steps) == 0 {
		e.emit(notify.EventError, notify.TaskError{Err: ErrNoSteps.Error()})
		return TaskResult{}, ErrNoSteps
	}

	e.stepIndex = -1
	for {
		outcome, err := e.executeNextStep(ctx)
		if err != nil {
			// skip past the failed step, keep going
			e.emit(notify.EventError, notify.TaskError{Err: err.Error()})
			continue
		}
		if outcome.Completed {
			break
		}
	}

	summary := Summarize(e.currentTask, e.plan.Steps, e.stepIndex, e.bb)
	e.emit(notify.EventTaskSummary, summary)
	if e.recorder != nil {
		if err := e.recorder.RecordSummary(e.runID, summary); err != nil {
			log.Printf("failed to record summary: %v", err)
		}
	}

	return TaskResult{
		Success: true,
		Task:    e.currentTask,
		Context: e.bb.Snapshot(),
		Summary: summary,
	}, nil
}

// State returns a snapshot of the current task state.
func (e *Engine) State() TaskState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TaskState{
		Task:             e.currentTask,
		CurrentStepIndex: e.stepIndex,
		TotalSteps:       len(e.plan.Steps),
		Steps:            e.plan.Steps,
		Context:          e.bb.Snapshot(),
	}
}
