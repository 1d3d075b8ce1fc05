package notify

import (
	"log"
	"sync"

	"github.com/rahul/deskpilot/internal/handlers"
	"github.com/rahul/deskpilot/internal/task"
)

// EventType identifies a lifecycle notification emitted by the engine.
type EventType string

const (
	EventAnalyzing         EventType = "analyzing"
	EventAnalyzed          EventType = "analyzed"
	EventStepStarted       EventType = "step-started"
	EventStepCompleted     EventType = "step-completed"
	EventStepError         EventType = "step-error"
	EventCompleted         EventType = "completed"
	EventError             EventType = "error"
	EventTaskSummary       EventType = "task-summary"
	EventCalculationResult EventType = "calculation-result"
)

// Event is the envelope delivered to listeners. Payload is one of the
// typed payload structs below, matching the event type.
type Event struct {
	Type    EventType
	Payload any
}

// Payload variants, one per event type.
type (
	Analyzing struct {
		Task string
	}
	Analyzed struct {
		Task       string
		Analysis   string
		Steps      []task.Step
		Challenges []string
		AgentInfo  bool
	}
	StepStarted struct {
		Step  task.Step
		Index int
		Total int
	}
	StepCompleted struct {
		Step    task.Step
		Index   int
		Results []handlers.Result
	}
	StepError struct {
		Step  task.Step
		Index int
		Err   string
	}
	Completed struct {
		Task string
	}
	TaskError struct {
		Err string
	}
	CalculationResult struct {
		Operation string
		Result    any
		Message   string
	}
)

// Listener receives events. A panicking listener is isolated: it neither
// blocks later listeners nor aborts the engine.
type Listener func(Event)

// Notifier fans lifecycle events out to subscribers per event type.
// Delivery is synchronous and follows subscription order.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[EventType][]Listener
}

func New() *Notifier {
	return &Notifier{listeners: make(map[EventType][]Listener)}
}

// On registers a listener for one event type.
func (n *Notifier) On(t EventType, fn Listener) {
	n.mu.Lock()
	n.listeners[t] = append(n.listeners[t], fn)
	n.mu.Unlock()
}

// Emit delivers the event to every listener registered for its type.
func (n *Notifier) Emit(t EventType, payload any) {
	n.mu.RLock()
	subs := make([]Listener, len(n.listeners[t]))
	copy(subs, n.listeners[t])
	n.mu.RUnlock()

	evt := Event{Type: t, Payload: payload}
	for _, fn := range subs {
		deliver(fn, evt)
	}
}

func deliver(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: listener panic on %s: %v", evt.Type, r)
		}
	}()
	fn(evt)
}
