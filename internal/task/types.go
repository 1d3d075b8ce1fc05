package task

// Step domain types. Unrecognized types are routed to the system handler
// at execution time rather than rejected.
const (
	TypeFile   = "file"
	TypeSystem = "system"
	TypeCode   = "code"
	TypeWeb    = "web"
)

// Action is a single verb plus parameters dispatched to a domain handler.
// Params is never nil after normalization.
type Action struct {
	Name   string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Step groups one or more actions under a domain type.
type Step struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Actions     []Action `json:"actions"`
}

// Plan is the canonical output of task analysis.
type Plan struct {
	Analysis   string   `json:"analysis"`
	Steps      []Step   `json:"steps"`
	Challenges []string `json:"challenges"`
	AgentInfo  bool     `json:"isAgentInfoResponse,omitempty"`
}

// RawStep is a loosely-typed step as returned by the planner service.
// It may carry a flat "action" field with primitive parameters instead
// of a proper actions list, and may be missing "id" or "type".
type RawStep map[string]any

// RawPlan is the planner's wire shape before normalization.
type RawPlan struct {
	Analysis   string    `json:"analysis"`
	Steps      []RawStep `json:"steps"`
	Challenges []string  `json:"challenges"`
	AgentInfo  bool      `json:"isAgentInfoResponse"`
}

// Summary is the human-readable outcome of a task run. Successful means
// every step was reached, not that every action succeeded.
type Summary struct {
	Task           string         `json:"task"`
	Steps          int            `json:"steps"`
	StepsCompleted int            `json:"steps_completed"`
	Successful     bool           `json:"successful"`
	Results        map[string]any `json:"results"`
	Message        string         `json:"message"`
}
