package planner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rahul/deskpilot/internal/task"
	"github.com/tmc/langchaingo/llms"
)

// PlannerError wraps a planner transport failure after all retries were
// exhausted. The engine recovers from it with a heuristic fallback plan.
type PlannerError struct {
	Attempts int
	Err      error
}

func (e *PlannerError) Error() string {
	return fmt.Sprintf("planner failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PlannerError) Unwrap() error { return e.Err }

// AgentInfo describes the agent's identity, served verbatim for
// self-referential queries when the planning model is unreachable.
type AgentInfo struct {
	Name         string
	Version      string
	Purpose      string
	Capabilities []string
	Limitations  []string
}

func DefaultAgentInfo() AgentInfo {
	return AgentInfo{
		Name:    "Deskpilot",
		Version: "1.0.0",
		Purpose: "I'm an AI desktop agent designed to help you automate tasks on your computer. " +
			"I can analyze screen content, control your mouse and keyboard, and execute " +
			"workflows based on visual information.",
		Capabilities: []string{
			"Take screenshots of your desktop",
			"Analyze screen content to understand what's visible",
			"Automate mouse clicks and keyboard inputs",
			"Execute multi-step desktop workflows",
			"Break down complex tasks into simple steps",
			"Adapt to different applications and interfaces",
		},
		Limitations: []string{
			"I can only interact with what's visible on screen",
			"I need clear instructions for complex tasks",
			"I may require confirmation for certain actions",
			"I operate within the boundaries of your desktop environment",
		},
	}
}

var selfReferentialPatterns = []string{
	"what can you do",
	"what are you",
	"who are you",
	"your purpose",
	"your capabilities",
	"what do you do",
	"how do you work",
	"how does this work",
	"what is this",
	"help me",
	"your function",
	"your features",
	"your abilities",
	"tell me about yourself",
	"introduce yourself",
	"your limitations",
	"what can't you do",
	"your name",
}

// Client turns task descriptions into raw plans via an LLM. A nil model
// puts the client in offline mode, serving deterministic mock plans.
type Client struct {
	model   llms.Model
	retries int
	timeout time.Duration
	backoff time.Duration
	info    AgentInfo
}

func NewClient(model llms.Model, retries int, timeout time.Duration) *Client {
	if retries <= 0 {
		retries = 3
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if model == nil {
		log.Println("planner: no model configured, serving mock plans")
	}
	return &Client{
		model:   model,
		retries: retries,
		timeout: timeout,
		backoff: 2 * time.Second,
		info:    DefaultAgentInfo(),
	}
}

// Info returns the agent identity block.
func (c *Client) Info() AgentInfo { return c.info }

// IsAgentInfoQuery reports whether the query asks about the agent itself.
func (c *Client) IsAgentInfoQuery(query string) bool {
	if query == "" {
		return false
	}
	lower := strings.ToLower(query)
	for _, p := range selfReferentialPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// GeneratePlan asks the model to break the task description into steps.
// On exhausted retries it returns a PlannerError; malformed model output
// never errors because the parse-repair ladder always yields a plan.
func (c *Client) GeneratePlan(ctx context.Context, description string) (task.RawPlan, error) {
	if c.model == nil {
		return MockPlan(description), nil
	}

	content, err := c.generate(ctx, c.taskPrompt(description))
	if err != nil {
		return task.RawPlan{}, &PlannerError{Attempts: c.retries, Err: err}
	}
	return ParsePlanResponse(content), nil
}

// GenerateAgentInfo produces an info-only plan answering a query about
// the agent. It never fails: when the model is unreachable the canned
// identity block is served instead.
func (c *Client) GenerateAgentInfo(ctx context.Context, query string) (task.RawPlan, error) {
	if c.model == nil {
		return AgentInfoFallback(c.info), nil
	}

	content, err := c.generate(ctx, c.agentInfoPrompt(query))
	if err != nil {
		log.Printf("planner: agent info request failed, using canned identity: %v", err)
		return AgentInfoFallback(c.info), nil
	}
	return FormatAgentInfo(content), nil
}

// GenerateText runs a free-form prompt through the model and returns the
// raw completion. Used for code generation and analysis.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c.model == nil {
		return "", fmt.Errorf("no planning model configured")
	}
	return c.generate(ctx, prompt)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.model.GenerateContent(attemptCtx, messages,
			llms.WithTemperature(0.2),
			llms.WithMaxTokens(4000),
		)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				err = fmt.Errorf("unexpected response format: no choices")
			} else {
				return resp.Choices[0].Content, nil
			}
		}

		lastErr = err
		log.Printf("planner: request attempt %d/%d failed: %v", attempt, c.retries, err)

		if attempt < c.retries {
			wait := time.Duration(attempt) * c.backoff
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return "", lastErr
}
