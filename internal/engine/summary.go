package engine

import (
	"fmt"

	"github.com/rahul/deskpilot/internal/task"
)

// Summarize renders the outcome of a run. Successful means every step
// was reached, not that each action succeeded. The result content is
// chosen by first-match precedence over the blackboard's derived keys;
// exactly one branch populates results and message.
func Summarize(taskDesc string, steps []task.Step, stepIndex int, bb *Blackboard) task.Summary {
	summary := task.Summary{
		Task:           taskDesc,
		Steps:          len(steps),
		StepsCompleted: stepIndex + 1,
		Successful:     stepIndex >= len(steps)-1,
		Results:        map[string]any{},
	}

	switch {
	case bb.Has("calculation_result"):
		result, _ := bb.Get("calculation_result")
		operation, _ := bb.Get("calculation_operation")
		summary.Results["calculation"] = map[string]any{
			"operation": operation,
			"result":    result,
		}
		summary.Message = fmt.Sprintf("Task completed. The answer is %v.", result)

	case bb.Has("web_results"):
		web, _ := bb.Get("web_results")
		summary.Results["web"] = web
		summary.Message = "Web task completed successfully."

	case bb.Has("file_results"):
		files, _ := bb.Get("file_results")
		summary.Results["files"] = files
		summary.Message = "File operations completed successfully."

	case bb.GetString("search_term") != "":
		browser := bb.GetString("browser_name")
		if browser == "" {
			browser = "chrome"
		}
		summary.Results["search"] = map[string]any{
			"term":    bb.GetString("search_term"),
			"browser": browser,
		}
		summary.Message = fmt.Sprintf("Browser search for '%s' completed successfully.", bb.GetString("search_term"))

	default:
		summary.Message = "Task completed successfully."
	}

	return summary
}
