package planner

import (
	"fmt"
	"strings"
)

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// taskPrompt picks the prompt template that matches the task's content.
func (c *Client) taskPrompt(description string) string {
	lower := strings.ToLower(description)
	if containsAny(lower, "browser", "chrome", "firefox") && containsAny(lower, "search", "navigate", "open") {
		return c.browserPrompt(description)
	}
	return c.structuredPrompt(description)
}

func (c *Client) agentInfoPrompt(query string) string {
	return fmt.Sprintf(`You are %s, an AI desktop automation agent.
When responding to this query, speak in first person as if you are the AI agent running on the user's computer.

The user is asking: %q

Respond conversationally as the AI desktop agent, using these facts about yourself:
- Your purpose: %s
- Your capabilities: %s
- Your limitations: %s

Your response should be helpful, conversational, and reflect your identity as a desktop automation tool.
Do not mention that you're using an API or that you're running on a language model.
Speak as if you are directly the AI agent software that's installed on their computer.`,
		c.info.Name, query, c.info.Purpose,
		strings.Join(c.info.Capabilities, ", "),
		strings.Join(c.info.Limitations, ", "))
}

func (c *Client) browserPrompt(query string) string {
	return fmt.Sprintf(`I need to help the user with this browser-related task:
%q

I am %s, a desktop automation tool that can control the browser.

Analyze this browser task and return a detailed JSON object with:
{
  "analysis": "Brief explanation of what this browser task requires",
  "steps": [
    {
      "description": "Clear step description",
      "action": "execute or interactWithBrowser",
      "params": {
        "command": "launch command" or
        "action": "search or navigate",
        "searchText": "text to search for",
        "url": "url to navigate to"
      }
    }
  ]
}

Be specific about extracting any search terms or URLs from the task.
Ensure the steps are concrete and executable with proper mouse/keyboard actions.`, query, c.info.Name)
}

func (c *Client) structuredPrompt(description string) string {
	return fmt.Sprintf(`I need to break down this desktop automation task into vision-based steps:
%q

I am %s, a desktop automation tool that can analyze screen content and perform actions.

Analyze this task and return a JSON object with the following structure:
{
  "analysis": "Brief analysis of what needs to be done",
  "steps": [
    {
      "description": "Clear description of the step",
      "action": "One of: click, type, screenshot, wait, press, scroll, dragdrop",
      "target": {"x": 100, "y": 200} or null depending on the action,
      "text": "Text to type if action is type",
      "time": 1000 if action is wait (milliseconds)
    }
  ]
}

Make sure each step is atomic and has exactly one clear action. All JSON fields must be properly formatted with no trailing commas.`, description, c.info.Name)
}
