package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rahul/deskpilot/internal/task"
)

// Intent holds a heuristically generated plan plus the derived context
// keys the plan's steps and the final summary rely on.
type Intent struct {
	Rule    string
	Plan    task.Plan
	Context map[string]any
}

// intentRule pairs a predicate with a plan builder. Rules live in
// ordered tables so precedence is data, not control flow.
type intentRule struct {
	name  string
	match func(lower string) bool
	build func(desc, lower string) Intent
}

var (
	searchTermRe = regexp.MustCompile(`search\s+(?:for\s+)?([a-z0-9\s]+?)(?:\s+(?:in|with|using)\b|$)`)
	websiteRe    = regexp.MustCompile(`(?i)(?:navigate|open)\s+(?:to\s+)?(?:the\s+)?([a-zA-Z0-9\s]+?)\s+(?:official\s+)?(?:website|site|page)`)
)

// knownSites maps site keywords to their real URLs; anything else gets
// a best-guess www.<name>.com.
var knownSites = map[string]struct {
	Name string
	URL  string
}{
	"bookmyshow": {"BookMyShow", "https://in.bookmyshow.com/"},
}

func containsAnyOf(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// extractSearchTerm pulls the search phrase out of a description,
// stopping before a trailing "in/with/using <browser>" clause.
func extractSearchTerm(lower string) string {
	if m := searchTermRe.FindStringSubmatch(lower); m != nil {
		if term := strings.TrimSpace(m[1]); term != "" {
			return term
		}
	}
	return "python"
}

func extractBrowser(lower string) string {
	switch {
	case strings.Contains(lower, "firefox"):
		return "firefox"
	case strings.Contains(lower, "edge"):
		return "msedge"
	default:
		return "chrome"
	}
}

// intentRules are evaluated before the planner is consulted. The
// agent-info intent is detected earlier still, by the planner client,
// so it never reaches this table.
var intentRules = []intentRule{
	{
		name: "browser-search",
		match: func(lower string) bool {
			return containsAnyOf(lower, "search", "google", "browse") &&
				containsAnyOf(lower, "chrome", "browser", "firefox", "edge")
		},
		build: buildBrowserSearch,
	},
	{
		name: "web-navigation",
		match: func(lower string) bool {
			return containsAnyOf(lower, "navigate", "open", "website")
		},
		build: buildWebNavigation,
	},
}

// MatchIntent checks the description against the pre-planner rule table
// and returns the first matching intent. A rule may decline after
// matching (web navigation with no resolvable site), in which case later
// rules are tried and ultimately the planner takes over.
func MatchIntent(description string) (Intent, bool) {
	lower := strings.ToLower(description)
	for _, rule := range intentRules {
		if !rule.match(lower) {
			continue
		}
		intent := rule.build(description, lower)
		if len(intent.Plan.Steps) > 0 {
			intent.Rule = rule.name
			return intent, true
		}
	}
	return Intent{}, false
}

func buildBrowserSearch(_, lower string) Intent {
	term := extractSearchTerm(lower)
	browser := extractBrowser(lower)

	plan := task.Plan{
		Analysis: fmt.Sprintf("This task requires searching for '%s' in the %s browser.", term, browser),
		Steps: []task.Step{
			{
				ID:          1,
				Name:        "Launch Browser",
				Description: fmt.Sprintf("Open %s browser", browser),
				Type:        task.TypeSystem,
				Actions: []task.Action{
					{Name: "launch", Params: map[string]any{"path": browser}},
				},
			},
			{
				ID:          2,
				Name:        "Perform Search",
				Description: fmt.Sprintf("Search for '%s' in %s", term, browser),
				Type:        task.TypeSystem,
				Actions: []task.Action{
					{Name: "interactWithBrowser", Params: map[string]any{
						"action":     "search",
						"searchText": term,
					}},
				},
			},
		},
		Challenges: []string{"Browser interaction", "Text input"},
	}

	return Intent{Plan: plan, Context: map[string]any{
		"search_term":  term,
		"browser_name": browser,
	}}
}

func buildWebNavigation(desc, lower string) Intent {
	var siteName, siteURL string
	for keyword, site := range knownSites {
		if strings.Contains(lower, keyword) {
			siteName, siteURL = site.Name, site.URL
			break
		}
	}
	if siteName == "" {
		if m := websiteRe.FindStringSubmatch(desc); m != nil {
			siteName = strings.TrimSpace(m[1])
			siteURL = fmt.Sprintf("https://www.%s.com", strings.ReplaceAll(strings.ToLower(siteName), " ", ""))
		}
	}
	if siteName == "" {
		return Intent{}
	}

	browser := extractBrowser(lower)
	plan := task.Plan{
		Analysis: fmt.Sprintf("This task requires opening %s and navigating to the %s website.", browser, siteName),
		Steps: []task.Step{
			{
				ID:          1,
				Name:        "Launch Web Browser",
				Description: fmt.Sprintf("Open %s", browser),
				Type:        task.TypeSystem,
				Actions: []task.Action{
					{Name: "launch", Params: map[string]any{
						"path": browser,
						"args": []any{siteURL},
					}},
				},
			},
			{
				ID:          2,
				Name:        "Verify Navigation",
				Description: fmt.Sprintf("Verify navigation to %s website", siteName),
				Type:        task.TypeCode,
				Actions: []task.Action{
					{Name: "verifyWebPage", Params: map[string]any{"websiteName": siteName}},
				},
			},
		},
		Challenges: []string{"Web navigation", "URL handling"},
	}

	return Intent{Plan: plan, Context: map[string]any{
		"website_name": siteName,
		"url":          siteURL,
		"browser_name": browser,
	}}
}

// fallbackRules are evaluated after the planner has failed. They always
// produce a plan; the last rule matches everything.
var fallbackRules = []intentRule{
	{
		name: "browser-search",
		match: func(lower string) bool {
			return containsAnyOf(lower, "search", "google", "find") &&
				containsAnyOf(lower, "chrome", "browser", "firefox")
		},
		build: func(desc, lower string) Intent {
			term := extractSearchTerm(lower)
			plan := task.Plan{
				Analysis: fmt.Sprintf("This task requires searching for '%s' in the browser.", term),
				Steps: []task.Step{
					{
						ID:          1,
						Name:        "Launch Browser",
						Description: "Open Chrome browser",
						Type:        task.TypeSystem,
						Actions: []task.Action{
							{Name: "launch", Params: map[string]any{"path": "chrome"}},
						},
					},
					{
						ID:          2,
						Name:        "Perform Search",
						Description: fmt.Sprintf("Search for '%s'", term),
						Type:        task.TypeSystem,
						Actions: []task.Action{
							{Name: "interactWithBrowser", Params: map[string]any{
								"action":     "search",
								"searchText": term,
							}},
						},
					},
				},
				Challenges: []string{"Browser interaction", "API unavailability"},
			}
			return Intent{Plan: plan, Context: map[string]any{
				"search_term":  term,
				"browser_name": "chrome",
			}}
		},
	},
	{
		name: "website-download",
		match: func(lower string) bool {
			return containsAnyOf(lower, "website", "download", "open")
		},
		build: func(desc, lower string) Intent {
			plan := twoStepPlan(
				fmt.Sprintf("This task involves website navigation and download: %s", desc),
				screenshotStep(1),
				task.Step{
					ID:          2,
					Name:        "Find Download Link",
					Description: "Look for download links in the current page",
					Type:        task.TypeSystem,
					Actions: []task.Action{
						{Name: "wait", Params: map[string]any{"time": 2000}},
					},
				},
				"Website navigation", "Download identification", "API unavailability",
			)
			return Intent{Plan: plan}
		},
	},
	{
		name: "file-operation",
		match: func(lower string) bool {
			return containsAnyOf(lower, "file", "folder", "directory", "create", "delete", "list")
		},
		build: func(desc, lower string) Intent {
			plan := twoStepPlan(
				fmt.Sprintf("This task involves file operations: %s", desc),
				screenshotStep(1),
				task.Step{
					ID:          2,
					Name:        "Execute File Operation",
					Description: fmt.Sprintf("Perform file operation: %s", desc),
					Type:        task.TypeSystem,
					Actions: []task.Action{
						{Name: "execute", Params: map[string]any{
							"command": `echo "Executing file operation..."`,
						}},
					},
				},
				"Understanding file operation intent", "API unavailability",
			)
			return Intent{Plan: plan}
		},
	},
	{
		name:  "default",
		match: func(string) bool { return true },
		build: func(desc, lower string) Intent {
			plan := twoStepPlan(
				fmt.Sprintf("This task requires performing actions related to: %s", desc),
				screenshotStep(1),
				task.Step{
					ID:          2,
					Name:        "Wait for System",
					Description: "Wait for system to stabilize",
					Type:        task.TypeSystem,
					Actions: []task.Action{
						{Name: "wait", Params: map[string]any{"time": 2000}},
					},
				},
				"Understanding task intent", "API unavailability",
			)
			return Intent{Plan: plan}
		},
	},
}

// GenerateFallback builds a plan from keyword heuristics when the
// planner is unreachable or its output is beyond repair. It never fails;
// the final table entry matches any description.
func GenerateFallback(description string) Intent {
	lower := strings.ToLower(description)
	for _, rule := range fallbackRules {
		if rule.match(lower) {
			intent := rule.build(description, lower)
			intent.Rule = rule.name
			return intent
		}
	}
	// unreachable: the default rule always matches
	return Intent{}
}

func twoStepPlan(analysis string, first, second task.Step, challenges ...string) task.Plan {
	return task.Plan{
		Analysis:   analysis,
		Steps:      []task.Step{first, second},
		Challenges: challenges,
	}
}

func screenshotStep(id int) task.Step {
	return task.Step{
		ID:          id,
		Name:        "Take Screenshot",
		Description: "Take screenshot to assess current state",
		Type:        task.TypeSystem,
		Actions: []task.Action{
			{Name: "screenshot", Params: map[string]any{
				"filename": fmt.Sprintf("screenshot_%d.png", time.Now().Unix()),
			}},
		},
	}
}
