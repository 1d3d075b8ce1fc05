package engine

import "testing"

func TestMatchIntentBrowserSearch(t *testing.T) {
	intent, ok := MatchIntent("search for rust programming in chrome")
	if !ok {
		t.Fatal("expected a browser-search intent")
	}
	if intent.Rule != "browser-search" {
		t.Fatalf("rule = %q, want browser-search", intent.Rule)
	}
	if got := intent.Context["search_term"]; got != "rust programming" {
		t.Fatalf("search_term = %v, want rust programming", got)
	}
	if got := intent.Context["browser_name"]; got != "chrome" {
		t.Fatalf("browser_name = %v, want chrome", got)
	}
	if len(intent.Plan.Steps) != 2 {
		t.Fatalf("got %d steps, want launch + search", len(intent.Plan.Steps))
	}
	search := intent.Plan.Steps[1].Actions[0]
	if search.Name != "interactWithBrowser" || search.Params["searchText"] != "rust programming" {
		t.Fatalf("search action = %+v", search)
	}
}

func TestMatchIntentBrowserVariants(t *testing.T) {
	cases := []struct {
		desc    string
		browser string
	}{
		{"search for cats in firefox", "firefox"},
		{"search for cats in edge", "msedge"},
		{"search for cats in the browser", "chrome"},
	}
	for _, tc := range cases {
		intent, ok := MatchIntent(tc.desc)
		if !ok {
			t.Fatalf("%q: no intent", tc.desc)
		}
		if got := intent.Context["browser_name"]; got != tc.browser {
			t.Errorf("%q: browser = %v, want %s", tc.desc, got, tc.browser)
		}
	}
}

func TestMatchIntentKnownSite(t *testing.T) {
	intent, ok := MatchIntent("open the bookmyshow website")
	if !ok {
		t.Fatal("expected a web-navigation intent")
	}
	if intent.Rule != "web-navigation" {
		t.Fatalf("rule = %q, want web-navigation", intent.Rule)
	}
	if got := intent.Context["url"]; got != "https://in.bookmyshow.com/" {
		t.Fatalf("url = %v", got)
	}
	verify := intent.Plan.Steps[1]
	if verify.Type != "code" || verify.Actions[0].Name != "verifyWebPage" {
		t.Fatalf("verification step = %+v", verify)
	}
}

func TestMatchIntentGuessedSiteURL(t *testing.T) {
	intent, ok := MatchIntent("navigate to the wiki books website")
	if !ok {
		t.Fatal("expected a web-navigation intent")
	}
	if got := intent.Context["url"]; got != "https://www.wikibooks.com" {
		t.Fatalf("url = %v, want https://www.wikibooks.com", got)
	}
}

func TestMatchIntentNoMatch(t *testing.T) {
	if _, ok := MatchIntent("calculate 3 plus 4"); ok {
		t.Fatal("arithmetic task should not match an intent rule")
	}
}

func TestFallbackSearchBeatsFileOperation(t *testing.T) {
	intent := GenerateFallback("search for the config file in chrome")
	if intent.Rule != "browser-search" {
		t.Fatalf("rule = %q, want browser-search to win over file-operation", intent.Rule)
	}
	if got := intent.Context["search_term"]; got != "the config file" {
		t.Fatalf("search_term = %v", got)
	}
}

func TestFallbackSearchDefaultTerm(t *testing.T) {
	intent := GenerateFallback("find something useful in chrome")
	if intent.Rule != "browser-search" {
		t.Fatalf("rule = %q", intent.Rule)
	}
	if got := intent.Context["search_term"]; got != "python" {
		t.Fatalf("search_term = %v, want the python default", got)
	}
}

func TestFallbackFileOperation(t *testing.T) {
	intent := GenerateFallback("delete the temp folder")
	if intent.Rule != "file-operation" {
		t.Fatalf("rule = %q, want file-operation", intent.Rule)
	}
	if len(intent.Plan.Challenges) == 0 {
		t.Fatal("fallback plan should list challenges")
	}
}

func TestFallbackDefaultAlwaysProducesPlan(t *testing.T) {
	intent := GenerateFallback("do a little dance")
	if intent.Rule != "default" {
		t.Fatalf("rule = %q, want default", intent.Rule)
	}
	if len(intent.Plan.Steps) != 2 {
		t.Fatalf("got %d steps, want screenshot + wait", len(intent.Plan.Steps))
	}
}
