package handlers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"github.com/rahul/deskpilot/internal/task"
)

// WebHandler drives a single shared Chrome session. The browser stays
// open across actions until closeBrowser runs or the handler is closed.
type WebHandler struct {
	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc

	ScreenshotDir string
	UserAgent     string
	Headless      bool
}

func NewWebHandler(screenshotDir string) *WebHandler {
	if screenshotDir == "" {
		screenshotDir = "screenshots"
	}
	return &WebHandler{
		ScreenshotDir: screenshotDir,
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
}

func (w *WebHandler) Domain() string { return task.TypeWeb }

func (w *WebHandler) Execute(ctx context.Context, action string, params map[string]any) (Result, error) {
	switch action {
	case "startBrowser", "start_browser", "launch_browser":
		if err := w.initBrowser(); err != nil {
			return Fail("failed to start browser: %v", err), nil
		}
		return OK(map[string]any{"message": "Browser started"}), nil
	case "navigate", "navigateToWebsite", "open_url":
		return w.navigate(ctx, Str(params, "url", "website"))
	case "interact", "interactWithPage":
		return w.interact(ctx, params)
	case "extract", "extractContent", "extract_content":
		return w.extract(ctx, params)
	case "search", "webSearch", "web_search":
		return w.search(ctx, Str(params, "query", "searchText"))
	case "screenshot":
		return w.screenshot(ctx)
	case "closeBrowser", "close_browser", "close":
		w.mu.Lock()
		w.cleanup()
		w.mu.Unlock()
		return OK(map[string]any{"message": "Browser closed"}), nil
	default:
		return Result{}, &UnsupportedActionError{Domain: w.Domain(), Action: action}
	}
}

// Close releases the browser session. Safe to call more than once.
func (w *WebHandler) Close() {
	w.mu.Lock()
	w.cleanup()
	w.mu.Unlock()
}

func (w *WebHandler) initBrowser() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.browserCtx != nil {
		select {
		case <-w.browserCtx.Done():
			w.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", w.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.UserAgent(w.UserAgent),
	)

	w.allocCtx, w.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	w.browserCtx, w.browserCancel = chromedp.NewContext(w.allocCtx)

	return chromedp.Run(w.browserCtx)
}

func (w *WebHandler) cleanup() {
	if w.browserCancel != nil {
		w.browserCancel()
	}
	if w.allocCancel != nil {
		w.allocCancel()
	}
	w.browserCtx = nil
	w.allocCtx = nil
}

// actionContext returns a bounded chromedp context, starting the
// browser first if needed.
func (w *WebHandler) actionContext() (context.Context, context.CancelFunc, error) {
	if err := w.initBrowser(); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(w.browserCtx, 60*time.Second)
	return ctx, cancel, nil
}

func (w *WebHandler) navigate(ctx context.Context, target string) (Result, error) {
	if target == "" {
		return Fail("url is required"), nil
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	actionCtx, cancel, err := w.actionContext()
	if err != nil {
		return Fail("failed to start browser: %v", err), nil
	}
	defer cancel()

	var title string
	err = chromedp.Run(actionCtx,
		chromedp.Navigate(target),
		chromedp.Title(&title),
	)
	if err != nil {
		return Fail("navigation to %s failed: %v", target, err), nil
	}
	return OK(map[string]any{
		"url":     target,
		"title":   title,
		"message": fmt.Sprintf("Navigated to %s", target),
	}), nil
}

func (w *WebHandler) interact(ctx context.Context, params map[string]any) (Result, error) {
	selector := Str(params, "selector")
	interaction := Str(params, "interaction", "type")
	value := Str(params, "value", "text")

	if selector == "" {
		return Fail("selector is required"), nil
	}

	actionCtx, cancel, err := w.actionContext()
	if err != nil {
		return Fail("failed to start browser: %v", err), nil
	}
	defer cancel()

	switch interaction {
	case "click":
		err = chromedp.Run(actionCtx, chromedp.Click(selector, chromedp.ByQuery))
	case "type", "fill":
		if value == "" {
			return Fail("value is required to type"), nil
		}
		err = chromedp.Run(actionCtx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
	case "select":
		if value == "" {
			return Fail("value is required to select"), nil
		}
		err = chromedp.Run(actionCtx, chromedp.SetValue(selector, value, chromedp.ByQuery))
	case "getText", "get_text":
		var text string
		err = chromedp.Run(actionCtx, chromedp.Text(selector, &text, chromedp.ByQuery))
		if err == nil {
			return OK(map[string]any{"selector": selector, "text": text}), nil
		}
	default:
		return Fail("unsupported page interaction: %s", interaction), nil
	}

	if err != nil {
		return Fail("%s on %s failed: %v", interaction, selector, err), nil
	}
	return OK(map[string]any{"interaction": interaction, "selector": selector}), nil
}

// extract pulls content from the current page. With a selector it
// returns that element's text; without one it returns the page title,
// URL, and the readable main content.
func (w *WebHandler) extract(ctx context.Context, params map[string]any) (Result, error) {
	actionCtx, cancel, err := w.actionContext()
	if err != nil {
		return Fail("failed to start browser: %v", err), nil
	}
	defer cancel()

	if selector := Str(params, "selector"); selector != "" {
		var text string
		if err := chromedp.Run(actionCtx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
			return Fail("extract from %s failed: %v", selector, err), nil
		}
		return OK(map[string]any{"selector": selector, "content": text}), nil
	}

	var html, title, pageURL string
	err = chromedp.Run(actionCtx,
		chromedp.Title(&title),
		chromedp.Location(&pageURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return Fail("page extraction failed: %v", err), nil
	}

	content := readableText(html, pageURL)
	return OK(map[string]any{
		"title":   title,
		"url":     pageURL,
		"content": content,
	}), nil
}

// readableText runs readability over raw HTML and sanitizes the output.
// Falls back to the raw HTML, stripped of tags, when parsing fails.
func readableText(html, pageURL string) string {
	policy := bluemonday.StrictPolicy()

	parsed, err := url.Parse(pageURL)
	if err == nil {
		article, err := readability.FromReader(strings.NewReader(html), parsed)
		if err == nil {
			return truncate(policy.Sanitize(article.TextContent), 50000)
		}
	}
	return truncate(policy.Sanitize(html), 50000)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "\n... (content truncated) ..."
	}
	return s
}

func (w *WebHandler) search(ctx context.Context, query string) (Result, error) {
	if query == "" {
		return Fail("query is required"), nil
	}

	ddg, err := duckduckgo.New(10, w.UserAgent)
	if err != nil {
		return Fail("search client unavailable: %v", err), nil
	}

	results, err := ddg.Call(ctx, query)
	if err != nil {
		return Fail("search for %q failed: %v", query, err), nil
	}
	return OK(map[string]any{
		"query":   query,
		"results": results,
	}), nil
}

func (w *WebHandler) screenshot(ctx context.Context) (Result, error) {
	actionCtx, cancel, err := w.actionContext()
	if err != nil {
		return Fail("failed to start browser: %v", err), nil
	}
	defer cancel()

	var buf []byte
	if err := chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return Fail("screenshot failed: %v", err), nil
	}

	if err := os.MkdirAll(w.ScreenshotDir, 0755); err != nil {
		return Fail("cannot create screenshot dir: %v", err), nil
	}
	name := fmt.Sprintf("page_%d.png", time.Now().Unix())
	path := filepath.Join(w.ScreenshotDir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return Fail("cannot save screenshot: %v", err), nil
	}
	abs, _ := filepath.Abs(path)
	return OK(map[string]any{"path": abs, "message": fmt.Sprintf("Screenshot saved to %s", abs)}), nil
}
