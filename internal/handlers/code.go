package handlers

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rahul/deskpilot/internal/task"
)

// TextGenerator produces free-form text from a prompt. The planner
// client satisfies this.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// langSpec ties a language name to its file extension and runner.
type langSpec struct {
	ext    string
	runner []string
}

var languages = map[string]langSpec{
	"python":     {".py", []string{"python3"}},
	"javascript": {".js", []string{"node"}},
	"go":         {".go", []string{"go", "run"}},
	"bash":       {".sh", []string{"bash"}},
	"shell":      {".sh", []string{"bash"}},
}

// CodeHandler generates, runs, and analyzes code, and drives small
// desktop automations that report computed results.
type CodeHandler struct {
	Gen    TextGenerator
	Dir    string
	Vision *Vision
}

func NewCodeHandler(gen TextGenerator, dir string, vision *Vision) *CodeHandler {
	if dir == "" {
		dir = "generated"
	}
	return &CodeHandler{Gen: gen, Dir: dir, Vision: vision}
}

func (c *CodeHandler) Domain() string { return task.TypeCode }

func (c *CodeHandler) Execute(ctx context.Context, action string, params map[string]any) (Result, error) {
	switch action {
	case "generate", "generate_code", "generateCode":
		return c.generate(ctx, params)
	case "execute", "execute_code", "executeCode", "run":
		return c.run(ctx, params)
	case "analyze", "analyze_code", "analyzeCode":
		return c.analyze(ctx, params)
	case "detectIDEs", "detect_ides":
		return c.detectIDEs(), nil
	case "automateCalculator", "automate_calculator":
		return c.automateCalculator(ctx, params)
	case "verifyWebPage", "verify_web_page":
		return c.verifyWebPage(ctx, params)
	default:
		return Result{}, &UnsupportedActionError{Domain: c.Domain(), Action: action}
	}
}

func (c *CodeHandler) generate(ctx context.Context, params map[string]any) (Result, error) {
	if c.Gen == nil {
		return Fail("code generation requires a language model"), nil
	}
	description := Str(params, "description", "prompt")
	if description == "" {
		return Fail("description is required"), nil
	}
	lang := strings.ToLower(Str(params, "language"))
	if lang == "" {
		lang = "python"
	}
	spec, ok := languages[lang]
	if !ok {
		return Fail("unsupported language: %s", lang), nil
	}

	prompt := fmt.Sprintf(
		"Write a complete, runnable %s program that does the following:\n%s\n\nRespond with the code only, no explanations.",
		lang, description)
	raw, err := c.Gen.GenerateText(ctx, prompt)
	if err != nil {
		return Fail("code generation failed: %v", err), nil
	}
	code := stripCodeFences(raw)

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return Fail("cannot create output dir: %v", err), nil
	}
	name := fmt.Sprintf("%s_%d%s", lang, time.Now().Unix(), spec.ext)
	path := filepath.Join(c.Dir, name)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return Fail("cannot save generated code: %v", err), nil
	}

	return OK(map[string]any{
		"language": lang,
		"path":     path,
		"code":     code,
	}), nil
}

// stripCodeFences removes surrounding markdown code fences, keeping
// only the code between them. Plain text passes through unchanged.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	start := strings.Index(s, "```")
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// drop the language tag line
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func (c *CodeHandler) run(ctx context.Context, params map[string]any) (Result, error) {
	path := Str(params, "path", "file")
	code := Str(params, "code")

	if path == "" && code == "" {
		return Fail("path or code is required"), nil
	}

	lang := strings.ToLower(Str(params, "language"))
	if lang == "" && path != "" {
		lang = languageForExt(filepath.Ext(path))
	}
	spec, ok := languages[lang]
	if !ok {
		return Fail("cannot determine how to run language %q", lang), nil
	}

	if path == "" {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return Fail("cannot create output dir: %v", err), nil
		}
		path = filepath.Join(c.Dir, fmt.Sprintf("snippet_%d%s", time.Now().Unix(), spec.ext))
		if err := os.WriteFile(path, []byte(code), 0644); err != nil {
			return Fail("cannot write snippet: %v", err), nil
		}
	}

	args := append(append([]string{}, spec.runner[1:]...), path)
	cmd := exec.CommandContext(ctx, spec.runner[0], args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return Fail("failed to run %s: %v", path, runErr), nil
	}

	return Result{
		Success: exitCode == 0,
		Fields: map[string]any{
			"path":       path,
			"stdout":     stdout.String(),
			"stderr":     stderr.String(),
			"returncode": exitCode,
		},
	}, nil
}

func languageForExt(ext string) string {
	for name, spec := range languages {
		if spec.ext == ext {
			return name
		}
	}
	return ""
}

func (c *CodeHandler) analyze(ctx context.Context, params map[string]any) (Result, error) {
	if c.Gen == nil {
		return Fail("code analysis requires a language model"), nil
	}
	code := Str(params, "code")
	if code == "" {
		path := Str(params, "path", "file")
		if path == "" {
			return Fail("code or path is required"), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Fail("cannot read %s: %v", path, err), nil
		}
		code = string(data)
	}

	prompt := fmt.Sprintf(
		"Review the following code. Point out bugs, risky patterns, and improvements. Be concise.\n\n%s",
		code)
	analysis, err := c.Gen.GenerateText(ctx, prompt)
	if err != nil {
		return Fail("analysis failed: %v", err), nil
	}
	return OK(map[string]any{"analysis": analysis}), nil
}

func (c *CodeHandler) detectIDEs() Result {
	candidates := []string{"code", "codium", "idea", "goland", "pycharm", "vim", "nvim", "emacs", "nano"}
	var found []string
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err == nil {
			found = append(found, name)
		}
	}
	return OK(map[string]any{
		"editors": found,
		"count":   len(found),
	})
}

// automateCalculator performs the arithmetic itself and, when a
// desktop calculator is available, mirrors the keystrokes into it so
// the user can watch. The computed result is authoritative either way.
func (c *CodeHandler) automateCalculator(ctx context.Context, params map[string]any) (Result, error) {
	num1, ok1 := Num(params, "num1")
	num2, ok2 := Num(params, "num2")
	op := Str(params, "operation", "op")
	if !ok1 || !ok2 || op == "" {
		return Fail("num1, num2 and operation are required"), nil
	}

	var result any
	switch op {
	case "+", "add":
		op = "+"
		result = num1 + num2
	case "-", "subtract":
		op = "-"
		result = num1 - num2
	case "*", "x", "multiply":
		op = "*"
		result = num1 * num2
	case "/", "divide":
		op = "/"
		if num2 == 0 {
			result = "Division by zero error"
		} else {
			result = num1 / num2
		}
	default:
		return Fail("unsupported operation: %s", op), nil
	}

	c.mirrorIntoCalculator(ctx, num1, num2, op)

	display := fmt.Sprintf("%v", result)
	if f, ok := result.(float64); ok {
		display = formatNumber(f)
		result = normalizeNumber(f)
	}

	return OK(map[string]any{
		"operation": fmt.Sprintf("%s %s %s", formatNumber(num1), op, formatNumber(num2)),
		"result":    result,
		"message":   fmt.Sprintf("Task completed. The answer is %s.", display),
	}), nil
}

// mirrorIntoCalculator is best effort visual feedback; failures are
// ignored because the arithmetic already happened in-process.
func (c *CodeHandler) mirrorIntoCalculator(ctx context.Context, num1, num2 float64, op string) {
	if os.Getenv("DISPLAY") == "" {
		return
	}
	if _, err := exec.LookPath("xdotool"); err != nil {
		return
	}
	expr := formatNumber(num1) + op + formatNumber(num2)
	for _, calc := range []string{"gnome-calculator", "kcalc", "xcalc"} {
		if _, err := exec.LookPath(calc); err != nil {
			continue
		}
		cmd := exec.CommandContext(ctx, calc)
		if err := cmd.Start(); err != nil {
			return
		}
		go cmd.Wait()
		time.Sleep(1500 * time.Millisecond)
		exec.CommandContext(ctx, "xdotool", "type", expr).Run()
		exec.CommandContext(ctx, "xdotool", "key", "Return").Run()
		return
	}
}

// formatNumber renders whole floats without a trailing .0.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normalizeNumber returns an int for whole values so downstream JSON
// carries 7 instead of 7.0.
func normalizeNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int(f)
	}
	return f
}

func (c *CodeHandler) verifyWebPage(ctx context.Context, params map[string]any) (Result, error) {
	if c.Vision == nil {
		return Fail("page verification requires screen capture"), nil
	}
	expected := Str(params, "websiteName", "expected_text", "text")
	if expected == "" {
		return Fail("websiteName or expected_text is required"), nil
	}
	return c.Vision.VerifyWebPage(ctx, expected), nil
}
