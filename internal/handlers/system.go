package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rahul/deskpilot/internal/governance"
	"github.com/rahul/deskpilot/internal/task"
)

// SystemHandler executes OS-level actions: commands, application
// launches, and GUI input simulation via xdotool. Every command string
// passes the policy engine before it runs.
type SystemHandler struct {
	Policy governance.PolicyEngine
	Vision *Vision
}

func NewSystemHandler(policy governance.PolicyEngine, vision *Vision) *SystemHandler {
	return &SystemHandler{Policy: policy, Vision: vision}
}

func (s *SystemHandler) Domain() string { return task.TypeSystem }

func (s *SystemHandler) Execute(ctx context.Context, action string, params map[string]any) (Result, error) {
	switch action {
	case "execute", "execute_system_command", "execute system command":
		return s.executeCommand(ctx, Str(params, "command"))
	case "launch":
		return s.launch(ctx, Str(params, "path"), StrSlice(params, "args"))
	case "getInfo":
		return s.systemInfo(), nil
	case "getProcesses":
		return s.processes(ctx)
	case "simulate_input", "type", "typetext", "type_text":
		return s.xdotool(ctx, "type", Str(params, "text", "input_sequence"))
	case "press_key", "presskey":
		key := Str(params, "key")
		if key == "" {
			return Fail("key is required"), nil
		}
		return s.xdotool(ctx, "key", key)
	case "press_keys", "presskeys":
		keys := StrSlice(params, "keys")
		if len(keys) == 0 {
			return Fail("keys are required"), nil
		}
		return s.xdotool(ctx, "key", strings.Join(keys, "+"))
	case "mouse_move", "mousemove":
		x, _ := Num(params, "x")
		y, _ := Num(params, "y")
		return s.xdotool(ctx, "mousemove", strconv.Itoa(int(x)), strconv.Itoa(int(y)))
	case "mouse_click", "mouseclick", "click":
		return s.click(ctx, params)
	case "scroll":
		return s.scroll(ctx, params)
	case "wait":
		return s.wait(ctx, params)
	case "screenshot", "desktop_screenshot":
		return s.screenshot(ctx)
	case "interactWithBrowser":
		return s.interactWithBrowser(ctx, Str(params, "action"), params)
	default:
		return Result{}, &UnsupportedActionError{Domain: s.Domain(), Action: action}
	}
}

func (s *SystemHandler) executeCommand(ctx context.Context, command string) (Result, error) {
	if command == "" {
		return Fail("empty command"), nil
	}

	if s.Policy != nil {
		verdict, err := s.Policy.Evaluate(ctx, governance.Request{
			Domain:    s.Domain(),
			Action:    "execute",
			Arguments: command,
		})
		if err != nil {
			return Fail("policy evaluation failed: %v", err), nil
		}
		if verdict.Effect == governance.EffectDeny {
			return Fail("command blocked: %s", verdict.Reason), nil
		}
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	output, err := cmd.CombinedOutput()
	result := strings.TrimSpace(string(output))
	if result == "" {
		result = "(no output)"
	}

	if err != nil {
		return Result{
			Success: false,
			Error:   fmt.Sprintf("command failed: %v", err),
			Fields:  map[string]any{"command": command, "output": result},
		}, nil
	}
	return OK(map[string]any{
		"command": command,
		"output":  result,
	}), nil
}

// launch starts an application detached; it does not wait for exit.
func (s *SystemHandler) launch(ctx context.Context, path string, args []string) (Result, error) {
	if path == "" {
		return Fail("path is required"), nil
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		return Fail("failed to launch %s: %v", path, err), nil
	}
	go cmd.Wait() // reap the child

	return OK(map[string]any{
		"application": path,
		"pid":         cmd.Process.Pid,
	}), nil
}

func (s *SystemHandler) systemInfo() Result {
	hostname, _ := os.Hostname()
	return OK(map[string]any{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"cpus":     runtime.NumCPU(),
		"hostname": hostname,
	})
}

func (s *SystemHandler) processes(ctx context.Context) (Result, error) {
	cmd := exec.CommandContext(ctx, "ps", "-eo", "pid,comm", "--no-headers")
	output, err := cmd.Output()
	if err != nil {
		return Fail("failed to list processes: %v", err), nil
	}

	var procs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, map[string]any{"pid": pid, "name": fields[1]})
	}
	return OK(map[string]any{"processes": procs, "count": len(procs)}), nil
}

func (s *SystemHandler) click(ctx context.Context, params map[string]any) (Result, error) {
	if x, okX := Num(params, "x"); okX {
		if y, okY := Num(params, "y"); okY {
			if res, err := s.xdotool(ctx, "mousemove", strconv.Itoa(int(x)), strconv.Itoa(int(y))); err != nil || !res.Success {
				return res, err
			}
		}
	}

	button := "1"
	switch Str(params, "button") {
	case "middle", "2":
		button = "2"
	case "right", "3":
		button = "3"
	}
	return s.xdotool(ctx, "click", button)
}

func (s *SystemHandler) scroll(ctx context.Context, params map[string]any) (Result, error) {
	// xdotool maps wheel up/down to buttons 4/5
	button := "5"
	if Str(params, "direction") == "up" {
		button = "4"
	}
	amount := 3
	if n, ok := Num(params, "amount"); ok && n > 0 {
		amount = int(n)
	}
	return s.xdotool(ctx, "click", "--repeat", strconv.Itoa(amount), button)
}

// wait suspends for the requested number of milliseconds, bounded only by
// the caller's context.
func (s *SystemHandler) wait(ctx context.Context, params map[string]any) (Result, error) {
	ms := 1000.0
	if n, ok := Num(params, "time"); ok {
		ms = n
	}

	select {
	case <-ctx.Done():
		return Fail("wait interrupted: %v", ctx.Err()), nil
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
	return OK(map[string]any{"action": "wait", "time": ms}), nil
}

func (s *SystemHandler) screenshot(ctx context.Context) (Result, error) {
	if s.Vision == nil {
		return Fail("screenshot capture unavailable"), nil
	}
	path, err := s.Vision.CaptureDesktop(ctx)
	if err != nil {
		return Fail("%v", err), nil
	}
	return OK(map[string]any{
		"path":    path,
		"message": fmt.Sprintf("Desktop screenshot saved to %s", path),
	}), nil
}

// interactWithBrowser drives the focused browser window through the
// keyboard: focus the address bar, type, hit Return.
func (s *SystemHandler) interactWithBrowser(ctx context.Context, browserAction string, params map[string]any) (Result, error) {
	switch browserAction {
	case "search":
		text := Str(params, "searchText", "query")
		if text == "" {
			return Fail("searchText is required for browser search"), nil
		}
		if res, err := s.typeIntoAddressBar(ctx, text); err != nil || !res.Success {
			return res, err
		}
		return OK(map[string]any{"action": "search", "searchText": text}), nil
	case "navigate":
		url := Str(params, "url")
		if url == "" {
			return Fail("url is required for browser navigation"), nil
		}
		if res, err := s.typeIntoAddressBar(ctx, url); err != nil || !res.Success {
			return res, err
		}
		return OK(map[string]any{"action": "navigate", "url": url}), nil
	default:
		return Fail("unsupported browser interaction: %s", browserAction), nil
	}
}

func (s *SystemHandler) typeIntoAddressBar(ctx context.Context, text string) (Result, error) {
	for _, step := range [][]string{
		{"key", "ctrl+l"},
		{"type", text},
		{"key", "Return"},
	} {
		if res, err := s.xdotool(ctx, step...); err != nil || !res.Success {
			return res, err
		}
	}
	return OK(nil), nil
}

func (s *SystemHandler) xdotool(ctx context.Context, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, "xdotool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return Fail("xdotool is not installed; install it with 'sudo apt-get install xdotool'"), nil
		}
		return Fail("xdotool failed: %v: %s", err, string(output)), nil
	}
	return OK(map[string]any{"action": args[0]}), nil
}
