package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Vision captures the desktop and reads text from it. Screenshot capture
// shells out to ffmpeg with a scrot fallback; OCR uses the tesseract CLI.
type Vision struct {
	Dir string
}

func NewVision(dir string) *Vision {
	if dir == "" {
		dir = "screenshots"
	}
	return &Vision{Dir: dir}
}

// CaptureDesktop grabs the current screen into a timestamped PNG and
// returns the absolute path.
func (v *Vision) CaptureDesktop(ctx context.Context) (string, error) {
	if err := os.MkdirAll(v.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}
	path := filepath.Join(v.Dir, fmt.Sprintf("desktop_%d.png", time.Now().Unix()))

	cmd := exec.CommandContext(ctx, "ffmpeg", "-f", "x11grab", "-i", ":0.0", "-frames:v", "1", path, "-y")
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Fallback to scrot in case ffmpeg is missing
		cmd = exec.CommandContext(ctx, "scrot", path)
		output, err = cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("failed to capture desktop: %v: %s", err, string(output))
		}
	}

	abs, _ := filepath.Abs(path)
	return abs, nil
}

// RecognizeText runs OCR over an image file.
func (v *Vision) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout")
	output, err := cmd.Output()
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return "", fmt.Errorf("tesseract is not installed")
		}
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return string(output), nil
}

// VerifyWebPage checks whether the named website is visible on screen by
// capturing the desktop and scanning the OCR output for the name.
func (v *Vision) VerifyWebPage(ctx context.Context, websiteName string) Result {
	path, err := v.CaptureDesktop(ctx)
	if err != nil {
		return Fail("Failed to capture screen for verification: %v", err)
	}

	text, err := v.RecognizeText(ctx, path)
	if err != nil {
		return Fail("Failed to perform OCR on screenshot: %v", err)
	}

	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(websiteName))
	if pattern.MatchString(text) {
		return OK(map[string]any{
			"message":    fmt.Sprintf("Website %s verified", websiteName),
			"screenshot": path,
		})
	}

	// OCR mangles short brand names; accept a generic search page for Google.
	if lower := strings.ToLower(websiteName); lower == "google" || lower == "google.com" {
		if regexp.MustCompile(`(?i)(google|search)`).MatchString(text) {
			return OK(map[string]any{
				"message":    "Google website verified",
				"screenshot": path,
			})
		}
	}

	return Result{
		Success: false,
		Error:   fmt.Sprintf("Could not verify %s website", websiteName),
		Fields: map[string]any{
			"screenshot":      path,
			"recognized_text": text,
		},
	}
}
