package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/term"

	"github.com/rahul/deskpilot/internal/engine"
	"github.com/rahul/deskpilot/internal/governance"
	"github.com/rahul/deskpilot/internal/handlers"
	"github.com/rahul/deskpilot/internal/notify"
	"github.com/rahul/deskpilot/internal/observability"
	"github.com/rahul/deskpilot/internal/planner"
	"github.com/rahul/deskpilot/internal/store"
	"github.com/rahul/deskpilot/pkg/config"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: deskpilot <task description>")
		os.Exit(2)
	}
	taskDescription := strings.Join(os.Args[1:], " ")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.NewLogger(cfg.Logs.Dir)

	// No API key means offline mode: the planner serves mock plans and
	// the heuristic fallbacks carry the rest.
	var model llms.Model
	if key := cfg.APIKey(); key != "" {
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithModel(cfg.Planner.Model),
		}
		if cfg.Planner.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Planner.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Printf("no %s set, running in offline mode", cfg.Planner.APIKeyEnv)
	}

	plannerClient := planner.NewClient(model, cfg.Planner.Retries, cfg.PlannerTimeout())

	vision := handlers.NewVision(cfg.Logs.ScreenshotDir)
	gov := governance.NewCommandSafetyEngine()

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	web := handlers.NewWebHandler(cfg.Logs.ScreenshotDir)
	defer web.Close()

	notifier := notify.New()
	registerConsoleListeners(notifier)

	router := engine.NewRouter(notifier,
		handlers.NewFileHandler(cfg.App.Workspace),
		handlers.NewSystemHandler(gov, vision),
		handlers.NewCodeHandler(plannerClient, "generated", vision),
		web,
	)

	eng := engine.New(plannerClient, router, notifier,
		engine.WithLogger(logger),
		engine.WithRecorder(history),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := eng.Analyze(ctx, taskDescription); err != nil {
		log.Fatalf("failed to analyze task: %v", err)
	}

	result, err := eng.ExecuteFullTask(ctx)
	if err != nil {
		log.Fatalf("task failed: %v", err)
	}

	printRule()
	fmt.Printf("%s\n", result.Summary.Message)
	if !result.Summary.Successful {
		os.Exit(1)
	}
}

// termWidth falls back to 80 when stdout is not a terminal.
func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func printRule() {
	fmt.Println(strings.Repeat("-", termWidth()))
}

func registerConsoleListeners(n *notify.Notifier) {
	n.On(notify.EventAnalyzing, func(evt notify.Event) {
		p := evt.Payload.(notify.Analyzing)
		fmt.Printf("Analyzing: %s\n", p.Task)
	})
	n.On(notify.EventAnalyzed, func(evt notify.Event) {
		p := evt.Payload.(notify.Analyzed)
		printRule()
		fmt.Println(p.Analysis)
		for _, s := range p.Steps {
			fmt.Printf("  %d. %s (%s)\n", s.ID, s.Name, s.Type)
		}
		if len(p.Challenges) > 0 {
			fmt.Printf("Challenges: %s\n", strings.Join(p.Challenges, ", "))
		}
	})
	n.On(notify.EventStepStarted, func(evt notify.Event) {
		p := evt.Payload.(notify.StepStarted)
		fmt.Printf("[%d/%d] %s...\n", p.Index+1, p.Total, p.Step.Name)
	})
	n.On(notify.EventStepError, func(evt notify.Event) {
		p := evt.Payload.(notify.StepError)
		fmt.Printf("[%d] %s failed: %s\n", p.Index+1, p.Step.Name, p.Err)
	})
	n.On(notify.EventCalculationResult, func(evt notify.Event) {
		p := evt.Payload.(notify.CalculationResult)
		fmt.Printf("%s = %v\n", p.Operation, p.Result)
	})
	n.On(notify.EventError, func(evt notify.Event) {
		p := evt.Payload.(notify.TaskError)
		fmt.Fprintf(os.Stderr, "error: %s\n", p.Err)
	})
}
