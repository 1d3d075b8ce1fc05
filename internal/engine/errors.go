package engine

import "errors"

var (
	// ErrNoTask is returned when execution is requested before any task
	// has been analyzed.
	ErrNoTask = errors.New("no task has been analyzed yet")

	// ErrNoSteps is returned when the analyzed plan carries no steps.
	ErrNoSteps = errors.New("no steps to execute for this task")
)
