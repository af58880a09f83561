package core

import (
	"context"
	"fmt"
)

// Runner executes tasks one at a time through their middleware chains. It is
// the one-shot counterpart of a scheduler: build the invocation, run it,
// record the outcome.
type Runner struct {
	Logger Logger
}

func NewRunner(logger Logger) *Runner {
	return &Runner{Logger: logger}
}

// Run executes the task once and returns its finished execution. The child's
// failure is reported through Execution.Failed/Error, not the returned error;
// the returned error covers runner-internal problems only.
func (r *Runner) Run(ctx context.Context, t Task) (*Execution, error) {
	e, err := NewExecution()
	if err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	c := NewContext(ctx, r.Logger, t, e)

	c.Start()
	c.Log("Started - " + t.GetCommand())

	nextErr := c.Next()

	c.Stop(nextErr)
	if l, ok := t.(interface{ SetLastRun(*Execution) }); ok {
		l.SetLastRun(e)
	}

	errText := ""
	if e.Error != nil {
		errText = ", error: " + e.Error.Error()
	}
	c.Log(fmt.Sprintf("Finished in %q%s", e.Duration, errText))

	return e, nil
}
