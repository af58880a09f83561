package middlewares

import (
	"fmt"
	"time"

	"github.com/sotopia-lab/devc/core"
)

const timeRounding = time.Millisecond

// ReportConfig configuration for the Report middleware
type ReportConfig struct {
	// ReportOnlyOnError when true, skips the summary line for successful runs.
	ReportOnlyOnError bool `mapstructure:"report-only-on-error"`
}

// NewReport returns a Report middleware
func NewReport(c *ReportConfig) core.Middleware {
	return &Report{*c}
}

// Report logs a one-line summary of the run outcome: duration, exit code and
// how much output was captured.
type Report struct {
	ReportConfig
}

// ContinueOnStop always returns true; the summary covers failed runs too
func (m *Report) ContinueOnStop() bool {
	return true
}

// Run logs the run summary after the execution finishes
func (m *Report) Run(ctx *core.Context) error {
	err := ctx.Next()
	ctx.Stop(err)

	e := ctx.Execution
	if !e.Failed && m.ReportOnlyOnError {
		return err
	}

	status := "succeeded"
	if e.Skipped {
		status = "skipped"
	} else if e.Failed {
		status = fmt.Sprintf("failed (exit code %d)", e.ExitCode)
	}

	ctx.Log(fmt.Sprintf("%s after %s, captured %d bytes stdout / %d bytes stderr",
		status, e.Duration.Round(timeRounding),
		len(e.GetStdout()), len(e.GetStderr())))

	return err
}
