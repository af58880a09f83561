package middlewares

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sotopia-lab/devc/config"
	"github.com/sotopia-lab/devc/core"
)

// SaveConfig configuration for the Save middleware
type SaveConfig struct {
	// SaveFolder is the directory path where run logs and metadata are saved.
	// When configured, the captured stdout, stderr and a JSON context dump are
	// written after each run. Leave empty to disable saving.
	SaveFolder string `mapstructure:"save-folder"`
	// SaveOnlyOnError when true, only saves logs when the run fails.
	// Defaults to false (saves all runs).
	SaveOnlyOnError *bool `mapstructure:"save-only-on-error"`
}

// NewSave returns a Save middleware if the given configuration is not empty
func NewSave(c *SaveConfig) core.Middleware {
	var m core.Middleware
	if !IsEmpty(c) {
		m = &Save{*c}
	}

	return m
}

// Save writes a dump of the stdout and stderr to disk after every run
type Save struct {
	SaveConfig
}

// ContinueOnStop always returns true; we always want to record the final status
func (m *Save) ContinueOnStop() bool {
	return true
}

// Run saves the result of the execution to disk
func (m *Save) Run(ctx *core.Context) error {
	err := ctx.Next()
	ctx.Stop(err)

	if ctx.Execution.Failed || !boolVal(m.SaveOnlyOnError) {
		err := m.saveToDisk(ctx)
		if err != nil {
			ctx.Logger.Errorf("Save error: %q", err)
		}
	}

	return err
}

func (m *Save) saveToDisk(ctx *core.Context) error {
	if err := config.DefaultSanitizer.ValidateSaveFolder(m.SaveFolder); err != nil {
		return fmt.Errorf("invalid save folder: %w", err)
	}

	if err := os.MkdirAll(m.SaveFolder, 0o750); err != nil {
		return fmt.Errorf("mkdir %q: %w", m.SaveFolder, err)
	}

	safeName := config.SanitizeProfileName(ctx.Task.GetName())

	root := filepath.Join(m.SaveFolder, fmt.Sprintf(
		"%s_%s",
		ctx.Execution.Date.Format("20060102_150405"), safeName,
	))

	e := ctx.Execution
	err := m.writeFile([]byte(e.GetStderr()), fmt.Sprintf("%s.stderr.log", root))
	if err != nil {
		return fmt.Errorf("write stderr log: %w", err)
	}

	err = m.writeFile([]byte(e.GetStdout()), fmt.Sprintf("%s.stdout.log", root))
	if err != nil {
		return fmt.Errorf("write stdout log: %w", err)
	}

	err = m.saveContextToDisk(ctx, fmt.Sprintf("%s.json", root))
	if err != nil {
		return fmt.Errorf("write context json: %w", err)
	}

	return nil
}

func (m *Save) saveContextToDisk(ctx *core.Context, filename string) error {
	js, _ := json.MarshalIndent(map[string]any{
		"Task":      ctx.Task,
		"Execution": ctx.Execution,
	}, "", "  ")

	if err := m.writeFile(js, filename); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func (m *Save) writeFile(data []byte, filename string) error {
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write file %q: %w", filename, err)
	}
	return nil
}
