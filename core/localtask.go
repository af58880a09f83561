package core

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/gobs/args"
)

// LocalTask runs a command on the host, used for profile setup steps that
// must happen before the container launch.
type LocalTask struct {
	BareTask    `mapstructure:",squash"`
	Dir         string   `mapstructure:"dir"`
	Environment []string `mapstructure:"environment"`

	Stdout, Stderr io.Writer
}

func NewLocalTask() *LocalTask {
	return &LocalTask{}
}

func (t *LocalTask) Run(ctx *Context) error {
	cmd, err := t.buildCommand(ctx)
	if err != nil {
		return err
	}

	return wrapRunError("local run", cmd.Run())
}

func (t *LocalTask) buildCommand(ctx *Context) (*exec.Cmd, error) {
	cmdArgs := args.GetArgs(t.Command)
	if len(cmdArgs) == 0 {
		return nil, ErrEmptyCommand
	}

	bin, err := exec.LookPath(cmdArgs[0])
	if err != nil {
		return nil, fmt.Errorf("look path %q: %w", cmdArgs[0], err)
	}

	cmd := exec.CommandContext(ctx.RunContext(), bin)
	cmd.Args = cmdArgs
	cmd.Stdout = teeWriter(ctx.Execution.OutputStream, t.Stdout)
	cmd.Stderr = teeWriter(ctx.Execution.ErrorStream, t.Stderr)
	// add custom env variables to the existing ones
	// instead of overwriting them
	cmd.Env = append(os.Environ(), t.Environment...)
	cmd.Dir = t.Dir
	return cmd, nil
}
