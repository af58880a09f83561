package core

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ComposeTask launches the test suite inside a compose service. It renders a
// single `docker compose run` (or `exec`) invocation, streams the combined
// output and propagates the child's exit status untouched.
type ComposeTask struct {
	BareTask `mapstructure:",squash"`
	File     string   `default:"compose.yml" mapstructure:"compose-file"`
	Service  string   `mapstructure:"service"`
	User     string   `mapstructure:"user"`
	Mounts   []string `mapstructure:"mount"`
	Env      []string `mapstructure:"env"`
	Workdir  string   `mapstructure:"workdir"`
	Shell    string   `default:"/bin/sh" mapstructure:"shell"`
	Exec     bool     `default:"false" mapstructure:"exec"`

	// Tee targets for live output. When set, the child's stdout/stderr are
	// written here in addition to the execution capture buffers.
	Stdout, Stderr io.Writer
}

func NewComposeTask() *ComposeTask { return &ComposeTask{} }

func (t *ComposeTask) Run(ctx *Context) error {
	if _, err := os.Stat(t.File); err != nil {
		return fmt.Errorf("stat %q: %w", t.File, ErrComposeFileNotFound)
	}

	cmd, err := t.buildCommand(ctx)
	if err != nil {
		return err
	}

	runErr := cmd.Run()
	if runErr != nil && ctx.RunContext().Err() != nil {
		return fmt.Errorf("compose run: %w", ErrRunCanceled)
	}
	return wrapRunError("compose run", runErr)
}

func (t *ComposeTask) buildCommand(ctx *Context) (*exec.Cmd, error) {
	argv, err := t.Args()
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- the argument vector is built from validated profile config
	cmd := exec.CommandContext(ctx.RunContext(), "docker", argv...)
	cmd.Stdout = teeWriter(ctx.Execution.OutputStream, t.Stdout)
	cmd.Stderr = teeWriter(ctx.Execution.ErrorStream, t.Stderr)
	cmd.Env = os.Environ()
	return cmd, nil
}

// Args returns the fixed argument vector passed to the docker CLI. Building
// twice with the same config and working directory yields the same vector.
func (t *ComposeTask) Args() ([]string, error) {
	if t.Service == "" {
		return nil, ErrServiceRequired
	}

	for _, kv := range t.Env {
		if !strings.Contains(kv, "=") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEnvVar, kv)
		}
	}

	argv := []string{"compose", "-f", t.File}
	if t.Exec {
		argv = append(argv, "exec")
	} else {
		argv = append(argv, "run", "--rm")
	}
	if t.User != "" {
		argv = append(argv, "-u", t.User)
	}
	if !t.Exec {
		for _, m := range t.Mounts {
			spec, err := resolveMount(m)
			if err != nil {
				return nil, err
			}
			argv = append(argv, "-v", spec)
		}
	}
	argv = append(argv, t.Service)

	if inner := t.innerCommand(); inner != "" {
		argv = append(argv, t.shell(), "-c", inner)
	}
	return argv, nil
}

// CommandLine renders the full invocation as a single shell line, the form
// shown by `devc show` and `devc run --dry-run`.
func (t *ComposeTask) CommandLine() (string, error) {
	argv, err := t.Args()
	if err != nil {
		return "", err
	}

	words := make([]string, 0, len(argv)+1)
	words = append(words, "docker")
	for _, a := range argv {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + a + `"`
		}
		words = append(words, a)
	}
	return strings.Join(words, " "), nil
}

func (t *ComposeTask) innerCommand() string {
	return InnerCommand(t.Env, t.Workdir, t.Command)
}

func (t *ComposeTask) shell() string {
	if t.Shell == "" {
		return DefaultShell
	}
	return t.Shell
}

// resolveMount expands the host side of a host:container mount spec to an
// absolute path. A bare "." resolves to the invoking working directory.
func resolveMount(spec string) (string, error) {
	host, container, ok := strings.Cut(spec, ":")
	if !ok || host == "" || container == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidMountSpec, spec)
	}

	abs, err := filepath.Abs(host)
	if err != nil {
		return "", fmt.Errorf("resolve mount source %q: %w", host, err)
	}
	return abs + ":" + container, nil
}

func teeWriter(capture, tee io.Writer) io.Writer {
	if tee == nil {
		return capture
	}
	return io.MultiWriter(capture, tee)
}
