package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestComposeTaskBuildCommandRun(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc"}
	task.Command = `echo hello`
	e, err := NewExecution()
	if err != nil {
		t.Fatalf("NewExecution error: %v", err)
	}
	ctx := &Context{Execution: e}
	cmd, err := task.buildCommand(ctx)
	if err != nil {
		t.Fatalf("buildCommand error: %v", err)
	}
	wantArgs := []string{"docker", "compose", "-f", "compose.yml", "run", "--rm", "svc", "/bin/sh", "-c", "echo hello"}
	if !reflect.DeepEqual(cmd.Args, wantArgs) {
		t.Errorf("unexpected args: %v, want %v", cmd.Args, wantArgs)
	}
	if cmd.Stdout != e.OutputStream {
		t.Errorf("expected stdout to be execution output buffer")
	}
	if cmd.Stderr != e.ErrorStream {
		t.Errorf("expected stderr to be execution error buffer")
	}
}

func TestComposeTaskBuildCommandExec(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc", Exec: true}
	task.Command = `echo hello`
	e, err := NewExecution()
	if err != nil {
		t.Fatalf("NewExecution error: %v", err)
	}
	ctx := &Context{Execution: e}
	cmd, err := task.buildCommand(ctx)
	if err != nil {
		t.Fatalf("buildCommand error: %v", err)
	}
	wantArgs := []string{"docker", "compose", "-f", "compose.yml", "exec", "svc", "/bin/sh", "-c", "echo hello"}
	if !reflect.DeepEqual(cmd.Args, wantArgs) {
		t.Errorf("unexpected args: %v, want %v", cmd.Args, wantArgs)
	}
}

func TestComposeTaskCanonicalInvocation(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	task := &ComposeTask{
		File:    ".devcontainer/docker-compose.yml",
		Service: "devcontainer",
		User:    "root",
		Mounts:  []string{".:/workspaces/sotopia"},
		Env:     []string{"UV_PROJECT_ENVIRONMENT=/workspaces/.venv"},
		Workdir: "/workspaces/sotopia",
	}
	task.Command = "uv run --extra test --extra chat pytest tests/experimental"

	argv, err := task.Args()
	if err != nil {
		t.Fatalf("Args error: %v", err)
	}

	// macOS tempdirs resolve through /private symlinks; compare against the
	// same filepath.Abs the builder uses.
	abs, err := filepath.Abs(".")
	if err != nil {
		t.Fatalf("Abs error: %v", err)
	}

	want := []string{
		"compose", "-f", ".devcontainer/docker-compose.yml",
		"run", "--rm",
		"-u", "root",
		"-v", abs + ":/workspaces/sotopia",
		"devcontainer",
		"/bin/sh", "-c",
		"export UV_PROJECT_ENVIRONMENT=/workspaces/.venv; cd /workspaces/sotopia; uv run --extra test --extra chat pytest tests/experimental",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("unexpected argv:\n got %q\nwant %q", argv, want)
	}

	line, err := task.CommandLine()
	if err != nil {
		t.Fatalf("CommandLine error: %v", err)
	}
	wantLine := `docker compose -f .devcontainer/docker-compose.yml run --rm -u root ` +
		`-v ` + abs + `:/workspaces/sotopia devcontainer /bin/sh -c ` +
		`"export UV_PROJECT_ENVIRONMENT=/workspaces/.venv; cd /workspaces/sotopia; uv run --extra test --extra chat pytest tests/experimental"`
	if line != wantLine {
		t.Errorf("unexpected command line:\n got %s\nwant %s", line, wantLine)
	}
}

func TestComposeTaskArgsIdempotent(t *testing.T) {
	task := &ComposeTask{
		File:    "compose.yml",
		Service: "svc",
		Mounts:  []string{".:/workspaces/app"},
		Env:     []string{"FOO=bar"},
		Workdir: "/workspaces/app",
	}
	task.Command = "pytest"

	first, err := task.Args()
	if err != nil {
		t.Fatalf("Args error: %v", err)
	}
	second, err := task.Args()
	if err != nil {
		t.Fatalf("Args error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("argv not stable across builds: %q vs %q", first, second)
	}
}

func TestComposeTaskMissingService(t *testing.T) {
	task := &ComposeTask{File: "compose.yml"}
	if _, err := task.Args(); !errors.Is(err, ErrServiceRequired) {
		t.Errorf("expected ErrServiceRequired, got %v", err)
	}
}

func TestComposeTaskInvalidMount(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc", Mounts: []string{"no-colon"}}
	if _, err := task.Args(); !errors.Is(err, ErrInvalidMountSpec) {
		t.Errorf("expected ErrInvalidMountSpec, got %v", err)
	}
}

func TestComposeTaskExecSkipsMounts(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc", Exec: true, Mounts: []string{".:/w"}}
	argv, err := task.Args()
	if err != nil {
		t.Fatalf("Args error: %v", err)
	}
	for _, a := range argv {
		if a == "-v" {
			t.Errorf("exec mode must not carry volume flags: %q", argv)
		}
	}
}

func TestComposeTaskRunMissingComposeFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	task := &ComposeTask{File: filepath.Join(dir, "nope.yml"), Service: "svc"}
	task.Command = "pytest"
	e, err := NewExecution()
	if err != nil {
		t.Fatalf("NewExecution error: %v", err)
	}
	ctx := &Context{Execution: e}
	if err := task.Run(ctx); !errors.Is(err, ErrComposeFileNotFound) {
		t.Errorf("expected ErrComposeFileNotFound, got %v", err)
	}
}

func TestComposeTaskNoCommandOmitsShell(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc"}
	argv, err := task.Args()
	if err != nil {
		t.Fatalf("Args error: %v", err)
	}
	want := []string{"compose", "-f", "compose.yml", "run", "--rm", "svc"}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("unexpected argv: %q, want %q", argv, want)
	}
}

func TestResolveMountRelativeSource(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	spec, err := resolveMount(".:/workspaces/sotopia")
	if err != nil {
		t.Fatalf("resolveMount error: %v", err)
	}
	abs, _ := filepath.Abs(".")
	if spec != abs+":/workspaces/sotopia" {
		t.Errorf("unexpected spec %q", spec)
	}
}

func TestResolveMountAbsoluteSourceUntouched(t *testing.T) {
	spec, err := resolveMount(string(os.PathSeparator) + "home:/workspaces/app")
	if err != nil {
		t.Fatalf("resolveMount error: %v", err)
	}
	if spec != string(os.PathSeparator)+"home:/workspaces/app" {
		t.Errorf("unexpected spec %q", spec)
	}
}

func TestComposeTaskInvalidEnvEntry(t *testing.T) {
	task := &ComposeTask{File: "compose.yml", Service: "svc", Env: []string{"NOEQUALS"}}
	task.Command = "echo hello"

	if _, err := task.Args(); !errors.Is(err, ErrInvalidEnvVar) {
		t.Errorf("expected ErrInvalidEnvVar, got %v", err)
	}
}

func TestComposeTaskRunCanceled(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("compose.yml", []byte("services:\n  svc: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	task := &ComposeTask{File: "compose.yml", Service: "svc"}
	task.Command = "echo hello"

	e, err := NewExecution()
	if err != nil {
		t.Fatalf("NewExecution error: %v", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := &Context{Execution: e, Ctx: cctx}

	if err := task.Run(ctx); !errors.Is(err, ErrRunCanceled) {
		t.Errorf("expected ErrRunCanceled, got %v", err)
	}
}
