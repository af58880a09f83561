package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sotopia-lab/devc/core"
	"github.com/sotopia-lab/devc/test"
)

func TestBuildFromString(t *testing.T) {
	logger := test.NewTestLogger()
	conf, err := BuildFromString(`
		[global]
		log-level = debug
		save-folder = ./logs

		[profile "experimental"]
		compose-file = .devcontainer/docker-compose.yml
		service = devcontainer
		user = root
		mount = .:/workspaces/sotopia
		env = UV_PROJECT_ENVIRONMENT=/workspaces/.venv
		workdir = /workspaces/sotopia
		extra = test
		extra = chat
		target = pytest tests/experimental

		[profile "unit"]
		compose-file = .devcontainer/docker-compose.yml
		service = devcontainer
		target = pytest tests/unit
	`, logger)

	require.NoError(t, err)
	require.Len(t, conf.Profiles, 2)

	assert.Equal(t, "debug", conf.Global.LogLevel)
	assert.Equal(t, "./logs", conf.Global.SaveFolder)

	p := conf.Profiles["experimental"]
	require.NotNil(t, p)
	assert.Equal(t, "experimental", p.Name)
	assert.Equal(t, ".devcontainer/docker-compose.yml", p.File)
	assert.Equal(t, "devcontainer", p.Service)
	assert.Equal(t, "root", p.User)
	assert.Equal(t, []string{".:/workspaces/sotopia"}, p.Mounts)
	assert.Equal(t, []string{"UV_PROJECT_ENVIRONMENT=/workspaces/.venv"}, p.Env)
	assert.Equal(t, "/workspaces/sotopia", p.Workdir)
	assert.Equal(t, []string{"test", "chat"}, p.Extras)
	assert.Equal(t, "pytest tests/experimental", p.Target)

	// tag defaults
	assert.Equal(t, "uv", p.Runner)
	assert.Equal(t, "/bin/sh", p.Shell)
}

func TestBuildFromStringProfileNameRequired(t *testing.T) {
	_, err := BuildFromString(`
		[profile]
		service = devcontainer
	`, test.NewTestLogger())

	assert.ErrorIs(t, err, ErrProfileNameRequired)
}

func TestParseProfileName(t *testing.T) {
	assert.Equal(t, "experimental", parseProfileName(`profile "experimental"`, profilePrefix))
	assert.Equal(t, "unit", parseProfileName(`profile unit`, profilePrefix))
	assert.Equal(t, "", parseProfileName(`profile`, profilePrefix))
}

func TestProfileLookup(t *testing.T) {
	conf, err := BuildFromString(`
		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		target = pytest tests/unit
	`, test.NewTestLogger())
	require.NoError(t, err)

	p, err := conf.Profile("unit")
	require.NoError(t, err)
	assert.Equal(t, "unit", p.Name)

	_, err = conf.Profile("missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	// the built-in fallback only applies when nothing is declared
	_, err = conf.Profile(DefaultProfileName)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileDefaultFallback(t *testing.T) {
	conf := NewConfig(test.NewTestLogger())

	p, err := conf.Profile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileName, p.Name)
	assert.Equal(t, "devcontainer", p.Service)
}

func TestBuildTaskCanonicalCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)

	conf := BuildDefault(test.NewTestLogger())
	p, err := conf.Profile("")
	require.NoError(t, err)

	task, err := conf.BuildTask(p)
	require.NoError(t, err)

	line, err := task.CommandLine()
	require.NoError(t, err)

	want := fmt.Sprintf(`docker compose -f .devcontainer/docker-compose.yml run --rm -u root -v %s:/workspaces/sotopia devcontainer /bin/sh -c "export UV_PROJECT_ENVIRONMENT=/workspaces/.venv; cd /workspaces/sotopia; uv run --extra test --extra chat pytest tests/experimental"`, wd)
	assert.Equal(t, want, line)
}

func TestBuildTaskPrefersRawCommand(t *testing.T) {
	conf, err := BuildFromString(`
		[profile "raw"]
		compose-file = compose.yml
		service = devcontainer
		command = make check
		target = pytest tests/unit
	`, test.NewTestLogger())
	require.NoError(t, err)

	p := conf.Profiles["raw"]
	task, err := conf.BuildTask(p)
	require.NoError(t, err)
	assert.Equal(t, "make check", task.Command)
}

func TestBuildTaskRequiresCommandOrTarget(t *testing.T) {
	conf, err := BuildFromString(`
		[profile "empty"]
		compose-file = compose.yml
		service = devcontainer
	`, test.NewTestLogger())
	require.NoError(t, err)

	_, err = conf.BuildTask(conf.Profiles["empty"])
	assert.ErrorIs(t, err, core.ErrEmptyCommand)
}

func TestBuildTaskEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ZED=3\nALPHA=1\n"), 0o644))

	conf, err := BuildFromString(fmt.Sprintf(`
		[global]
		env-file = %s

		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		env = BETA=2
		target = pytest tests/unit
	`, envFile), test.NewTestLogger())
	require.NoError(t, err)

	task, err := conf.BuildTask(conf.Profiles["unit"])
	require.NoError(t, err)

	// env-file vars come first, sorted, then the profile's own
	assert.Equal(t, []string{"ALPHA=1", "ZED=3", "BETA=2"}, task.Env)
}

func TestBuildTaskEnvFileMissing(t *testing.T) {
	conf, err := BuildFromString(`
		[global]
		env-file = /nonexistent/.env

		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		target = pytest tests/unit
	`, test.NewTestLogger())
	require.NoError(t, err)

	_, err = conf.BuildTask(conf.Profiles["unit"])
	assert.ErrorIs(t, err, ErrEnvFileNotFound)
}

func TestSetupTasks(t *testing.T) {
	conf, err := BuildFromString(`
		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		target = pytest tests/unit
		setup = docker compose build
		setup = uv sync
	`, test.NewTestLogger())
	require.NoError(t, err)

	tasks := conf.SetupTasks(conf.Profiles["unit"])
	require.Len(t, tasks, 2)
	assert.Equal(t, "unit-setup-1", tasks[0].Name)
	assert.Equal(t, "docker compose build", tasks[0].Command)
	assert.Equal(t, "unit-setup-2", tasks[1].Name)
	assert.Equal(t, "uv sync", tasks[1].Command)
}

func TestAttachMiddlewaresProfileWins(t *testing.T) {
	conf, err := BuildFromString(`
		[global]
		save-folder = /tmp/global-logs

		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		target = pytest tests/unit
		save-folder = /tmp/profile-logs
	`, test.NewTestLogger())
	require.NoError(t, err)

	task, err := conf.BuildTask(conf.Profiles["unit"])
	require.NoError(t, err)

	// the dedup keeps the profile-level save middleware
	ms := task.Middlewares()
	require.NotEmpty(t, ms)
}

func TestBuildFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devc.ini")
	content := `
[profile "unit"]
compose-file = compose.yml
service = devcontainer
target = pytest tests/unit
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	conf, err := BuildFromFile(path, test.NewTestLogger())
	require.NoError(t, err)
	require.Len(t, conf.Profiles, 1)
	assert.Equal(t, "devcontainer", conf.Profiles["unit"].Service)
}
