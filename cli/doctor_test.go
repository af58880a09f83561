package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sotopia-lab/devc/test"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping() error { return f.err }

func healthyDoctor(t *testing.T, configPath string) *DoctorCommand {
	t.Helper()
	return &DoctorCommand{
		ConfigFile:      configPath,
		JSON:            true,
		Logger:          test.NewTestLogger(),
		newDockerClient: func() (dockerPinger, error) { return &fakePinger{}, nil },
		lookPath:        func(string) (string, error) { return "/usr/bin/docker", nil },
	}
}

func writeDoctorFixture(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, "compose.yml"), []byte(testComposeFile), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = writeTestConfig(t, dir, `
[profile "unit"]
compose-file = compose.yml
service = devcontainer
mount = .:/workspaces/app
target = pytest tests/unit
`)
	return dir, configPath
}

func TestDoctorCommandHealthy(t *testing.T) {
	_, configPath := writeDoctorFixture(t)
	cmd := healthyDoctor(t, configPath)

	out, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if !report.Healthy {
		t.Errorf("expected healthy report, got: %+v", report)
	}
}

func TestDoctorCommandDaemonUnreachable(t *testing.T) {
	_, configPath := writeDoctorFixture(t)
	cmd := healthyDoctor(t, configPath)
	cmd.newDockerClient = func() (dockerPinger, error) {
		return &fakePinger{err: errors.New("connection refused")}, nil
	}

	out, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if !errors.Is(err, ErrHealthCheckFailed) {
		t.Fatalf("expected %v, got: %v", ErrHealthCheckFailed, err)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Healthy {
		t.Error("expected unhealthy report")
	}

	found := false
	for _, check := range report.Checks {
		if check.Category == "Docker" && check.Name == "Daemon Reachable" && check.Status == statusFail {
			found = true
		}
	}
	if !found {
		t.Errorf("expected failed daemon check, got: %+v", report.Checks)
	}
}

func TestDoctorCommandCLIMissing(t *testing.T) {
	_, configPath := writeDoctorFixture(t)
	cmd := healthyDoctor(t, configPath)
	cmd.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if !errors.Is(err, ErrHealthCheckFailed) {
		t.Fatalf("expected %v, got: %v", ErrHealthCheckFailed, err)
	}
}

func TestDoctorCommandServiceNotDeclared(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, "compose.yml"), []byte(testComposeFile), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := writeTestConfig(t, dir, `
[profile "unit"]
compose-file = compose.yml
service = other
target = pytest tests/unit
`)
	cmd := healthyDoctor(t, configPath)

	out, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if !errors.Is(err, ErrHealthCheckFailed) {
		t.Fatalf("expected %v, got: %v", ErrHealthCheckFailed, err)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}

	found := false
	for _, check := range report.Checks {
		if check.Category == "Compose Files" && check.Status == statusFail {
			found = true
		}
	}
	if !found {
		t.Errorf("expected failed compose check, got: %+v", report.Checks)
	}
}

func TestDoctorCommandMountSourceMissing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, "compose.yml"), []byte(testComposeFile), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := writeTestConfig(t, dir, `
[profile "unit"]
compose-file = compose.yml
service = devcontainer
mount = ./does-not-exist:/workspaces/app
target = pytest tests/unit
`)
	cmd := healthyDoctor(t, configPath)

	out, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if !errors.Is(err, ErrHealthCheckFailed) {
		t.Fatalf("expected %v, got: %v", ErrHealthCheckFailed, err)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}

	found := false
	for _, check := range report.Checks {
		if check.Category == "Mounts" && check.Status == statusFail {
			found = true
		}
	}
	if !found {
		t.Errorf("expected failed mount check, got: %+v", report.Checks)
	}
}

// No config file is not a failure: doctor falls back to the built-in profile
// and reports the missing file as skipped.
func TestDoctorCommandNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// satisfy the built-in profile's compose file and mount checks
	if err := os.MkdirAll(filepath.Join(dir, ".devcontainer"), 0o755); err != nil {
		t.Fatal(err)
	}
	composeContent := `
services:
  devcontainer:
    build:
      context: .
`
	if err := os.WriteFile(filepath.Join(dir, ".devcontainer", "docker-compose.yml"), []byte(composeContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := healthyDoctor(t, filepath.Join(dir, "devc.ini"))

	out, err := captureStdout(t, func() error { return cmd.Execute(nil) })
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if !report.Healthy {
		t.Errorf("expected healthy report, got: %+v", report)
	}

	found := false
	for _, check := range report.Checks {
		if check.Category == "Configuration" && check.Status == statusSkip {
			found = true
		}
	}
	if !found {
		t.Errorf("expected skipped configuration check, got: %+v", report.Checks)
	}
}

func TestDoctorCommandHumanOutput(t *testing.T) {
	_, configPath := writeDoctorFixture(t)

	logger := test.NewTestLogger()
	cmd := healthyDoctor(t, configPath)
	cmd.JSON = false
	cmd.Logger = logger

	if _, err := captureStdout(t, func() error { return cmd.Execute(nil) }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !logger.HasMessage("All checks passed") {
		t.Errorf("expected summary in log, got: %+v", logger.GetMessages())
	}
}
