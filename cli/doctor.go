package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	docker "github.com/fsouza/go-dockerclient"

	"github.com/sotopia-lab/devc/compose"
	"github.com/sotopia-lab/devc/core"
)

// DoctorCommand runs health checks on the launcher configuration and the
// environment the launch depends on
type DoctorCommand struct {
	ConfigFile string `long:"config" env:"DEVC_CONFIG" description:"configuration file" default:"./devc.ini"`
	LogLevel   string `long:"log-level" env:"DEVC_LOG_LEVEL" description:"Set log level"`
	JSON       bool   `long:"json" description:"Output results as JSON"`
	Logger     core.Logger

	// newDockerClient and lookPath allow overriding environment probes in tests
	newDockerClient func() (dockerPinger, error)
	lookPath        func(string) (string, error)
}

// dockerPinger is the slice of the Docker client the doctor needs
type dockerPinger interface {
	Ping() error
}

// Status constants for health check results.
const (
	statusPass = "pass"
	statusFail = "fail"
	statusSkip = "skip"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Status   string   `json:"status"` // "pass", "fail", "skip"
	Message  string   `json:"message,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// DoctorReport contains all health check results
type DoctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
}

// Execute runs all health checks
func (c *DoctorCommand) Execute(_ []string) error {
	ApplyLogLevel(c.LogLevel)

	report := &DoctorReport{
		Healthy: true,
		Checks:  []CheckResult{},
	}

	var progress *ProgressReporter
	if !c.JSON {
		c.Logger.Noticef("Running launch environment diagnostics...\n")
		totalSteps := 4 // config, docker, compose files, mounts
		progress = NewProgressReporter(c.Logger, totalSteps)
	}

	if progress != nil {
		progress.Step(1, "Checking configuration...")
	}
	conf := c.checkConfiguration(report)

	if progress != nil {
		progress.Step(2, "Checking Docker availability...")
	}
	c.checkDocker(report)

	if progress != nil {
		progress.Step(3, "Checking compose files...")
	}
	c.checkComposeFiles(report, conf)

	if progress != nil {
		progress.Step(4, "Checking mount sources...")
	}
	c.checkMounts(report, conf)

	if progress != nil {
		progress.Complete("Health check complete")
	}

	if c.JSON {
		return c.outputJSON(report)
	}
	return c.outputHuman(report)
}

// checkConfiguration validates the config file, falling back to the built-in
// profile when no file exists.
func (c *DoctorCommand) checkConfiguration(report *DoctorReport) *Config {
	if _, err := os.Stat(c.ConfigFile); err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "File Exists",
			Status:   statusSkip,
			Message:  fmt.Sprintf("No config file at %s, using built-in profile", c.ConfigFile),
			Hints: []string{
				"Run 'devc init' to create a config file interactively",
			},
		})
		return BuildDefault(c.Logger)
	}

	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "Valid Syntax",
			Status:   statusFail,
			Message:  fmt.Sprintf("Parse error: %v", err),
			Hints: []string{
				"Check INI syntax (sections, keys, values)",
				fmt.Sprintf("Validate with: devc validate --config=%s", c.ConfigFile),
			},
		})
		return nil
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Configuration",
		Name:     "Valid Syntax",
		Status:   statusPass,
		Message:  c.ConfigFile,
	})

	if err := conf.ValidateProfiles(); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "Profiles Valid",
			Status:   statusFail,
			Message:  err.Error(),
		})
		return conf
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Configuration",
		Name:     "Profiles Valid",
		Status:   statusPass,
		Message:  fmt.Sprintf("%d profile(s) configured", len(conf.Profiles)),
	})
	return conf
}

// checkDocker verifies the docker CLI is installed and the daemon responds.
func (c *DoctorCommand) checkDocker(report *DoctorReport) {
	lookPath := c.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if _, err := lookPath("docker"); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "CLI Installed",
			Status:   statusFail,
			Message:  "docker binary not found in PATH",
			Hints: []string{
				"Install Docker: https://docs.docker.com/get-docker/",
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Docker",
		Name:     "CLI Installed",
		Status:   statusPass,
	})

	newClient := c.newDockerClient
	if newClient == nil {
		newClient = func() (dockerPinger, error) {
			return docker.NewClientFromEnv()
		}
	}

	client, err := newClient()
	if err == nil {
		err = client.Ping()
	}
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Daemon Reachable",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot connect to Docker: %v", err),
			Hints: []string{
				"Check Docker daemon: docker info",
				"Start Docker service (Linux: systemctl start docker, macOS/Windows: start Docker Desktop)",
				"Check socket: ls -l /var/run/docker.sock",
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Docker",
		Name:     "Daemon Reachable",
		Status:   statusPass,
	})
}

// checkComposeFiles verifies each profile's compose file exists, parses and
// declares the profile's service.
func (c *DoctorCommand) checkComposeFiles(report *DoctorReport, conf *Config) {
	if conf == nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose Files",
			Name:     "Service Declared",
			Status:   statusSkip,
			Message:  "Skipped (configuration check failed)",
		})
		return
	}

	for name, p := range conf.Profiles {
		if _, err := os.Stat(p.File); err != nil {
			report.Healthy = false
			report.Checks = append(report.Checks, CheckResult{
				Category: "Compose Files",
				Name:     name,
				Status:   statusFail,
				Message:  fmt.Sprintf("Compose file not found: %s", p.File),
				Hints: []string{
					"Check the compose-file path relative to the invocation directory",
				},
			})
			continue
		}

		f, err := compose.Load(p.File)
		if err != nil {
			report.Healthy = false
			report.Checks = append(report.Checks, CheckResult{
				Category: "Compose Files",
				Name:     name,
				Status:   statusFail,
				Message:  fmt.Sprintf("Cannot parse %s: %v", p.File, err),
			})
			continue
		}

		if !f.HasService(p.Service) {
			report.Healthy = false
			report.Checks = append(report.Checks, CheckResult{
				Category: "Compose Files",
				Name:     name,
				Status:   statusFail,
				Message:  fmt.Sprintf("Service %q not declared in %s", p.Service, p.File),
				Hints: []string{
					fmt.Sprintf("Declared services: %v", f.ServiceNames()),
				},
			})
			continue
		}

		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose Files",
			Name:     name,
			Status:   statusPass,
			Message:  fmt.Sprintf("%s (service %q)", p.File, p.Service),
		})
	}
}

// checkMounts verifies each profile's bind mount sources exist on the host.
func (c *DoctorCommand) checkMounts(report *DoctorReport, conf *Config) {
	if conf == nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Mounts",
			Name:     "Sources Exist",
			Status:   statusSkip,
			Message:  "Skipped (configuration check failed)",
		})
		return
	}

	for name, p := range conf.Profiles {
		for _, m := range p.Mounts {
			host, container, ok := strings.Cut(m, ":")
			if !ok || host == "" || container == "" {
				continue // reported by profile validation
			}
			if _, err := os.Stat(host); err != nil {
				report.Healthy = false
				report.Checks = append(report.Checks, CheckResult{
					Category: "Mounts",
					Name:     name,
					Status:   statusFail,
					Message:  fmt.Sprintf("%v: %s", ErrMountSourceMissing, host),
				})
				continue
			}
			report.Checks = append(report.Checks, CheckResult{
				Category: "Mounts",
				Name:     name,
				Status:   statusPass,
				Message:  m,
			})
		}
	}
}

// outputJSON outputs results as JSON
func (c *DoctorCommand) outputJSON(report *DoctorReport) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.Healthy {
		return ErrHealthCheckFailed
	}
	return nil
}

// outputHuman outputs results in human-readable format
func (c *DoctorCommand) outputHuman(report *DoctorReport) error {
	c.Logger.Noticef("Launch Environment Health Check\n")

	categories := make(map[string][]CheckResult)
	categoryOrder := []string{"Configuration", "Docker", "Compose Files", "Mounts"}

	for _, check := range report.Checks {
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, category := range categoryOrder {
		checks, exists := categories[category]
		if !exists {
			continue
		}

		c.Logger.Noticef("%s", category)
		for _, check := range checks {
			statusIcon := getStatusIcon(check.Status)
			if check.Message != "" {
				c.Logger.Noticef("  %s %s: %s", statusIcon, check.Name, check.Message)
			} else {
				c.Logger.Noticef("  %s %s", statusIcon, check.Name)
			}

			for _, hint := range check.Hints {
				c.Logger.Noticef("    → %s", hint)
			}
		}
		c.Logger.Noticef("")
	}

	failCount := 0
	skipCount := 0
	for _, check := range report.Checks {
		switch check.Status {
		case statusFail:
			failCount++
		case statusSkip:
			skipCount++
		}
	}

	if report.Healthy {
		c.Logger.Noticef("Summary: All checks passed ✅")
		if skipCount > 0 {
			c.Logger.Noticef("  (%d check(s) skipped as not applicable)", skipCount)
		}
		return nil
	}

	c.Logger.Noticef("Summary: %d issue(s) found ❌", failCount)
	return ErrHealthCheckFailed
}

func getStatusIcon(status string) string {
	switch status {
	case statusPass:
		return "✅"
	case statusFail:
		return "❌"
	case statusSkip:
		return "⏭️"
	default:
		return "❓"
	}
}
