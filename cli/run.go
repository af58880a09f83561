package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sotopia-lab/devc/core"
)

// RunCommand launches the test suite inside the profile's compose service
type RunCommand struct {
	ConfigFile string `long:"config" env:"DEVC_CONFIG" description:"configuration file" default:"./devc.ini"`
	Profile    string `long:"profile" short:"p" env:"DEVC_PROFILE" description:"profile to launch"`
	DryRun     bool   `long:"dry-run" description:"print the rendered command instead of running it"`
	NoSetup    bool   `long:"no-setup" description:"skip the profile's host setup commands"`
	LogLevel   string `long:"log-level" env:"DEVC_LOG_LEVEL" description:"Set log level (overrides config)"`
	Logger     core.Logger
}

// Execute runs the launcher. The process exit code equals the child's exit
// code; failures before the child starts use the spawn exit code.
func (c *RunCommand) Execute(_ []string) error {
	ApplyLogLevel(c.LogLevel)

	conf, err := loadConfig(c.ConfigFile, c.Logger)
	if err != nil {
		return err
	}
	if c.LogLevel == "" {
		ApplyLogLevel(conf.Global.LogLevel)
	}

	profile, err := conf.Profile(c.Profile)
	if err != nil {
		return err
	}
	if err := ValidateProfile(profile.Name, profile); err != nil {
		return err
	}

	task, err := conf.BuildTask(profile)
	if err != nil {
		return err
	}

	if c.DryRun {
		line, err := task.CommandLine()
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	}

	// The compose file is checked before the orchestration call so a missing
	// file never reaches docker.
	if _, err := os.Stat(task.File); err != nil {
		return fmt.Errorf("%w: %q", ErrComposeFileMissing, task.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := core.NewRunner(c.Logger)

	if !c.NoSetup {
		if err := c.runSetup(ctx, runner, conf, profile); err != nil {
			return err
		}
	}

	task.Stdout = os.Stdout
	task.Stderr = os.Stderr

	execution, err := runner.Run(ctx, task)
	if err != nil {
		return err
	}
	defer execution.Cleanup()

	if execution.Failed {
		return execution.Error
	}
	return nil
}

// runSetup executes the profile's host commands in order, aborting the
// launch on the first failure. Setup output is captured and only shown when
// a command fails, so it never interleaves with the container's streams.
func (c *RunCommand) runSetup(ctx context.Context, runner *core.Runner, conf *Config, profile *ProfileConfig) error {
	tasks := conf.SetupTasks(profile)
	if len(tasks) == 0 {
		return nil
	}

	indicator := NewProgressIndicator(c.Logger, "Running setup commands")
	indicator.Start()

	for _, setup := range tasks {
		indicator.Update(fmt.Sprintf("Setup: %s", setup.Command))

		execution, err := runner.Run(ctx, setup)
		if err != nil {
			indicator.Stop(false, fmt.Sprintf("Setup failed: %s", setup.Command))
			return err
		}

		if execution.Failed {
			indicator.Stop(false, fmt.Sprintf("Setup failed: %s", setup.Command))
			if out := execution.ErrorStream.String(); out != "" {
				fmt.Fprint(os.Stderr, out)
			}
			execution.Cleanup()
			return fmt.Errorf("%w: %q: %w", ErrSetupFailed, setup.Command, execution.Error)
		}
		execution.Cleanup()
	}

	indicator.Stop(true, "Setup complete")
	return nil
}

// loadConfig loads the config file, falling back to the built-in default
// profile when the file does not exist.
func loadConfig(filename string, logger core.Logger) (*Config, error) {
	if _, err := os.Stat(filename); err != nil {
		logger.Debugf("no config file at %s, using built-in defaults", filename)
		return BuildDefault(logger), nil
	}
	return BuildFromFile(filename, logger)
}
