package cli

import (
	"fmt"

	"github.com/sotopia-lab/devc/core"
)

// ShowCommand renders the exact command line a profile would execute
type ShowCommand struct {
	ConfigFile string `long:"config" env:"DEVC_CONFIG" description:"configuration file" default:"./devc.ini"`
	Profile    string `long:"profile" short:"p" env:"DEVC_PROFILE" description:"profile to render"`
	LogLevel   string `long:"log-level" env:"DEVC_LOG_LEVEL" description:"Set log level (overrides config)"`
	Logger     core.Logger
}

// Execute renders the profile's invocation without running anything
func (c *ShowCommand) Execute(_ []string) error {
	ApplyLogLevel(c.LogLevel)

	conf, err := loadConfig(c.ConfigFile, c.Logger)
	if err != nil {
		return err
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

	line, err := task.CommandLine()
	if err != nil {
		return err
	}
	fmt.Println(line)
	return nil
}
