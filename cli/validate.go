package cli

import (
	"encoding/json"
	"fmt"
	"os"

	defaults "github.com/creasty/defaults"

	"github.com/sotopia-lab/devc/compose"
	"github.com/sotopia-lab/devc/core"
)

// ValidateCommand validates the config file and the compose files it points at
type ValidateCommand struct {
	ConfigFile string `long:"config" env:"DEVC_CONFIG" description:"configuration file" default:"./devc.ini"`
	LogLevel   string `long:"log-level" env:"DEVC_LOG_LEVEL" description:"Set log level (overrides config)"`
	Logger     core.Logger
}

// Execute runs the validation command
func (c *ValidateCommand) Execute(_ []string) error {
	ApplyLogLevel(c.LogLevel)
	c.Logger.Debugf("Validating %q ... ", c.ConfigFile)
	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		c.Logger.Errorf("ERROR")
		return err
	}
	if c.LogLevel == "" {
		ApplyLogLevel(conf.Global.LogLevel)
	}

	applyConfigDefaults(conf)
	if err := conf.ValidateProfiles(); err != nil {
		return err
	}
	if err := checkComposeFiles(conf); err != nil {
		return err
	}

	out, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	c.Logger.Debugf("OK")
	return nil
}

func applyConfigDefaults(conf *Config) {
	for _, p := range conf.Profiles {
		_ = defaults.Set(p)
	}
}

// checkComposeFiles verifies every profile's compose file exists and
// declares the profile's service.
func checkComposeFiles(conf *Config) error {
	for name, p := range conf.Profiles {
		if _, err := os.Stat(p.File); err != nil {
			return fmt.Errorf("profile %q: %w: %q", name, ErrComposeFileMissing, p.File)
		}
		f, err := compose.Load(p.File)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if !f.HasService(p.Service) {
			return fmt.Errorf("profile %q: %w: %q (declared: %v)",
				name, ErrServiceNotDeclared, p.Service, f.ServiceNames())
		}
	}
	return nil
}
