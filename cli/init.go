package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/manifoldco/promptui"
	"gopkg.in/ini.v1"

	"github.com/sotopia-lab/devc/compose"
	"github.com/sotopia-lab/devc/core"
)

// InitCommand creates an interactive wizard for generating a launcher
// configuration file
type InitCommand struct {
	Output   string `long:"output" short:"o" description:"Output file path" default:"./devc.ini"`
	LogLevel string `long:"log-level" env:"DEVC_LOG_LEVEL" description:"Set log level"`
	Logger   core.Logger
}

var profileNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Execute runs the interactive configuration wizard
func (c *InitCommand) Execute(_ []string) error {
	ApplyLogLevel(c.LogLevel)

	c.Logger.Noticef("🚀 Welcome to devc configuration setup!")
	c.Logger.Noticef("This wizard will help you create your first config file.")

	if _, err := os.Stat(c.Output); err == nil {
		if !c.confirmOverwrite() {
			c.Logger.Noticef("Setup canceled")
			return nil
		}
	}

	conf := &initConfig{
		Global: &initGlobalConfig{},
	}

	if err := c.promptGlobalSettings(conf.Global); err != nil {
		return fmt.Errorf("failed to gather global settings: %w", err)
	}

	if err := c.promptProfiles(conf); err != nil {
		return fmt.Errorf("failed to gather profile configuration: %w", err)
	}

	if err := c.saveConfig(conf); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.Logger.Noticef("✅ Configuration saved to: %s", c.Output)

	if err := c.postCreationActions(); err != nil {
		c.Logger.Warningf("Post-creation action failed: %v", err)
	}

	c.printNextSteps()
	return nil
}

// initConfig holds the configuration being built
type initConfig struct {
	Global   *initGlobalConfig
	Profiles []*initProfileConfig
}

type initGlobalConfig struct {
	LogLevel   string
	SaveFolder string
}

type initProfileConfig struct {
	Name    string
	File    string
	Service string
	User    string
	Mount   string
	Env     string
	Workdir string
	Runner  string
	Extras  string
	Target  string
}

func (p *initProfileConfig) ToINI(section *ini.Section) {
	section.Key("compose-file").SetValue(p.File)
	section.Key("service").SetValue(p.Service)
	if p.User != "" {
		section.Key("user").SetValue(p.User)
	}
	if p.Mount != "" {
		section.Key("mount").SetValue(p.Mount)
	}
	if p.Env != "" {
		section.Key("env").SetValue(p.Env)
	}
	if p.Workdir != "" {
		section.Key("workdir").SetValue(p.Workdir)
	}
	if p.Runner != "" && p.Runner != "uv" {
		section.Key("runner").SetValue(p.Runner)
	}
	if p.Extras != "" {
		for _, extra := range strings.Split(p.Extras, ",") {
			section.Key("extra").AddShadow(strings.TrimSpace(extra)) //nolint:errcheck // shadow add on fresh section cannot fail
		}
	}
	if p.Target != "" {
		section.Key("target").SetValue(p.Target)
	}
}

// confirmOverwrite asks user to confirm overwriting existing file
func (c *InitCommand) confirmOverwrite() bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("File %s already exists. Overwrite", c.Output),
		IsConfirm: true,
		Default:   "n",
	}
	_, err := prompt.Run()
	return err == nil
}

// promptGlobalSettings gathers global configuration
func (c *InitCommand) promptGlobalSettings(global *initGlobalConfig) error {
	c.Logger.Noticef("=== Global Settings ===")

	logLevelPrompt := promptui.Select{
		Label:     "Log level",
		Items:     []string{"panic", "fatal", "error", "warning", "info", "debug", "trace"},
		CursorPos: 4, // info
	}
	_, logLevel, err := logLevelPrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	global.LogLevel = logLevel

	savePrompt := promptui.Prompt{
		Label:     "Save run output to disk",
		IsConfirm: true,
		Default:   "n",
	}
	if _, err := savePrompt.Run(); err == nil {
		folderPrompt := promptui.Prompt{
			Label:   "Save folder",
			Default: "./logs",
		}
		global.SaveFolder, err = folderPrompt.Run()
		if err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
		}
	}

	return nil
}

// promptProfiles gathers profile configurations
func (c *InitCommand) promptProfiles(conf *initConfig) error {
	c.Logger.Noticef("=== Profile Configuration ===")
	c.Logger.Noticef("Let's create your first launch profile.")

	for {
		profile, err := c.promptProfile()
		if err != nil {
			return err
		}

		conf.Profiles = append(conf.Profiles, profile)
		c.Logger.Noticef("✓ Added profile: %s", profile.Name)

		addMore := promptui.Prompt{
			Label:     "Add another profile",
			IsConfirm: true,
			Default:   "n",
		}
		if _, err := addMore.Run(); err != nil {
			break
		}
	}

	return nil
}

// promptProfile prompts for a single launch profile
func (c *InitCommand) promptProfile() (*initProfileConfig, error) {
	profile := &initProfileConfig{}

	namePrompt := promptui.Prompt{
		Label:   "Profile name (alphanumeric, hyphens, underscores)",
		Default: DefaultProfileName,
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("profile name cannot be empty")
			}
			if !profileNameRe.MatchString(input) {
				return fmt.Errorf("profile name must be alphanumeric with hyphens or underscores only")
			}
			return nil
		},
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	profile.Name = name

	filePrompt := promptui.Prompt{
		Label:   "Compose file",
		Default: ".devcontainer/docker-compose.yml",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("compose file cannot be empty")
			}
			return nil
		},
	}
	profile.File, err = filePrompt.Run()
	if err != nil {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	profile.Service, err = c.promptService(profile.File)
	if err != nil {
		return nil, err
	}

	userPrompt := promptui.Prompt{
		Label:   "Container user (optional)",
		Default: "root",
	}
	profile.User, err = userPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	mountPrompt := promptui.Prompt{
		Label:   "Bind mount (optional, format: host:/container/path)",
		Default: "",
	}
	profile.Mount, err = mountPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	envPrompt := promptui.Prompt{
		Label:   "Environment variable (optional, format: KEY=value)",
		Default: "",
	}
	profile.Env, err = envPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	workdirPrompt := promptui.Prompt{
		Label:   "Working directory inside the container (optional)",
		Default: "",
	}
	profile.Workdir, err = workdirPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	runnerPrompt := promptui.Prompt{
		Label:   "Runner command",
		Default: "uv",
	}
	profile.Runner, err = runnerPrompt.Run()
	if err != nil {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	extrasPrompt := promptui.Prompt{
		Label:   "Runner extras (optional, comma separated)",
		Default: "",
	}
	profile.Extras, err = extrasPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	targetPrompt := promptui.Prompt{
		Label: "Command to run in the container",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("command cannot be empty")
			}
			return nil
		},
	}
	profile.Target, err = targetPrompt.Run()
	if err != nil {
		return nil, err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	return profile, nil
}

// promptService asks for the compose service. When the compose file already
// exists and parses, the declared services are offered as a selection.
func (c *InitCommand) promptService(file string) (string, error) {
	if f, err := compose.Load(file); err == nil {
		names := f.ServiceNames()
		servicePrompt := promptui.Select{
			Label: "Service",
			Items: names,
		}
		_, service, err := servicePrompt.Run()
		if err != nil {
			return "", err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
		}
		return service, nil
	}

	servicePrompt := promptui.Prompt{
		Label:   "Service name",
		Default: "devcontainer",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("service name cannot be empty")
			}
			return nil
		},
	}
	service, err := servicePrompt.Run()
	if err != nil {
		return "", err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	return service, nil
}

// saveConfig writes the configuration to an INI file
func (c *InitCommand) saveConfig(conf *initConfig) error {
	dir := filepath.Dir(c.Output)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	cfg := ini.Empty(ini.LoadOptions{AllowShadows: true})

	global := cfg.Section("global")
	if conf.Global.LogLevel != "" {
		global.Key("log-level").SetValue(conf.Global.LogLevel)
	}
	if conf.Global.SaveFolder != "" {
		global.Key("save-folder").SetValue(conf.Global.SaveFolder)
	}

	for _, profile := range conf.Profiles {
		section := cfg.Section(fmt.Sprintf("profile \"%s\"", profile.Name))
		profile.ToINI(section)
	}

	if err := cfg.SaveTo(c.Output); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// postCreationActions offers validation after the file is written
func (c *InitCommand) postCreationActions() error {
	validatePrompt := promptui.Prompt{
		Label:     "Validate configuration now",
		IsConfirm: true,
		Default:   "Y",
	}
	if _, err := validatePrompt.Run(); err != nil {
		return nil //nolint:nilerr // declining validation is normal flow
	}

	conf, err := BuildFromFile(c.Output, c.Logger)
	if err != nil {
		c.Logger.Errorf("❌ Configuration validation failed: %v", err)
		return err
	}
	if err := conf.ValidateProfiles(); err != nil {
		c.Logger.Errorf("❌ Configuration validation failed: %v", err)
		return err
	}
	c.Logger.Noticef("✅ Configuration is valid!")

	showPrompt := promptui.Prompt{
		Label:     "Show generated configuration",
		IsConfirm: true,
		Default:   "n",
	}
	if _, err := showPrompt.Run(); err == nil {
		content, _ := os.ReadFile(c.Output)
		c.Logger.Noticef("\n%s", string(content))
	}

	return nil
}

// printNextSteps displays helpful next steps
func (c *InitCommand) printNextSteps() {
	c.Logger.Noticef("📋 Setup complete! Next steps:")
	c.Logger.Noticef("  → Review configuration: cat %s", c.Output)
	c.Logger.Noticef("  → Check the environment: devc doctor --config=%s", c.Output)
	c.Logger.Noticef("  → Preview the command: devc show --config=%s", c.Output)
	c.Logger.Noticef("  → Launch: devc run --config=%s", c.Output)
}