package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	defaults "github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	ini "gopkg.in/ini.v1"

	"github.com/sotopia-lab/devc/core"
	"github.com/sotopia-lab/devc/middlewares"
)

const (
	profilePrefix = "profile"

	// DefaultProfileName is the profile used when none is given. When no
	// config file exists it resolves to the built-in devcontainer profile.
	DefaultProfileName = "experimental"
)

// Config contains the launcher configuration
type Config struct {
	Global struct {
		middlewares.SaveConfig    `mapstructure:",squash"`
		middlewares.ReportConfig  `mapstructure:",squash"`
		middlewares.WebhookConfig `mapstructure:",squash"`
		LogLevel                  string `mapstructure:"log-level"`
		EnvFile                   string `mapstructure:"env-file"`
	}
	Profiles map[string]*ProfileConfig

	configPath string
	logger     core.Logger
}

// ProfileConfig is one named launch target: a compose service plus the test
// command to run inside it.
type ProfileConfig struct {
	core.ComposeTask          `mapstructure:",squash"`
	middlewares.SaveConfig    `mapstructure:",squash"`
	middlewares.ReportConfig  `mapstructure:",squash"`
	middlewares.WebhookConfig `mapstructure:",squash"`

	// Runner and Extras build the inner test invocation when no raw command
	// is configured: `<runner> run --extra <e>... <target>`.
	Runner string   `default:"uv" mapstructure:"runner" validate:"omitempty,alphanum"`
	Extras []string `mapstructure:"extra" validate:"omitempty,dive,extraname"`
	Target string   `mapstructure:"target"`
	// Setup lists host commands executed before the container launch.
	Setup []string `mapstructure:"setup"`
}

func NewConfig(logger core.Logger) *Config {
	c := &Config{
		Profiles: make(map[string]*ProfileConfig),
		logger:   logger,
	}
	_ = defaults.Set(c)
	return c
}

// BuildFromFile builds the launcher config from an ini file
func BuildFromFile(filename string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, filename)
	if err != nil {
		return nil, err
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, err
	}
	c.configPath = filename
	logger.Debugf("loaded config file %s", filename)
	return c, nil
}

// BuildFromString builds the launcher config from ini content
func BuildFromString(config string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, []byte(config))
	if err != nil {
		return nil, err
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BuildDefault returns the config used when no config file exists: just the
// built-in devcontainer profile.
func BuildDefault(logger core.Logger) *Config {
	c := NewConfig(logger)
	c.Profiles[DefaultProfileName] = DefaultProfile()
	return c
}

// DefaultProfile reproduces the canonical devcontainer test invocation.
func DefaultProfile() *ProfileConfig {
	p := &ProfileConfig{}
	_ = defaults.Set(p)
	p.Name = DefaultProfileName
	p.File = ".devcontainer/docker-compose.yml"
	p.Service = "devcontainer"
	p.User = "root"
	p.Mounts = []string{".:/workspaces/sotopia"}
	p.Env = []string{"UV_PROJECT_ENVIRONMENT=/workspaces/.venv"}
	p.Workdir = "/workspaces/sotopia"
	p.Extras = []string{"test", "chat"}
	p.Target = "pytest tests/experimental"
	return p
}

func parseIni(cfg *ini.File, c *Config) error {
	if sec, err := cfg.GetSection("global"); err == nil {
		if err := mapstructure.WeakDecode(sectionToMap(sec), &c.Global); err != nil {
			return err
		}
	}

	for _, section := range cfg.Sections() {
		name := strings.TrimSpace(section.Name())
		if !strings.HasPrefix(name, profilePrefix+" ") && name != profilePrefix {
			continue
		}
		profileName := parseProfileName(name, profilePrefix)
		if profileName == "" {
			return ErrProfileNameRequired
		}

		profile := &ProfileConfig{}
		_ = defaults.Set(profile)
		if err := mapstructure.WeakDecode(sectionToMap(section), profile); err != nil {
			return err
		}
		profile.Name = profileName
		c.Profiles[profileName] = profile
	}
	return nil
}

func parseProfileName(section, prefix string) string {
	s := strings.TrimPrefix(section, prefix)
	s = strings.TrimSpace(s)
	return strings.Trim(s, "\"")
}

func sectionToMap(section *ini.Section) map[string]interface{} {
	m := make(map[string]interface{})
	for _, key := range section.Keys() {
		vals := key.ValueWithShadows()
		if len(vals) > 1 {
			cp := make([]string, len(vals))
			copy(cp, vals)
			m[key.Name()] = cp
		} else if len(vals) == 1 {
			m[key.Name()] = vals[0]
		} else {
			m[key.Name()] = ""
		}
	}
	return m
}

// Profile returns the named profile, falling back to the built-in default
// when the name is the default and no config file declared it.
func (c *Config) Profile(name string) (*ProfileConfig, error) {
	if name == "" {
		name = DefaultProfileName
	}
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if name == DefaultProfileName && len(c.Profiles) == 0 {
		return DefaultProfile(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// ProfileNames returns the declared profile names.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	return names
}

// BuildTask finalizes a profile into a runnable compose task: resolves the
// inner command, loads the env file and attaches the middleware chain.
func (c *Config) BuildTask(p *ProfileConfig) (*core.ComposeTask, error) {
	task := &p.ComposeTask
	if task.Command == "" {
		if p.Target == "" {
			return nil, fmt.Errorf("profile %q: %w", p.Name, core.ErrEmptyCommand)
		}
		task.Command = core.RunnerCommand(p.Runner, p.Extras, p.Target)
	}

	env, err := c.loadEnvFile()
	if err != nil {
		return nil, err
	}
	task.Env = append(env, task.Env...)

	if err := c.attachMiddlewares(task, p); err != nil {
		return nil, err
	}
	return task, nil
}

// SetupTasks returns the host commands a profile runs before the launch.
func (c *Config) SetupTasks(p *ProfileConfig) []*core.LocalTask {
	tasks := make([]*core.LocalTask, 0, len(p.Setup))
	for i, command := range p.Setup {
		t := core.NewLocalTask()
		t.Name = fmt.Sprintf("%s-setup-%d", p.Name, i+1)
		t.Command = command
		tasks = append(tasks, t)
	}
	return tasks
}

// attachMiddlewares wires the profile's middlewares, then the global ones.
// The Use dedup keeps the profile-level instance when both are set.
func (c *Config) attachMiddlewares(task *core.ComposeTask, p *ProfileConfig) error {
	task.Use(middlewares.NewSave(&p.SaveConfig))
	task.Use(middlewares.NewReport(&p.ReportConfig))

	wh, err := middlewares.NewWebhook(&p.WebhookConfig)
	if err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	task.Use(wh)

	task.Use(middlewares.NewSave(&c.Global.SaveConfig))
	task.Use(middlewares.NewReport(&c.Global.ReportConfig))
	gwh, err := middlewares.NewWebhook(&c.Global.WebhookConfig)
	if err != nil {
		return err
	}
	task.Use(gwh)
	return nil
}

// loadEnvFile reads the globally configured env file, if any, into K=V pairs
// exported inside the container shell.
func (c *Config) loadEnvFile() ([]string, error) {
	if c.Global.EnvFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(c.Global.EnvFile); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrEnvFileNotFound, c.Global.EnvFile)
	}

	vars, err := godotenv.Read(c.Global.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("read env file %q: %w", c.Global.EnvFile, err)
	}

	// Sorted so repeated builds render identical invocations.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}
