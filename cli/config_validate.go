package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sotopia-lab/devc/config"
)

// ErrValidationFailed is returned when profile validation fails.
var ErrValidationFailed = errors.New("validation failed")

// configValidator is the package-level validator instance
var configValidator *validator.Validate

var extraNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

func init() {
	configValidator = validator.New()

	_ = configValidator.RegisterValidation("extraname", validateExtraName)
}

// validateExtraName validates a package-runner extra (optional dependency
// group) name.
func validateExtraName(fl validator.FieldLevel) bool {
	return extraNamePattern.MatchString(fl.Field().String())
}

// ValidateProfile validates a single profile: structural checks via struct
// tags, then the field-level mount/env checks.
func ValidateProfile(name string, p *ProfileConfig) error {
	v := config.NewValidator()
	v.ValidateProfileName("profile", name)
	v.ValidateRequired(name+".compose-file", p.File)
	v.ValidateRequired(name+".service", p.Service)
	for _, m := range p.Mounts {
		v.ValidateMountSpec(name+".mount", m)
	}
	for _, e := range p.Env {
		v.ValidateEnvVar(name+".env", e)
	}
	if p.Command == "" && p.Target == "" {
		v.AddError(name+".command", "", "profile needs either 'command' or 'target'")
	}
	if v.HasErrors() {
		return fmt.Errorf("%w: %w", ErrValidationFailed, v.Errors())
	}

	if err := configValidator.Struct(p); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}

		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatValidationError(e))
		}
		return fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(messages, "\n  "))
	}
	return nil
}

// ValidateProfiles validates every profile in the config.
func (c *Config) ValidateProfiles() error {
	for name, p := range c.Profiles {
		if err := ValidateProfile(name, p); err != nil {
			return err
		}
	}
	return nil
}

// formatValidationError formats a single validation error for display
func formatValidationError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: required field is empty", field)
	case "alphanum":
		return fmt.Sprintf("%s: must be alphanumeric (value: %v)", field, e.Value())
	case "extraname":
		return fmt.Sprintf("%s: invalid extra name %q", field, e.Value())
	default:
		return fmt.Sprintf("%s: failed %q validation (value: %v)", field, e.Tag(), e.Value())
	}
}
