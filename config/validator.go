package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s': %s (value: %v)",
		e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

var (
	profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	envNamePattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validator accumulates configuration validation errors
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field string, value any, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// ValidateRequired validates that a field is not empty
func (v *Validator) ValidateRequired(field string, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, value, "is required")
	}
}

// ValidateProfileName validates a profile section name
func (v *Validator) ValidateProfileName(field string, value string) {
	if !profileNamePattern.MatchString(value) {
		v.AddError(field, value, "must be alphanumeric with hyphens, underscores or dots")
	}
}

// ValidateMountSpec validates a host:container bind mount spec
func (v *Validator) ValidateMountSpec(field string, value string) {
	host, container, ok := strings.Cut(value, ":")
	if !ok || host == "" || container == "" {
		v.AddError(field, value, "must be in host:container form")
		return
	}
	if !strings.HasPrefix(container, "/") {
		v.AddError(field, value, "container path must be absolute")
	}
}

// ValidateEnvVar validates a KEY=value environment entry
func (v *Validator) ValidateEnvVar(field string, value string) {
	name, _, ok := strings.Cut(value, "=")
	if !ok {
		v.AddError(field, value, "must be in KEY=value form")
		return
	}
	if !envNamePattern.MatchString(name) {
		v.AddError(field, value, "variable name must be a valid identifier")
	}
}
