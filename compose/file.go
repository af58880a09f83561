// Package compose reads the subset of a compose file the launcher cares
// about: which services exist, so a bad service name fails before docker is
// ever invoked.
package compose

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoServices = errors.New("compose file declares no services")
)

// Service is the per-service slice of a compose file.
type Service struct {
	Image       string   `yaml:"image,omitempty"`
	Build       any      `yaml:"build,omitempty"`
	Volumes     []string `yaml:"volumes,omitempty"`
	Environment []string `yaml:"environment,omitempty"`
}

// File models a compose file's service map.
type File struct {
	Services map[string]Service `yaml:"services"`
}

// Load parses the compose file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the profile config
	if err != nil {
		return nil, fmt.Errorf("read compose file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes compose file content.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, ErrNoServices
	}
	return &f, nil
}

// HasService reports whether the compose file declares the named service.
func (f *File) HasService(name string) bool {
	_, ok := f.Services[name]
	return ok
}

// ServiceNames returns the declared service names, sorted.
func (f *File) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
