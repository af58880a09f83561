package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PathSanitizer provides path sanitization for the files the launcher writes
// (saved run logs), keeping profile names from escaping the save folder.
type PathSanitizer struct {
	dangerousPatterns []*regexp.Regexp
	replacer          *strings.Replacer
}

// NewPathSanitizer creates a new path sanitizer with security rules
func NewPathSanitizer() *PathSanitizer {
	return &PathSanitizer{
		dangerousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\.\.`),      // Directory traversal
			regexp.MustCompile(`^~`),        // Home directory reference
			regexp.MustCompile(`[<>:"|?*]`), // Invalid filename chars
		},
		replacer: strings.NewReplacer(
			"/", "_",
			"\\", "_",
			"..", "_",
			"~", "_",
			"$", "_",
			"`", "_",
			"|", "_",
			"<", "_",
			">", "_",
			":", "_",
			"\"", "_",
			"?", "_",
			"*", "_",
			"\x00", "_",
		),
	}
}

// SanitizeFilename sanitizes a filename for safe file system operations
func (ps *PathSanitizer) SanitizeFilename(filename string) string {
	safe := ps.replacer.Replace(filename)

	const maxLength = 255
	if len(safe) > maxLength {
		ext := filepath.Ext(safe)
		if len(ext) < maxLength {
			safe = safe[:maxLength-len(ext)] + ext
		} else {
			safe = safe[:maxLength]
		}
	}

	if safe == "" || safe == "." {
		safe = "unnamed"
	}

	return safe
}

// SanitizeProfileName sanitizes a profile name for use in filenames
func (ps *PathSanitizer) SanitizeProfileName(name string) string {
	return ps.SanitizeFilename(name)
}

// ValidateSaveFolder validates that a save folder path is safe to use
func (ps *PathSanitizer) ValidateSaveFolder(folder string) error {
	for _, pattern := range ps.dangerousPatterns {
		if pattern.MatchString(folder) {
			return fmt.Errorf("invalid save folder path: contains dangerous pattern")
		}
	}

	cleanPath := filepath.Clean(folder)
	systemDirs := []string{"/etc", "/bin", "/sbin", "/usr/bin", "/usr/sbin", "/sys", "/proc", "/dev"}
	for _, sysDir := range systemDirs {
		if strings.HasPrefix(cleanPath, sysDir) {
			return fmt.Errorf("invalid save folder: cannot write to system directory %s", sysDir)
		}
	}

	return nil
}

// DefaultSanitizer is the package-level sanitizer instance
var DefaultSanitizer = NewPathSanitizer()

// SanitizeProfileName is a convenience function using the default sanitizer
func SanitizeProfileName(name string) string {
	return DefaultSanitizer.SanitizeProfileName(name)
}
