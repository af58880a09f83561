package core

import (
	"strings"
)

// DefaultShell is the shell used to run the inner command inside the service
// container.
const DefaultShell = "/bin/sh"

// shellSafe matches the characters that may appear unquoted in a POSIX shell
// word. Anything else gets single-quoted.
func shellSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-./=:@%+,", r):
		default:
			return false
		}
	}
	return true
}

// QuoteWord returns s as a single POSIX shell word, single-quoting it only
// when needed so the canonical invocation stays byte-identical.
func QuoteWord(s string) string {
	if shellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// InnerCommand renders the shell command executed inside the container:
// environment exports first, then the working directory change, then the
// command itself, joined with "; ".
func InnerCommand(env []string, workdir, command string) string {
	parts := make([]string, 0, len(env)+2)
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		parts = append(parts, "export "+k+"="+QuoteWord(v))
	}
	if workdir != "" {
		parts = append(parts, "cd "+QuoteWord(workdir))
	}
	if command != "" {
		parts = append(parts, command)
	}
	return strings.Join(parts, "; ")
}

// RunnerCommand renders a package-runner invocation with optional dependency
// groups enabled, e.g. "uv run --extra test --extra chat pytest tests/experimental".
func RunnerCommand(runner string, extras []string, command string) string {
	var b strings.Builder
	b.WriteString(runner)
	b.WriteString(" run")
	for _, extra := range extras {
		b.WriteString(" --extra ")
		b.WriteString(extra)
	}
	if command != "" {
		b.WriteString(" ")
		b.WriteString(command)
	}
	return b.String()
}
