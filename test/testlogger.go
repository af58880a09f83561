package test

import (
	"fmt"
	"strings"
	"sync"
)

// Logger is a shared test logger implementation for use across test suites.
// It implements the core.Logger interface and records messages for assertions.
type Logger struct {
	mu       sync.RWMutex
	messages []LogEntry
}

// LogEntry represents a single log message with its level
type LogEntry struct {
	Level   string
	Message string
}

// NewTestLogger creates a new test logger
func NewTestLogger() *Logger {
	return &Logger{messages: make([]LogEntry, 0)}
}

func (l *Logger) Criticalf(s string, v ...any) { l.log("CRITICAL", s, v...) }
func (l *Logger) Errorf(s string, v ...any)    { l.log("ERROR", s, v...) }
func (l *Logger) Warningf(s string, v ...any)  { l.log("WARN", s, v...) }
func (l *Logger) Noticef(s string, v ...any)   { l.log("NOTICE", s, v...) }
func (l *Logger) Debugf(s string, v ...any)    { l.log("DEBUG", s, v...) }

func (l *Logger) log(level, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)

	l.mu.Lock()
	l.messages = append(l.messages, LogEntry{Level: level, Message: msg})
	l.mu.Unlock()
}

// GetMessages returns all logged messages
func (l *Logger) GetMessages() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LogEntry, len(l.messages))
	copy(result, l.messages)
	return result
}

// HasMessage checks if a message containing the substring was logged
func (l *Logger) HasMessage(substr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, entry := range l.messages {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

// HasError checks if an error containing the substring was logged
func (l *Logger) HasError(substr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, entry := range l.messages {
		if entry.Level == "ERROR" && strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

// Clear clears all logged messages
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
