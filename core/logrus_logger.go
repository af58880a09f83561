package core

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter exposes a logrus.Logger through the Logger interface. Caller
// frames are captured here so log lines point at the call site instead of
// the adapter.
type LogrusAdapter struct {
	*logrus.Logger
	mu sync.Mutex // serializes the ReportCaller toggle in emit
}

var _ Logger = (*LogrusAdapter)(nil)

// Criticalf logs at error level; the launcher terminates through exit codes,
// never through a fatal log call.
func (l *LogrusAdapter) Criticalf(format string, args ...any) {
	l.emit(logrus.ErrorLevel, format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...any) {
	l.emit(logrus.ErrorLevel, format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...any) {
	l.emit(logrus.WarnLevel, format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...any) {
	l.emit(logrus.InfoLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...any) {
	l.emit(logrus.DebugLevel, format, args...)
}

func (l *LogrusAdapter) emit(level logrus.Level, format string, args ...any) {
	entry := logrus.NewEntry(l.Logger)
	if pc, file, line, ok := runtime.Caller(2); ok {
		entry.Caller = &runtime.Frame{PC: pc, File: file, Line: line, Function: runtime.FuncForPC(pc).Name()}
	}

	// While ReportCaller is set, logrus overwrites entry.Caller with its own
	// lookup, which would point at this adapter. Switch it off for the write.
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.Logger.ReportCaller
	l.Logger.ReportCaller = false
	defer func() { l.Logger.ReportCaller = prev }()

	entry.Logf(level, format, args...)
}
