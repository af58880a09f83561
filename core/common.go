package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/armon/circbuf"
)

// ErrSkippedExecution pass this error to `Execution.Stop` if you wish to mark
// it as skipped.
var ErrSkippedExecution = errors.New("skipped execution")

const (
	// maximum size of a stdout/stderr stream kept in memory and optionally
	// saved to disk or sent via webhook
	maxStreamSize = 10 * 1024 * 1024
	logPrefix     = "[Task %q (%s)] %s"
)

// Task is a single runnable unit: the containerized test launch itself or a
// host-side setup step.
type Task interface {
	GetName() string
	GetCommand() string
	Middlewares() []Middleware
	Use(...Middleware)
	Run(*Context) error
	NotifyStart()
	NotifyStop()
	GetLastRun() *Execution
}

type Context struct {
	Logger    Logger
	Task      Task
	Execution *Execution
	Ctx       context.Context //nolint:containedctx // intentional: carries the run's cancellation through the middleware chain

	current     int
	executed    bool
	middlewares []Middleware
}

func NewContext(ctx context.Context, logger Logger, t Task, e *Execution) *Context {
	return &Context{
		Logger:      logger,
		Task:        t,
		Execution:   e,
		Ctx:         ctx,
		middlewares: t.Middlewares(),
	}
}

// RunContext returns the context the child process should run under.
func (c *Context) RunContext() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

func (c *Context) Start() {
	c.Execution.Start()
	c.Task.NotifyStart()
}

func (c *Context) Next() error {
	if err := c.doNext(); err != nil || c.executed {
		c.Stop(err)
	}

	return nil
}

func (c *Context) doNext() error {
	for {
		m, end := c.getNext()
		if end {
			break
		}

		if !c.Execution.IsRunning && !m.ContinueOnStop() {
			continue
		}

		if err := m.Run(c); err != nil {
			return fmt.Errorf("middleware run: %w", err)
		}
		return nil
	}

	if !c.Execution.IsRunning {
		return nil
	}

	c.executed = true
	if err := c.Task.Run(c); err != nil {
		return fmt.Errorf("task run: %w", err)
	}
	return nil
}

func (c *Context) getNext() (Middleware, bool) {
	if c.current >= len(c.middlewares) {
		return nil, true
	}

	c.current++
	return c.middlewares[c.current-1], false
}

func (c *Context) Stop(err error) {
	if !c.Execution.IsRunning {
		return
	}

	c.Execution.Stop(err)
	c.Task.NotifyStop()
}

func (c *Context) Log(msg string) {
	args := []any{c.Task.GetName(), c.Execution.ID, msg}

	switch {
	case c.Execution.Failed:
		c.Logger.Errorf(logPrefix, args...)
	case c.Execution.Skipped:
		c.Logger.Warningf(logPrefix, args...)
	default:
		c.Logger.Noticef(logPrefix, args...)
	}
}

func (c *Context) Warn(msg string) {
	args := []any{c.Task.GetName(), c.Execution.ID, msg}
	c.Logger.Warningf(logPrefix, args...)
}

// Execution contains all the information relative to a single task run.
type Execution struct {
	ID        string
	Date      time.Time
	Duration  time.Duration
	IsRunning bool
	Failed    bool
	Skipped   bool
	ExitCode  int
	Error     error

	OutputStream, ErrorStream *circbuf.Buffer `json:"-"`

	// Captured output for persistence after buffer cleanup
	CapturedStdout, CapturedStderr string `json:"-"`
}

// NewExecution returns a new Execution, with a random ID
func NewExecution() (*Execution, error) {
	bufOut, err := DefaultBufferPool.Get()
	if err != nil {
		return nil, fmt.Errorf("get output buffer: %w", err)
	}

	bufErr, err := DefaultBufferPool.Get()
	if err != nil {
		DefaultBufferPool.Put(bufOut)
		return nil, fmt.Errorf("get error buffer: %w", err)
	}

	id, err := randomID()
	if err != nil {
		DefaultBufferPool.Put(bufOut)
		DefaultBufferPool.Put(bufErr)
		return nil, err
	}
	return &Execution{
		ID:           id,
		OutputStream: bufOut,
		ErrorStream:  bufErr,
	}, nil
}

// Start starts the execution, initializes the running flags and the start date.
func (e *Execution) Start() {
	e.IsRunning = true
	e.Date = time.Now()
}

// Stop halts the execution. If a ErrSkippedExecution is given the execution
// is marked as skipped; if any other error is given the execution is marked as
// failed. Also mark the execution as IsRunning false and save the duration time
func (e *Execution) Stop(err error) {
	e.IsRunning = false
	// Guard against zero or unset start time and ensure a positive duration
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Duration = time.Since(e.Date)
	if e.Duration <= 0 {
		e.Duration = time.Nanosecond
	}

	if err != nil && !errors.Is(err, ErrSkippedExecution) {
		e.Error = err
		e.Failed = true
		e.ExitCode = CodeFromError(err)
	} else if errors.Is(err, ErrSkippedExecution) {
		e.Skipped = true
	}
}

// GetStdout returns stdout content, preferring the live buffer if available
func (e *Execution) GetStdout() string {
	if e.OutputStream != nil {
		return e.OutputStream.String()
	}
	return e.CapturedStdout
}

// GetStderr returns stderr content, preferring the live buffer if available
func (e *Execution) GetStderr() string {
	if e.ErrorStream != nil {
		return e.ErrorStream.String()
	}
	return e.CapturedStderr
}

// Cleanup returns execution buffers to the pool for reuse
func (e *Execution) Cleanup() {
	if e.OutputStream != nil {
		e.CapturedStdout = e.OutputStream.String()
		DefaultBufferPool.Put(e.OutputStream)
		e.OutputStream = nil
	}
	if e.ErrorStream != nil {
		e.CapturedStderr = e.ErrorStream.String()
		DefaultBufferPool.Put(e.ErrorStream)
		e.ErrorStream = nil
	}
}

// Middleware can wrap any task execution, allowing to execute code before
// or/and after of each `Task.Run`
type Middleware interface {
	// Run is called instead of the original `Task.Run`, you MUST call to `ctx.Next`
	// inside of the middleware `Run` function otherwise you will break the
	// task workflow.
	Run(*Context) error
	// ContinueOnStop reports whether Run should be called even when the
	// execution has been stopped
	ContinueOnStop() bool
}

type middlewareContainer struct {
	m     map[string]Middleware
	order []string
}

func (c *middlewareContainer) Use(ms ...Middleware) {
	if c.m == nil {
		c.m = make(map[string]Middleware, 0)
	}

	for _, m := range ms {
		if m == nil {
			continue
		}

		t := fmt.Sprintf("%T", m)
		if _, ok := c.m[t]; ok {
			continue
		}

		c.order = append(c.order, t)
		c.m[t] = m
	}
}

func (c *middlewareContainer) Middlewares() []Middleware {
	ms := make([]Middleware, 0, len(c.order))
	for _, t := range c.order {
		ms = append(ms, c.m[t])
	}
	return ms
}

type Logger interface {
	Criticalf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

func randomID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}

	return fmt.Sprintf("%x", b), nil
}
