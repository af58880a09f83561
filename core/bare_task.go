package core

import (
	"sync"
)

// BareTask carries the fields and bookkeeping shared by every task type.
type BareTask struct {
	Name    string
	Command string `mapstructure:"command"`

	middlewareContainer
	running int32
	lock    sync.Mutex
	history []*Execution
	lastRun *Execution
}

func (t *BareTask) GetName() string {
	return t.Name
}

func (t *BareTask) GetCommand() string {
	return t.Command
}

func (t *BareTask) NotifyStart() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.running++
}

func (t *BareTask) NotifyStop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.running--
}

// Running returns the number of in-flight executions of the task.
func (t *BareTask) Running() int32 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.running
}

// SetLastRun stores the last executed run for the task.
func (t *BareTask) SetLastRun(e *Execution) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.lastRun = e
	t.history = append(t.history, e)
}

// GetLastRun returns the last execution of the task, if any.
func (t *BareTask) GetLastRun() *Execution {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.lastRun
}

// GetHistory returns a copy of the task's execution history.
func (t *BareTask) GetHistory() []*Execution {
	t.lock.Lock()
	defer t.lock.Unlock()
	hist := make([]*Execution, len(t.history))
	copy(hist, t.history)
	return hist
}
