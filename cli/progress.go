package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/sotopia-lab/devc/core"
)

// ProgressIndicator shows a spinner while a single long operation runs, such
// as a setup command or an image pull triggered by compose. When stdout is
// not a terminal it degrades to plain log lines.
type ProgressIndicator struct {
	logger     core.Logger
	writer     io.Writer
	message    string
	done       chan struct{}
	mu         sync.Mutex
	isTerminal bool
	ticker     *time.Ticker
	started    bool
}

// NewProgressIndicator creates an indicator for the given message.
func NewProgressIndicator(logger core.Logger, message string) *ProgressIndicator {
	writer := os.Stdout
	return &ProgressIndicator{
		logger:     logger,
		writer:     writer,
		message:    message,
		done:       make(chan struct{}),
		isTerminal: term.IsTerminal(int(writer.Fd())),
	}
}

// Start begins displaying the indicator.
func (p *ProgressIndicator) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	if !p.isTerminal {
		p.logger.Noticef("%s...", p.message)
		return
	}

	p.ticker = time.NewTicker(100 * time.Millisecond)
	go p.animate()
}

// Stop halts the indicator and prints the result line.
func (p *ProgressIndicator) Stop(success bool, resultMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.started = false

	select {
	case <-p.done:
	default:
		close(p.done)
	}

	if p.ticker != nil {
		p.ticker.Stop()
	}

	if !p.isTerminal {
		if success {
			p.logger.Noticef("✅ %s", resultMsg)
		} else {
			p.logger.Errorf("❌ %s", resultMsg)
		}
		return
	}

	fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", len(p.message)+10))
	if success {
		fmt.Fprintf(p.writer, "✅ %s\n", resultMsg)
	} else {
		fmt.Fprintf(p.writer, "❌ %s\n", resultMsg)
	}
}

// Update swaps the displayed message, for multi-command setup sequences.
func (p *ProgressIndicator) Update(newMessage string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isTerminal {
		p.logger.Noticef("%s...", newMessage)
		p.message = newMessage
		return
	}

	fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", len(p.message)+10))
	p.message = newMessage
}

func (p *ProgressIndicator) animate() {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0

	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	tickerC := p.ticker.C
	p.mu.Unlock()

	for {
		select {
		case <-p.done:
			return
		case <-tickerC:
			p.mu.Lock()
			fmt.Fprintf(p.writer, "\r%s %s", frames[i], p.message)
			p.mu.Unlock()
			i = (i + 1) % len(frames)
		}
	}
}

// ProgressReporter reports progress over a fixed number of steps, used by the
// doctor command.
type ProgressReporter struct {
	logger      core.Logger
	totalSteps  int
	currentStep int
	mu          sync.Mutex
	isTerminal  bool
}

// NewProgressReporter creates a reporter for totalSteps steps.
func NewProgressReporter(logger core.Logger, totalSteps int) *ProgressReporter {
	return &ProgressReporter{
		logger:     logger,
		totalSteps: totalSteps,
		isTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Step reports progress for a single step.
func (pr *ProgressReporter) Step(stepNum int, message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.currentStep = stepNum

	if pr.totalSteps == 0 {
		return
	}

	if pr.isTerminal {
		progress := float64(stepNum) / float64(pr.totalSteps) * 100
		bar := pr.renderProgressBar(progress)
		fmt.Fprintf(os.Stdout, "\r[%d/%d] %s %s", stepNum, pr.totalSteps, bar, message)
		if stepNum == pr.totalSteps {
			fmt.Fprintln(os.Stdout)
		}
	} else {
		pr.logger.Noticef("[%d/%d] %s", stepNum, pr.totalSteps, message)
	}
}

func (pr *ProgressReporter) renderProgressBar(percent float64) string {
	barWidth := 20
	filled := int(percent / 100.0 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %.0f%%", bar, percent)
}

// Complete marks all steps done.
func (pr *ProgressReporter) Complete(message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.isTerminal {
		fmt.Fprintln(os.Stdout)
	}
	pr.logger.Noticef("✅ %s", message)
}
