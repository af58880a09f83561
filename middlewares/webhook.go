package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sotopia-lab/devc/core"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookConfig configuration for the Webhook middleware
type WebhookConfig struct {
	// WebhookURL receives a POSTed JSON report after each run. Leave empty to
	// disable notifications.
	WebhookURL string `mapstructure:"webhook-url"`
	// WebhookOnlyOnError when true, only failed runs are reported.
	WebhookOnlyOnError *bool `mapstructure:"webhook-only-on-error"`
	// WebhookTimeout bounds the notification request. Defaults to 10s.
	WebhookTimeout time.Duration `mapstructure:"webhook-timeout"`
}

// Validate checks the webhook configuration
func (c *WebhookConfig) Validate() error {
	if c.WebhookURL == "" {
		return nil
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q", c.WebhookURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url must use http or https, got %q", u.Scheme)
	}
	return nil
}

// NewWebhook returns a Webhook middleware if the given configuration is not empty
func NewWebhook(c *WebhookConfig) (core.Middleware, error) {
	if IsEmpty(c) || c.WebhookURL == "" {
		return nil, nil //nolint:nilnil // nil config means no middleware needed, not an error
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	timeout := c.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &Webhook{
		WebhookConfig: *c,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

// Webhook POSTs a JSON run report to a configured URL after each run
type Webhook struct {
	WebhookConfig
	client *http.Client
}

// webhookPayload is the JSON body sent to the webhook URL
type webhookPayload struct {
	Task     string    `json:"task"`
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Failed   bool      `json:"failed"`
	Skipped  bool      `json:"skipped"`
	ExitCode int       `json:"exit_code"`
	Error    string    `json:"error,omitempty"`
	Stderr   string    `json:"stderr,omitempty"`
}

// ContinueOnStop returns true because we want to report final run status
func (m *Webhook) ContinueOnStop() bool {
	return true
}

// Run executes the webhook notification after the run finishes
func (m *Webhook) Run(ctx *core.Context) error {
	err := ctx.Next()
	ctx.Stop(err)

	if !ctx.Execution.Failed && boolVal(m.WebhookOnlyOnError) {
		return err
	}

	if sendErr := m.send(ctx); sendErr != nil {
		ctx.Logger.Errorf("Webhook error: %v", sendErr)
	}

	return err
}

func (m *Webhook) send(ctx *core.Context) error {
	e := ctx.Execution
	payload := webhookPayload{
		Task:     ctx.Task.GetName(),
		RunID:    e.ID,
		Started:  e.Date,
		Duration: e.Duration.String(),
		Failed:   e.Failed,
		Skipped:  e.Skipped,
		ExitCode: e.ExitCode,
	}
	if e.Error != nil {
		payload.Error = e.Error.Error()
		payload.Stderr = e.GetStderr()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// The run context may already be cancelled (SIGINT); the notification
	// still has to go out, bounded by the client timeout alone.
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, m.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %q: %w", m.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
