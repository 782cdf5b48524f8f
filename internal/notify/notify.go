// Package notify delivers otpdash events outside the terminal: desktop
// notifications, webhooks, shell commands and log files.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"
)

// EventType names an otpdash event.
type EventType string

const (
	EventFetchFailed  EventType = "code.fetch_failed" // a code refresh failed
	EventCopied       EventType = "clipboard.copied"
	EventCopyFailed   EventType = "clipboard.failed"
	EventEntryCreated EventType = "entry.created"
	EventEntryUpdated EventType = "entry.updated"
	EventEntryRemoved EventType = "entry.removed"
)

// Event is one notification.
type Event struct {
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Entry     string            `json:"entry,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// Config holds notification configuration
type Config struct {
	Enabled bool     `toml:"enabled"`
	Events  []string `toml:"events"` // Which events to notify on

	Desktop DesktopConfig `toml:"desktop"`
	Webhook WebhookConfig `toml:"webhook"`
	Shell   ShellConfig   `toml:"shell"`
	Log     LogConfig     `toml:"log"`
}

// DesktopConfig configures desktop notifications
type DesktopConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
}

// WebhookConfig configures webhook notifications
type WebhookConfig struct {
	Enabled  bool              `toml:"enabled"`
	URL      string            `toml:"url"`
	Template string            `toml:"template"` // Go template for the body
	Method   string            `toml:"method"`   // default POST
	Headers  map[string]string `toml:"headers"`
}

// ShellConfig configures shell command notifications
type ShellConfig struct {
	Enabled  bool   `toml:"enabled"`
	Command  string `toml:"command"`
	PassJSON bool   `toml:"pass_json"` // event as JSON on stdin
}

// LogConfig configures log file notifications
type LogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns the notification settings written by config init.
// Only fetch failures are forwarded; copies are shown in the terminal.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Events:  []string{string(EventFetchFailed)},
		Desktop: DesktopConfig{
			Enabled: false,
			Title:   "otpdash",
		},
		Webhook: WebhookConfig{
			Method:   http.MethodPost,
			Template: `{"text": "otpdash: {{.Type}} - {{.Message}}"}`,
		},
		Shell: ShellConfig{
			PassJSON: true,
		},
		Log: LogConfig{
			Path: "~/.config/otpdash/notifications.log",
		},
	}
}

// Notifier sends events through the configured channels.
type Notifier struct {
	config     Config
	enabledSet map[EventType]bool
	mu         sync.Mutex
	httpClient *http.Client
}

// New creates a Notifier for cfg.
func New(cfg Config) *Notifier {
	n := &Notifier{
		config:     cfg,
		enabledSet: make(map[EventType]bool),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, e := range cfg.Events {
		n.enabledSet[EventType(e)] = true
	}
	return n
}

// Enabled reports whether events of type t are delivered at all.
func (n *Notifier) Enabled(t EventType) bool {
	return n.config.Enabled && n.enabledSet[t]
}

// Notify sends event on every enabled channel in parallel and joins their
// errors.
func (n *Notifier) Notify(ctx context.Context, event Event) error {
	if !n.Enabled(event.Type) {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	send := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				errMu.Unlock()
			}
		}()
	}

	if n.config.Desktop.Enabled {
		send("desktop", func() error { return n.sendDesktop(ctx, event) })
	}
	if n.config.Webhook.Enabled && n.config.Webhook.URL != "" {
		send("webhook", func() error { return n.sendWebhook(ctx, event) })
	}
	if n.config.Shell.Enabled && n.config.Shell.Command != "" {
		send("shell", func() error { return n.sendShell(ctx, event) })
	}
	if n.config.Log.Enabled && n.config.Log.Path != "" {
		send("log", func() error { return n.sendLog(event) })
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (n *Notifier) sendDesktop(ctx context.Context, event Event) error {
	title := n.config.Desktop.Title
	if title == "" {
		title = "otpdash"
	}
	if event.Entry != "" {
		title = fmt.Sprintf("%s [%s]", title, event.Entry)
	}
	message := event.Message
	if message == "" {
		message = string(event.Type)
	}

	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return fmt.Errorf("notify-send not found")
		}
		return exec.CommandContext(ctx, "notify-send", title, message).Run()
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}
}

func (n *Notifier) sendWebhook(ctx context.Context, event Event) error {
	tmplStr := n.config.Webhook.Template
	if tmplStr == "" {
		tmplStr = `{"event":"{{.Type}}","message":"{{.Message}}","entry":"{{.Entry}}","timestamp":"{{.Timestamp}}"}`
	}
	tmpl, err := template.New("webhook").Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}

	method := n.config.Webhook.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, n.config.Webhook.URL, &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.config.Webhook.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

func (n *Notifier) sendShell(ctx context.Context, event Event) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", expandHome(n.config.Shell.Command))
	if n.config.Shell.PassJSON {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshaling event: %w", err)
		}
		cmd.Stdin = bytes.NewReader(data)
	}
	cmd.Env = append(os.Environ(),
		"OTPDASH_EVENT_TYPE="+string(event.Type),
		"OTPDASH_EVENT_MESSAGE="+event.Message,
		"OTPDASH_EVENT_ENTRY="+event.Entry,
	)
	return cmd.Run()
}

func (n *Notifier) sendLog(event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	path := expandHome(n.config.Log.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s: %s", event.Timestamp.Format(time.RFC3339), event.Type, event.Message)
	if event.Entry != "" {
		line = fmt.Sprintf("[%s] [%s] %s: %s", event.Timestamp.Format(time.RFC3339), event.Entry, event.Type, event.Message)
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

// NewFetchFailedEvent builds the event for a failed refresh of entry.
func NewFetchFailedEvent(entry, message string) Event {
	return Event{Type: EventFetchFailed, Entry: entry, Message: message}
}

// NewEntryRemovedEvent builds the event for a deleted entry.
func NewEntryRemovedEvent(entry string) Event {
	return Event{
		Type:    EventEntryRemoved,
		Entry:   entry,
		Message: fmt.Sprintf("Entry %s removed", entry),
	}
}

// NewEntryEvent builds a created or updated event for entry.
func NewEntryEvent(t EventType, entry string) Event {
	verb := "updated"
	if t == EventEntryCreated {
		verb = "created"
	}
	return Event{Type: t, Entry: entry, Message: fmt.Sprintf("Entry %s %s", entry, verb)}
}
