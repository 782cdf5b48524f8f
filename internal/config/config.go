// Package config loads the otpdash configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/util"
)

// Environment variables that override the file.
const (
	EnvConfig = "OTPDASH_CONFIG"
	EnvServer = "OTPDASH_SERVER"
	EnvTheme  = "OTPDASH_THEME"
	EnvLang   = "OTPDASH_LANG"
)

// DefaultServerURL is used when neither the file nor the environment names
// a server.
const DefaultServerURL = "http://127.0.0.1:5000"

// Config is the whole configuration file.
type Config struct {
	Server        ServerConfig  `toml:"server"`
	Refresh       RefreshConfig `toml:"refresh"`
	UI            UIConfig      `toml:"ui"`
	Notifications notify.Config `toml:"notifications"`
	Log           LogConfig     `toml:"log"`
}

// ServerConfig describes the code server.
type ServerConfig struct {
	URL           string            `toml:"url"`
	Timeout       util.Duration     `toml:"timeout"`
	Headers       map[string]string `toml:"headers"`
	WindowSeconds int               `toml:"window_seconds"` // used when the server omits interval
}

// RefreshConfig controls the refresh schedule.
type RefreshConfig struct {
	Fallback util.Duration `toml:"fallback"` // retry delay after a failed fetch; 0 means one window
	Redraw   util.Duration `toml:"redraw"`   // local countdown repaint interval
	Mode     string        `toml:"mode"`     // "per-entry" or "batch"
}

// UIConfig controls presentation.
type UIConfig struct {
	Theme       string `toml:"theme"` // auto, mocha, macchiato, latte, plain
	Lang        string `toml:"lang"`
	MaskSecrets bool   `toml:"mask_secrets"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Path  string `toml:"path"` // empty disables logging
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:           DefaultServerURL,
			Timeout:       util.Duration(10 * time.Second),
			WindowSeconds: 30,
		},
		Refresh: RefreshConfig{
			Redraw: util.Duration(time.Second),
			Mode:   "per-entry",
		},
		UI: UIConfig{
			Theme:       "auto",
			Lang:        "en",
			MaskSecrets: true,
		},
		Notifications: notify.DefaultConfig(),
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path. OTPDASH_CONFIG wins,
// then $XDG_CONFIG_HOME, then ~/.config.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return ExpandHome(p)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "otpdash", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "otpdash", "config.toml")
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Load reads the config at path (DefaultPath when empty), fills missing
// values from Default and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadOrDefault is Load, but a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

// Parse decodes TOML data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// Events decoded from the file replace the default list.
	cfg.Notifications.Events = nil

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !md.IsDefined("notifications", "events") {
		cfg.Notifications.Events = notify.DefaultConfig().Events
	}

	if cfg.Server.WindowSeconds <= 0 {
		cfg.Server.WindowSeconds = 30
	}
	if cfg.Refresh.Redraw <= 0 {
		cfg.Refresh.Redraw = util.Duration(time.Second)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv(EnvLang); v != "" {
		c.UI.Lang = v
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Refresh.Mode {
	case "", "per-entry", "entry", "batch", "list":
	default:
		return fmt.Errorf("refresh.mode: unknown mode %q (want per-entry or batch)", c.Refresh.Mode)
	}
	if c.Refresh.Fallback < 0 {
		return fmt.Errorf("refresh.fallback must not be negative")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	return nil
}

// Fallback returns the retry delay after a failed fetch.
func (c *Config) Fallback() time.Duration {
	if c.Refresh.Fallback > 0 {
		return c.Refresh.Fallback.Std()
	}
	return time.Duration(c.Server.WindowSeconds) * time.Second
}

// CreateDefault writes the default config to DefaultPath.
func CreateDefault() (string, error) {
	path := DefaultPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(Default(), f); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes cfg as a commented TOML file.
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# otpdash configuration")
	fmt.Fprintln(w, "# Environment overrides: OTPDASH_SERVER, OTPDASH_THEME, OTPDASH_LANG")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[server]")
	fmt.Fprintf(w, "url = %q\n", cfg.Server.URL)
	fmt.Fprintf(w, "timeout = %q\n", cfg.Server.Timeout.String())
	fmt.Fprintln(w, "# Code window used when the server does not report one")
	fmt.Fprintf(w, "window_seconds = %d\n", cfg.Server.WindowSeconds)
	if len(cfg.Server.Headers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "[server.headers]")
		keys := make([]string, 0, len(cfg.Server.Headers))
		for k := range cfg.Server.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%q = %q\n", k, cfg.Server.Headers[k])
		}
	} else {
		fmt.Fprintln(w, "# [server.headers]")
		fmt.Fprintln(w, "# Authorization = \"Bearer ...\"")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[refresh]")
	fmt.Fprintln(w, "# per-entry: one request per entry at its own boundary")
	fmt.Fprintln(w, "# batch: one request for the whole list at the soonest boundary")
	fmt.Fprintf(w, "mode = %q\n", cfg.Refresh.Mode)
	if cfg.Refresh.Fallback > 0 {
		fmt.Fprintf(w, "fallback = %q\n", cfg.Refresh.Fallback.String())
	} else {
		fmt.Fprintln(w, "# Retry delay after a failed fetch (default: one window)")
		fmt.Fprintln(w, "# fallback = \"30s\"")
	}
	fmt.Fprintf(w, "redraw = %q\n", cfg.Refresh.Redraw.String())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[ui]")
	fmt.Fprintln(w, "# auto, mocha, macchiato, latte, plain")
	fmt.Fprintf(w, "theme = %q\n", cfg.UI.Theme)
	fmt.Fprintf(w, "lang = %q\n", cfg.UI.Lang)
	fmt.Fprintf(w, "mask_secrets = %t\n", cfg.UI.MaskSecrets)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[log]")
	fmt.Fprintln(w, "# Empty path disables the diagnostic log")
	fmt.Fprintf(w, "path = %q\n", cfg.Log.Path)
	fmt.Fprintf(w, "level = %q\n", cfg.Log.Level)
	fmt.Fprintln(w)

	n := cfg.Notifications
	fmt.Fprintln(w, "[notifications]")
	fmt.Fprintf(w, "enabled = %t\n", n.Enabled)
	fmt.Fprintln(w, "# code.fetch_failed, clipboard.copied, clipboard.failed, entry.created, entry.updated, entry.removed")
	quoted := make([]string, len(n.Events))
	for i, e := range n.Events {
		quoted[i] = fmt.Sprintf("%q", e)
	}
	fmt.Fprintf(w, "events = [%s]\n", strings.Join(quoted, ", "))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notifications.desktop]")
	fmt.Fprintf(w, "enabled = %t\n", n.Desktop.Enabled)
	fmt.Fprintf(w, "title = %q\n", n.Desktop.Title)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notifications.webhook]")
	fmt.Fprintf(w, "enabled = %t\n", n.Webhook.Enabled)
	fmt.Fprintf(w, "url = %q\n", n.Webhook.URL)
	fmt.Fprintf(w, "method = %q\n", n.Webhook.Method)
	fmt.Fprintf(w, "template = %q\n", n.Webhook.Template)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notifications.shell]")
	fmt.Fprintf(w, "enabled = %t\n", n.Shell.Enabled)
	fmt.Fprintf(w, "command = %q\n", n.Shell.Command)
	fmt.Fprintf(w, "pass_json = %t\n", n.Shell.PassJSON)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[notifications.log]")
	fmt.Fprintf(w, "enabled = %t\n", n.Log.Enabled)
	fmt.Fprintf(w, "path = %q\n", n.Log.Path)

	return nil
}
