package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Dicklesworthstone/otpdash/internal/watcher"
)

// Watch reloads the config at path (DefaultPath when empty) whenever it
// changes and passes the result to onChange. Parse errors go to onError and
// the previous config stays in effect. It returns a function that stops
// watching.
func Watch(path string, onChange func(*Config), onError func(error)) (func(), error) {
	if path == "" {
		path = DefaultPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	report := func(err error) {
		if onError != nil {
			onError(err)
		}
	}

	w, err := watcher.New(func(events []watcher.Event) {
		for _, e := range events {
			if e.Op&watcher.Removed != 0 && e.Op&watcher.Changed == 0 {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				report(fmt.Errorf("reloading config: %w", err))
				return
			}
			if onChange != nil {
				onChange(cfg)
			}
			return
		}
	}, watcher.WithDebounce(500*time.Millisecond), watcher.WithErrorHandler(report))
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config path %s: %w", abs, err)
	}
	return func() { w.Close() }, nil
}
