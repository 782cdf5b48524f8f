package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// collect returns a handler that forwards events on a channel.
func collect() (Handler, chan []Event) {
	ch := make(chan []Event, 16)
	return func(events []Event) { ch <- events }, ch
}

func waitFor(t *testing.T, ch chan []Event, path string, op Op) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case events := <-ch:
			for _, e := range events {
				if e.Path == path && e.Op&op != 0 {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no %s event for %s", op, path)
		}
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(target, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, ch := collect()
	w, err := New(h, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer w.Close()

	if err := w.Add(target); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := os.WriteFile(target, []byte("a = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, target, Changed)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	other := filepath.Join(dir, "other.txt")

	h, ch := collect()
	w, err := New(h, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(target); err != nil {
		t.Fatalf("Add() of a missing file should work: %v", err)
	}

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case events := <-ch:
		t.Fatalf("unexpected events: %v", events)
	case <-time.After(150 * time.Millisecond):
	}

	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, target, Changed)
}

func TestWatcherPollingFallback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(target, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, ch := collect()
	w, err := New(h, WithPolling(10*time.Millisecond), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(target); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(target, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, target, Changed)

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, target, Removed)
}

func TestWatcherAddAfterClose(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
	if err := w.Add(filepath.Join(t.TempDir(), "x")); err != ErrClosed {
		t.Errorf("Add() after Close = %v, want ErrClosed", err)
	}
}

func TestWatcherAddIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a")
	w, err := New(nil, WithPolling(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	for i := 0; i < 3; i++ {
		if err := w.Add(target); err != nil {
			t.Fatal(err)
		}
	}
	if files := w.Files(); len(files) != 1 {
		t.Errorf("Files() = %v, want one", files)
	}
}

func TestOpString(t *testing.T) {
	if Changed.String() != "changed" || Removed.String() != "removed" || Op(0).String() != "none" {
		t.Error("unexpected Op strings")
	}
}
