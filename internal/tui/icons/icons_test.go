package icons

import (
	"reflect"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func assertNoEmptyIcons(t *testing.T, icons IconSet) {
	t.Helper()

	v := reflect.ValueOf(icons)
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			if f.String() == "" {
				t.Fatalf("empty icon field %s", typ.Field(i).Name)
			}
		case reflect.Array:
			for j := 0; j < f.Len(); j++ {
				if f.Index(j).String() == "" {
					t.Fatalf("empty icon field %s[%d]", typ.Field(i).Name, j)
				}
			}
		}
	}
}

func assertSingleCellGlyphs(t *testing.T, icons IconSet) {
	t.Helper()

	single := []string{icons.Pointer, icons.Check, icons.Cross, icons.Dot, icons.Warning, icons.BarFull, icons.BarEmpty}
	single = append(single, icons.Ring[:]...)
	for _, g := range single {
		if w := lipgloss.Width(g); w != 1 {
			t.Fatalf("glyph %q has width %d, want 1", g, w)
		}
	}
}

func TestIconSetsAreComplete(t *testing.T) {
	for name, set := range map[string]IconSet{"unicode": Unicode, "ascii": ASCII} {
		t.Run(name, func(t *testing.T) {
			assertNoEmptyIcons(t, set)
			assertSingleCellGlyphs(t, set)
		})
	}
}

func TestASCIIIsASCII(t *testing.T) {
	v := reflect.ValueOf(ASCII)
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		var values []string
		switch f.Kind() {
		case reflect.String:
			values = []string{f.String()}
		case reflect.Array:
			for j := 0; j < f.Len(); j++ {
				values = append(values, f.Index(j).String())
			}
		}
		for _, s := range values {
			for _, r := range s {
				if r > 127 {
					t.Fatalf("ASCII field %s contains %q", v.Type().Field(i).Name, s)
				}
			}
		}
	}
}

func TestWithFallback(t *testing.T) {
	partial := IconSet{Pointer: "→", Ring: [5]string{"1", "", "", "", ""}}
	got := partial.WithFallback(ASCII)

	if got.Pointer != "→" {
		t.Errorf("Pointer = %q, want the set value", got.Pointer)
	}
	if got.Check != ASCII.Check {
		t.Errorf("Check = %q, want fallback %q", got.Check, ASCII.Check)
	}
	if got.Ring[0] != "1" || got.Ring[4] != ASCII.Ring[4] {
		t.Errorf("Ring = %v", got.Ring)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want IconSet
	}{
		{"forced ascii", map[string]string{"OTPDASH_ICONS": "ascii", "LANG": "en_US.UTF-8"}, ASCII},
		{"forced unicode", map[string]string{"OTPDASH_ICONS": "unicode", "LANG": "C"}, Unicode},
		{"utf8 locale", map[string]string{"LANG": "en_US.UTF-8"}, Unicode},
		{"c locale", map[string]string{"LANG": "C"}, ASCII},
		{"lc_all wins", map[string]string{"LC_ALL": "POSIX", "LANG": "en_US.UTF-8"}, ASCII},
		{"dumb terminal", map[string]string{"TERM": "dumb"}, ASCII},
		{"no hints", map[string]string{"TERM": "xterm-256color"}, Unicode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"OTPDASH_ICONS", "LC_ALL", "LC_CTYPE", "LANG", "TERM"} {
				t.Setenv(k, tt.env[k])
			}
			if got := Detect(); got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRingFrame(t *testing.T) {
	if got := Unicode.RingFrame(0); got != "●" {
		t.Errorf("RingFrame(0) = %q", got)
	}
	if got := Unicode.RingFrame(1); got != "○" {
		t.Errorf("RingFrame(1) = %q", got)
	}
	if got := Unicode.RingFrame(-2); got != "●" {
		t.Errorf("RingFrame(-2) = %q", got)
	}
	if got := Unicode.RingFrame(0.5); got != "◑" {
		t.Errorf("RingFrame(0.5) = %q", got)
	}
}

func TestSetDefault(t *testing.T) {
	prev := Current()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(ASCII)
	if Current() != ASCII {
		t.Fatal("SetDefault did not take effect")
	}
	if ASCII.StatusIcon(true) != "+" || ASCII.StatusIcon(false) != "x" {
		t.Error("StatusIcon")
	}
}
