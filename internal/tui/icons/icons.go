// Package icons holds the glyphs the terminal views draw with.
package icons

import (
	"os"
	"reflect"
	"strings"
)

// IconSet contains all glyphs used by the dashboard and list output.
type IconSet struct {
	// Rows
	Pointer string // selected row
	Missing string // entry without one-time codes
	Pending string // code not fetched yet

	// Notices
	Check   string
	Cross   string
	Dot     string
	Warning string

	// Countdown, ring frames from a fresh window to an expired one
	Ring     [5]string
	BarFull  string
	BarEmpty string
}

// Unicode uses box drawing and geometric shapes.
var Unicode = IconSet{
	Pointer:  "▸",
	Missing:  "—",
	Pending:  "··· ···",
	Check:    "✓",
	Cross:    "✗",
	Dot:      "•",
	Warning:  "!",
	Ring:     [5]string{"●", "◕", "◑", "◔", "○"},
	BarFull:  "█",
	BarEmpty: "░",
}

// ASCII works on any terminal.
var ASCII = IconSet{
	Pointer:  ">",
	Missing:  "-",
	Pending:  "... ...",
	Check:    "+",
	Cross:    "x",
	Dot:      "*",
	Warning:  "!",
	Ring:     [5]string{"@", "O", "o", ".", "_"},
	BarFull:  "#",
	BarEmpty: "-",
}

// WithFallback fills empty glyphs of i from fallback.
func (i IconSet) WithFallback(fallback IconSet) IconSet {
	out := i
	v := reflect.ValueOf(&out).Elem()
	fb := reflect.ValueOf(fallback)
	for idx := 0; idx < v.NumField(); idx++ {
		f := v.Field(idx)
		switch f.Kind() {
		case reflect.String:
			if f.String() == "" {
				f.SetString(fb.Field(idx).String())
			}
		case reflect.Array:
			for j := 0; j < f.Len(); j++ {
				if f.Index(j).String() == "" {
					f.Index(j).SetString(fb.Field(idx).Index(j).String())
				}
			}
		}
	}
	return out
}

// HasUnicode detects if the terminal supports Unicode
func HasUnicode() bool {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := strings.ToLower(os.Getenv(name))
		if v == "" {
			continue
		}
		return strings.Contains(v, "utf")
	}

	switch os.Getenv("TERM") {
	case "dumb", "linux", "vt100", "vt220":
		return false
	}
	return true
}

// Detect returns the icon set for the current terminal. OTPDASH_ICONS
// forces "unicode" or "ascii".
func Detect() IconSet {
	switch strings.ToLower(os.Getenv("OTPDASH_ICONS")) {
	case "unicode":
		return Unicode
	case "ascii":
		return ASCII
	}
	if HasUnicode() {
		return Unicode
	}
	return ASCII
}

// Default is the auto-detected icon set
var Default = Detect()

// Current returns the currently active icon set
func Current() IconSet {
	return Default
}

// SetDefault allows overriding the default icon set
func SetDefault(icons IconSet) {
	Default = icons
}

// StatusIcon returns the glyph for a success or a failure.
func (i IconSet) StatusIcon(success bool) string {
	if success {
		return i.Check
	}
	return i.Cross
}

// RingFrame returns the ring glyph for progress, 0 for a fresh window and 1
// for an expired one.
func (i IconSet) RingFrame(progress float64) string {
	n := len(i.Ring)
	idx := int(progress * float64(n-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return i.Ring[idx]
}
