// Package theme holds the colour palettes of the dashboard and the CLI.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
)

// Theme is a colour palette.
type Theme struct {
	Name string

	Base     lipgloss.Color
	Surface0 lipgloss.Color
	Surface1 lipgloss.Color
	Text     lipgloss.Color
	Subtext  lipgloss.Color
	Overlay  lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color

	// Countdown tiers.
	Normal   lipgloss.Color
	Soon     lipgloss.Color
	Critical lipgloss.Color
}

// CatppuccinMocha is the default dark palette.
var CatppuccinMocha = Theme{
	Name:      "mocha",
	Base:      lipgloss.Color("#1e1e2e"),
	Surface0:  lipgloss.Color("#313244"),
	Surface1:  lipgloss.Color("#45475a"),
	Text:      lipgloss.Color("#cdd6f4"),
	Subtext:   lipgloss.Color("#a6adc8"),
	Overlay:   lipgloss.Color("#6c7086"),
	Primary:   lipgloss.Color("#89b4fa"),
	Secondary: lipgloss.Color("#cba6f7"),
	Success:   lipgloss.Color("#a6e3a1"),
	Warning:   lipgloss.Color("#f9e2af"),
	Error:     lipgloss.Color("#f38ba8"),
	Info:      lipgloss.Color("#89dceb"),
	Normal:    lipgloss.Color("#a6e3a1"),
	Soon:      lipgloss.Color("#fab387"),
	Critical:  lipgloss.Color("#f38ba8"),
}

// CatppuccinMacchiato is a darker variant.
var CatppuccinMacchiato = Theme{
	Name:      "macchiato",
	Base:      lipgloss.Color("#24273a"),
	Surface0:  lipgloss.Color("#363a4f"),
	Surface1:  lipgloss.Color("#494d64"),
	Text:      lipgloss.Color("#cad3f5"),
	Subtext:   lipgloss.Color("#a5adcb"),
	Overlay:   lipgloss.Color("#6e738d"),
	Primary:   lipgloss.Color("#8aadf4"),
	Secondary: lipgloss.Color("#c6a0f6"),
	Success:   lipgloss.Color("#a6da95"),
	Warning:   lipgloss.Color("#eed49f"),
	Error:     lipgloss.Color("#ed8796"),
	Info:      lipgloss.Color("#91d7e3"),
	Normal:    lipgloss.Color("#a6da95"),
	Soon:      lipgloss.Color("#f5a97f"),
	Critical:  lipgloss.Color("#ed8796"),
}

// CatppuccinLatte is the light palette.
var CatppuccinLatte = Theme{
	Name:      "latte",
	Base:      lipgloss.Color("#eff1f5"),
	Surface0:  lipgloss.Color("#ccd0da"),
	Surface1:  lipgloss.Color("#bcc0cc"),
	Text:      lipgloss.Color("#4c4f69"),
	Subtext:   lipgloss.Color("#6c6f85"),
	Overlay:   lipgloss.Color("#9ca0b0"),
	Primary:   lipgloss.Color("#1e66f5"),
	Secondary: lipgloss.Color("#8839ef"),
	Success:   lipgloss.Color("#40a02b"),
	Warning:   lipgloss.Color("#df8e1d"),
	Error:     lipgloss.Color("#d20f39"),
	Info:      lipgloss.Color("#04a5e5"),
	Normal:    lipgloss.Color("#40a02b"),
	Soon:      lipgloss.Color("#fe640b"),
	Critical:  lipgloss.Color("#d20f39"),
}

// Plain has no colours at all.
var Plain = Theme{Name: "plain"}

// NoColorEnabled reports whether colour output is disabled through
// NO_COLOR or OTPDASH_NO_COLOR.
func NoColorEnabled() bool {
	if v, ok := os.LookupEnv("OTPDASH_NO_COLOR"); ok {
		return v != "" && v != "0"
	}
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// FromName returns the named theme. "auto" and unknown names pick mocha or
// latte from the terminal background.
func FromName(name string) Theme {
	if NoColorEnabled() {
		return Plain
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mocha", "dark":
		return CatppuccinMocha
	case "macchiato":
		return CatppuccinMacchiato
	case "latte", "light":
		return CatppuccinLatte
	case "plain", "none", "no-color":
		return Plain
	default:
		return autoTheme()
	}
}

// Current returns the theme named by OTPDASH_THEME, or the automatic one.
func Current() Theme {
	return FromName(os.Getenv("OTPDASH_THEME"))
}

// detectDarkBackground is swapped out in tests.
var detectDarkBackground = func() bool {
	return termenv.NewOutput(os.Stdout).HasDarkBackground()
}

func autoTheme() Theme {
	if detectDarkBackground() {
		return CatppuccinMocha
	}
	return CatppuccinLatte
}

// UrgencyColor returns the countdown colour of a tier.
func (t Theme) UrgencyColor(u codes.Urgency) lipgloss.Color {
	switch u {
	case codes.UrgencyCritical:
		return t.Critical
	case codes.UrgencyWarning:
		return t.Soon
	default:
		return t.Normal
	}
}

// IsPlain reports whether the theme carries no colours.
func (t Theme) IsPlain() bool { return t.Text == "" }
