package output

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

// ErrorResponse is the JSON shape of a failed command.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// NewError creates an ErrorResponse from a message.
func NewError(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// CLIError represents a structured CLI error with remediation hints.
type CLIError struct {
	Message string // What failed
	Cause   string // Why it failed (optional)
	Hint    string // Fastest command/action to fix it (optional)
	Code    string // Error code for programmatic handling (optional)
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLI error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg}
}

// WithCause adds a cause to the error.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds an error code to the error.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

// isStderrTerminal checks if stderr is a terminal (for color output).
func isStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// FormatCLIError formats a CLIError for terminal output with colors.
// Returns plain text if stderr is not a terminal or NO_COLOR is set.
func FormatCLIError(e *CLIError) string {
	useColor := isStderrTerminal() && !theme.NoColorEnabled()

	var sb strings.Builder

	if useColor {
		t := theme.Current()
		errorStyle := lipgloss.NewStyle().Foreground(t.Error).Bold(true)
		causeStyle := lipgloss.NewStyle().Foreground(t.Subtext)
		hintStyle := lipgloss.NewStyle().Foreground(t.Info)
		codeStyle := lipgloss.NewStyle().Foreground(t.Overlay)

		// Error message (red, bold)
		sb.WriteString(errorStyle.Render("Error: "))
		sb.WriteString(e.Message)

		// Error code if present
		if e.Code != "" {
			sb.WriteString(" ")
			sb.WriteString(codeStyle.Render("[" + e.Code + "]"))
		}
		sb.WriteString("\n")

		// Cause if present
		if e.Cause != "" {
			sb.WriteString(causeStyle.Render("  Cause: "))
			sb.WriteString(e.Cause)
			sb.WriteString("\n")
		}

		// Hint if present
		if e.Hint != "" {
			sb.WriteString(hintStyle.Render("  Hint: "))
			sb.WriteString(e.Hint)
			sb.WriteString("\n")
		}
	} else {
		// Plain text output (no colors)
		sb.WriteString("Error: ")
		sb.WriteString(e.Message)
		if e.Code != "" {
			sb.WriteString(" [")
			sb.WriteString(e.Code)
			sb.WriteString("]")
		}
		sb.WriteString("\n")

		if e.Cause != "" {
			sb.WriteString("  Cause: ")
			sb.WriteString(e.Cause)
			sb.WriteString("\n")
		}

		if e.Hint != "" {
			sb.WriteString("  Hint: ")
			sb.WriteString(e.Hint)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// PrintCLIError prints a CLIError to stderr with formatting.
func PrintCLIError(e *CLIError) {
	fmt.Fprint(os.Stderr, FormatCLIError(e))
}

// PrintCLIErrorOrJSON prints a CLIError to stderr (text) or stdout (JSON).
func PrintCLIErrorOrJSON(e *CLIError, jsonMode bool) error {
	if jsonMode {
		resp := ErrorResponse{
			Error:   e.Message,
			Code:    e.Code,
			Details: e.Cause,
			Hint:    e.Hint,
		}
		return WriteJSON(os.Stdout, resp, true)
	}
	PrintCLIError(e)
	return e
}

// Common error hints for frequent scenarios
var (
	HintServerUnreachable = "Check that the server is running, or point OTPDASH_SERVER at it"
	HintServerError       = "Run with --log-level=debug and check the server log for the request id"
	HintEntryNotFound     = "Run 'otpdash entry ls' to see available entries"
	HintGroupNotFound     = "Run 'otpdash entry group ls' to see available groups"
	HintNoCode            = "Enable one-time codes with 'otpdash entry edit <id> --totp-secret=...'"
	HintConfigInvalid     = "Check config syntax with 'otpdash config show' or edit ~/.config/otpdash/config.toml"
	HintBadResponse       = "Check that OTPDASH_SERVER points at the dashboard server and not a proxy or login page"
	HintClipboard         = "Install wl-copy, xclip or xsel, or use 'otpdash show' and copy by hand"
)

// EntryNotFoundError creates an entry not found error with hint.
func EntryNotFoundError(id string) *CLIError {
	return NewCLIError(fmt.Sprintf("entry '%s' not found", id)).
		WithCode("ENTRY_NOT_FOUND").
		WithHint(HintEntryNotFound)
}

// GroupNotFoundError creates a group not found error with hint.
func GroupNotFoundError(ref string) *CLIError {
	return NewCLIError(fmt.Sprintf("group '%s' not found", ref)).
		WithCode("GROUP_NOT_FOUND").
		WithHint(HintGroupNotFound)
}

// ConfigInvalidError wraps a config load failure.
func ConfigInvalidError(path string, err error) *CLIError {
	return NewCLIError(fmt.Sprintf("cannot load config %s", path)).
		WithCause(err.Error()).
		WithCode("CONFIG_INVALID").
		WithHint(HintConfigInvalid)
}

// FromError turns err into a CLIError with the hint matching its kind.
// CLIErrors pass through unchanged.
func FromError(err error) *CLIError {
	if err == nil {
		return nil
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce
	}

	var de *api.DecodeError
	if errors.As(err, &de) {
		return NewCLIError("malformed server response").
			WithCause(de.Error()).
			WithCode("BAD_RESPONSE").
			WithHint(HintBadResponse)
	}

	var fe *codes.FetchError
	if errors.As(err, &fe) {
		if fe.Kind == codes.KindTransport {
			return NewCLIError("server unreachable").
				WithCause(causeOf(fe.Err)).
				WithCode("SERVER_UNREACHABLE").
				WithHint(HintServerUnreachable)
		}
		if fe.Status == 404 && fe.EntryID != "" {
			return EntryNotFoundError(fe.EntryID).WithCause(fe.Message)
		}
		return NewCLIError(fmt.Sprintf("server returned %d", fe.Status)).
			WithCause(fe.Message).
			WithCode("SERVER_ERROR").
			WithHint(HintServerError)
	}

	var se *api.StatusError
	if errors.As(err, &se) {
		cause := se.Message
		if cause == "" {
			cause = se.Error()
		}
		return NewCLIError(fmt.Sprintf("%s %s failed with %d", se.Method, se.Path, se.Status)).
			WithCause(cause).
			WithCode("SERVER_ERROR").
			WithHint(HintServerError)
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return NewCLIError("server unreachable").
			WithCause(causeOf(ue.Err)).
			WithCode("SERVER_UNREACHABLE").
			WithHint(HintServerUnreachable)
	}

	if errors.Is(err, codes.ErrNoCode) {
		return NewCLIError("entry has no one-time code").
			WithCode("NO_CODE").
			WithHint(HintNoCode)
	}
	return NewCLIError(err.Error())
}

func causeOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
