// Package clipboard copies codes and secrets to the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	sysclip "github.com/atotto/clipboard"
	"github.com/muesli/termenv"
)

// Clipboard writes text to the clipboard. It satisfies codes.Copier.
type Clipboard interface {
	Copy(text string) error
	Backend() string
}

// backend is one way of reaching the clipboard.
type backend interface {
	copy(text string) error
	name() string
}

type detector struct {
	goos        string
	getenv      func(string) string
	lookPath    func(string) error
	readFile    func(string) ([]byte, error)
	unsupported bool // no native clipboard library support
}

func defaultDetector() detector {
	return detector{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		lookPath: func(bin string) error {
			_, err := exec.LookPath(bin)
			return err
		},
		readFile:    os.ReadFile,
		unsupported: sysclip.Unsupported,
	}
}

type clipboardImpl struct {
	b backend
}

func (c *clipboardImpl) Copy(text string) error {
	if err := c.b.copy(text); err != nil {
		return fmt.Errorf("%s: %w", c.b.name(), err)
	}
	return nil
}

func (c *clipboardImpl) Backend() string { return c.b.name() }

// New picks the best clipboard for the current platform and session.
func New() (Clipboard, error) {
	return newWithDetector(defaultDetector())
}

func newWithDetector(det detector) (Clipboard, error) {
	b, err := chooseBackend(det)
	if err != nil {
		return nil, err
	}
	return &clipboardImpl{b: b}, nil
}

// Unavailable is a Clipboard whose copies always fail with err. It lets the
// dashboard report the problem on use instead of refusing to start.
func Unavailable(err error) Clipboard {
	return &clipboardImpl{b: failing{err: err}}
}

func chooseBackend(det detector) (backend, error) {
	switch det.goos {
	case "darwin":
		if det.lookPath("pbcopy") == nil {
			return command{"pbcopy", nil}, nil
		}
		return native{}, nil

	case "windows":
		return native{}, nil

	case "linux", "freebsd", "openbsd", "netbsd":
		if isWSL(det) && det.lookPath("clip.exe") == nil {
			return command{"clip.exe", nil}, nil
		}
		if isWayland(det) && det.lookPath("wl-copy") == nil {
			return command{"wl-copy", nil}, nil
		}
		if det.getenv("DISPLAY") != "" {
			if det.lookPath("xclip") == nil {
				return command{"xclip", []string{"-selection", "clipboard"}}, nil
			}
			if det.lookPath("xsel") == nil {
				return command{"xsel", []string{"--clipboard", "--input"}}, nil
			}
		}
		if det.lookPath("wl-copy") == nil {
			return command{"wl-copy", nil}, nil
		}
		// Over SSH the terminal emulator owns the clipboard.
		if det.getenv("SSH_TTY") != "" || det.getenv("SSH_CONNECTION") != "" {
			return osc52{}, nil
		}
		if det.getenv("TMUX") != "" && det.lookPath("tmux") == nil {
			return command{"tmux", []string{"load-buffer", "-w", "-"}}, nil
		}
		if !det.unsupported {
			return native{}, nil
		}
		return nil, errors.New("no clipboard utility found (install wl-copy, xclip, or xsel)")

	default:
		if !det.unsupported {
			return native{}, nil
		}
		return nil, fmt.Errorf("clipboard not supported on %s", det.goos)
	}
}

func isWSL(det detector) bool {
	if det.getenv("WSL_DISTRO_NAME") != "" || det.getenv("WSL_INTEROP") != "" {
		return true
	}
	data, err := det.readFile("/proc/version")
	return err == nil && bytes.Contains(bytes.ToLower(data), []byte("microsoft"))
}

func isWayland(det detector) bool {
	if strings.EqualFold(det.getenv("XDG_SESSION_TYPE"), "wayland") {
		return true
	}
	return det.getenv("WAYLAND_DISPLAY") != ""
}

// command pipes text into an external tool.
type command struct {
	bin  string
	args []string
}

func (c command) copy(text string) error {
	cmd := exec.Command(c.bin, c.args...)
	cmd.Stdin = strings.NewReader(text)
	// xclip and wl-copy fork a daemon that keeps inherited pipes open, so
	// output is not captured.
	return cmd.Run()
}

func (c command) name() string { return c.bin }

// native uses the platform clipboard API.
type native struct{}

func (native) copy(text string) error { return sysclip.WriteAll(text) }
func (native) name() string           { return "native" }

// osc52 asks the terminal to set its clipboard.
type osc52 struct{}

func (osc52) copy(text string) error {
	termenv.NewOutput(os.Stdout).Copy(text)
	return nil
}

func (osc52) name() string { return "osc52" }

type failing struct{ err error }

func (f failing) copy(string) error { return f.err }
func (f failing) name() string      { return "unavailable" }
