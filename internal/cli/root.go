package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/config"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

var (
	cfgFile string
	cfg     *config.Config

	// Global output and connection flags
	jsonOutput bool
	serverFlag string
	groupFlag  string
	logLevel   string

	// Build information (set by goreleaser)
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otpdash",
		Short: "Live one-time codes for the entries on your password server",
		Long: `otpdash shows the current one-time code of every entry on your password
server and refreshes each code exactly when its window rolls over.

Quick Start:
  otpdash                         # Dashboard on a terminal, plain list otherwise
  otpdash list --watch            # Redrawing list without the full-screen UI
  otpdash copy github             # Copy the current code of "github"
  otpdash entry add --title mail --totp-secret JBSWY3DPEHPK3PXP`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if canSkipConfigLoading(cmd) {
				return nil
			}
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !IsJSONOutput() && isatty.IsTerminal(os.Stdout.Fd()) {
				return runDash("")
			}
			return runList(cmd, listOptions{})
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/otpdash/config.toml)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (machine-readable)")
	cmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Password server URL (overrides config and OTPDASH_SERVER)")
	cmd.PersistentFlags().StringVar(&groupFlag, "group", "", "Limit to the entries of one group (id or name)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")

	cmd.AddCommand(
		newDashCmd(),
		newListCmd(),
		newShowCmd(),
		newCopyCmd(),
		newEntryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// canSkipConfigLoading reports whether cmd runs without a loaded config.
func canSkipConfigLoading(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	case "path", "init":
		return cmd.HasParent() && cmd.Parent().Name() == "config"
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

func configPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	return config.DefaultPath()
}

func loadConfig() error {
	path := configPath()
	c, err := config.LoadOrDefault(path)
	if err != nil {
		return output.ConfigInvalidError(path, err)
	}
	if serverFlag != "" {
		c.Server.URL = serverFlag
	}
	cfg = c
	return nil
}

// Execute runs the root command and reports a failure on stderr, or as a
// JSON error object with --json.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		_ = output.PrintCLIErrorOrJSON(output.FromError(err), IsJSONOutput())
		return err
	}
	return nil
}

// IsJSONOutput reports whether output should be JSON: --json, then
// OTPDASH_OUTPUT_FORMAT, then JSON whenever stdout is not a terminal.
func IsJSONOutput() bool {
	return output.DetectFormat(jsonOutput) == output.FormatJSON
}

// newFormatter returns the formatter writing cmd's output.
func newFormatter(cmd *cobra.Command) *output.Formatter {
	return output.New(output.WithJSON(IsJSONOutput()), output.WithWriter(cmd.OutOrStdout()))
}

func goVersion() string {
	return runtime.Version()
}

func goPlatform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"built_at"`
	BuiltBy   string `json:"built_by"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(versionResponse{
					Version:   Version,
					Commit:    Commit,
					BuiltAt:   Date,
					BuiltBy:   BuiltBy,
					GoVersion: goVersion(),
					Platform:  goPlatform(),
				})
			}

			if short {
				fmt.Fprintln(w, Version)
				return nil
			}
			fmt.Fprintf(w, "otpdash version %s\n", Version)
			fmt.Fprintf(w, "  commit:    %s\n", Commit)
			fmt.Fprintf(w, "  built:     %s\n", Date)
			fmt.Fprintf(w, "  builder:   %s\n", BuiltBy)
			fmt.Fprintf(w, "  go:        %s\n", goVersion())
			fmt.Fprintf(w, "  platform:  %s\n", goPlatform())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}
