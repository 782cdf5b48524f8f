package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/config"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				path string
				err  error
			)
			if cfgFile == "" && !force {
				path, err = config.CreateDefault()
			} else {
				path, err = writeDefaultConfig(configPath(), force)
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(map[string]string{"path": path})
			}
			fmt.Fprintf(w, "Created config file: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				_, err := os.Stat(path)
				return newFormatter(cmd).JSON(map[string]any{"path": path, "exists": err == nil})
			}
			fmt.Fprintln(w, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration in effect after the file, the OTPDASH_*
environment variables and --server have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(cfg)
			}
			return config.Print(cfg, w)
		},
	})

	return cmd
}

// writeDefaultConfig writes the built-in configuration to path.
func writeDefaultConfig(path string, force bool) (string, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return "", output.NewCLIError("config file already exists: " + path).
			WithHint("Pass --force to overwrite it").
			WithCode("CONFIG_EXISTS")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := config.Print(config.Default(), f); err != nil {
		return "", err
	}
	return path, nil
}
