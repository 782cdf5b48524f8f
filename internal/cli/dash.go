package cli

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/output"
	"github.com/Dicklesworthstone/otpdash/internal/tui/dashboard"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

func newDashCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:     "dash",
		Aliases: []string{"dashboard", "ui"},
		Short:   "Open the live dashboard",
		Long: `Open the full-screen dashboard. Codes refresh when their window rolls
over and the countdowns are redrawn every second without a request.

Keys: enter details, c copy, s copy secret, v reveal secret, r refresh,
R refresh all, d delete, g next group, X delete group, / filter, ? help,
q quit. --group opens the dashboard on one group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Refresh mode: per-entry or batch (default from config)")
	return cmd
}

func runDash(modeName string) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return output.NewCLIError("the dashboard needs a terminal").
			WithHint("Use 'otpdash list' for plain output").
			WithCode("NOT_A_TERMINAL")
	}

	mode, err := resolveMode(modeName)
	if err != nil {
		return err
	}
	if err := requirePerEntry(mode); err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	group, err := scopeGroup(ctx, client)
	cancel()
	if err != nil {
		return err
	}
	groupID := ""
	if group != nil {
		groupID = group.ID
	}
	log, closeLog, err := openLogger(true)
	if err != nil {
		return err
	}
	defer closeLog()

	return dashboard.Run(dashboard.Options{
		Store:       client,
		Fetcher:     newFetcher(client),
		Copier:      newCopier(log),
		Notifier:    newNotifier(),
		Catalog:     catalog(),
		Theme:       theme.FromName(cfg.UI.Theme),
		Mode:        mode,
		Window:      cfg.Server.WindowSeconds,
		Fallback:    cfg.Fallback(),
		Redraw:      cfg.Refresh.Redraw.Std(),
		MaskSecrets: cfg.UI.MaskSecrets,
		Group:       groupID,
		Logger:      log,
		ConfigPath:  configPath(),
	})
}
