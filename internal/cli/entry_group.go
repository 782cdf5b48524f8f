package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

func newEntryGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "group",
		Aliases: []string{"groups"},
		Short:   "Manage entry groups",
		Long: `Groups collect entries. Deleting a group deletes its entries on the
server too. The other commands take --group to work inside one group.`,
	}
	cmd.AddCommand(
		newGroupListCmd(),
		newGroupAddCmd(),
		newGroupEditCmd(),
		newGroupRemoveCmd(),
	)
	return cmd
}

type groupSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Entries     int    `json:"entries"`
}

func newGroupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List groups with their entry counts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			groups, err := client.ListGroups(ctx)
			if err != nil {
				return err
			}
			entries, err := client.ListEntries(ctx)
			if err != nil {
				return err
			}
			counts := make(map[string]int, len(groups))
			for _, e := range entries {
				counts[e.GroupID]++
			}
			out := make([]groupSummary, 0, len(groups))
			for _, g := range groups {
				out = append(out, groupSummary{ID: g.ID, Name: g.Name, Description: g.Description, Entries: counts[g.ID]})
			}

			if IsJSONOutput() {
				return newFormatter(cmd).JSON(out)
			}
			w := cmd.OutOrStdout()
			if len(out) == 0 {
				fmt.Fprintln(w, "No groups")
				return nil
			}
			tbl := output.NewTable("ID", "NAME", "DESCRIPTION", "ENTRIES").MaxWidth(2, 40)
			for _, g := range out {
				tbl.AddRow(g.ID, g.Name, g.Description, fmt.Sprint(g.Entries))
			}
			return tbl.Render(w)
		},
	}
}

func invalidGroup(err error) error {
	return output.NewCLIError(err.Error()).
		WithHint("See 'otpdash entry group add --help'").
		WithCode("INVALID_GROUP")
}

func newGroupAddCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := api.Group{Name: strings.TrimSpace(args[0]), Description: description}
			if err := g.Validate(); err != nil {
				return invalidGroup(err)
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			created, err := client.CreateGroup(ctx, g)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s (%s)\n", catalog().T("passwords.group_created"), created.Name, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Group description")
	return cmd
}

func newGroupEditCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "edit <id|name>",
		Short: "Rename a group or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			g, err := resolveGroup(ctx, client, args[0])
			if err != nil {
				return err
			}
			next := *g
			if cmd.Flags().Changed("name") {
				next.Name = strings.TrimSpace(name)
			}
			if cmd.Flags().Changed("description") {
				next.Description = description
			}
			if err := next.Validate(); err != nil {
				return invalidGroup(err)
			}
			if next == *g {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change")
				return nil
			}
			updated, err := client.UpdateGroup(ctx, g.ID, next)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", catalog().T("passwords.group_updated"), updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New group name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newGroupRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id|name>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a group and its entries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			log, closeLog, err := openLogger(false)
			if err != nil {
				return err
			}
			defer closeLog()
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			g, err := resolveGroup(ctx, client, args[0])
			if err != nil {
				return err
			}
			members, err := client.ListGroupEntries(ctx, g.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
					fmt.Sprintf("%s %q (%d entries)? [y/N] ", catalog().T("passwords.delete_group"), g.Name, len(members)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "Cancelled")
					return nil
				}
			}

			if err := client.DeleteGroup(ctx, g.ID); err != nil {
				return err
			}
			log.Info(ctx, "group deleted", "group", g.ID, "entries", len(members))
			for _, e := range members {
				notifyEntry(ctx, log, notify.NewEntryRemovedEvent(e.Title))
			}

			if IsJSONOutput() {
				return newFormatter(cmd).JSON(map[string]any{"id": g.ID, "name": g.Name, "deleted": true, "entries": len(members)})
			}
			fmt.Fprintf(w, "✓ %s: %s\n", catalog().T("passwords.group_deleted"), g.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}
