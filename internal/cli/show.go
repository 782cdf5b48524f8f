package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/output"
	"github.com/Dicklesworthstone/otpdash/internal/tui/styles"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

type showResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"password,omitempty"`
	URL          string            `json:"url,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	CustomFields []api.CustomField `json:"custom_fields,omitempty"`
	HaveTOTP     bool              `json:"have_totp"`
	Code         string            `json:"code,omitempty"`
	Remaining    int               `json:"remaining_seconds,omitempty"`
	Window       int               `json:"window,omitempty"`
	Secret       string            `json:"secret,omitempty"`
	QRCode       string            `json:"qr_code,omitempty"`
}

func newShowCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show an entry with its current code",
		Long: `Show one entry: its fields, the current one-time code and, with --reveal,
the password and TOTP secret. Notes are rendered as markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], reveal)
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show the password and TOTP secret in clear text")
	return cmd
}

func runShow(cmd *cobra.Command, ref string, reveal bool) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	e, err := resolveEntry(ctx, client, ref)
	if err != nil {
		return err
	}

	resp := showResponse{
		ID:           e.ID,
		Title:        e.Title,
		Username:     e.Username,
		URL:          e.URL,
		Notes:        e.Notes,
		CustomFields: e.CustomFields,
		HaveTOTP:     e.HaveTOTP,
	}
	var state codes.WindowState
	if e.HaveTOTP {
		det, err := newFetcher(client).FetchDetails(ctx, e.ID)
		if err != nil {
			return err
		}
		state = det.Code.State()
		resp.Code = det.Code.Value
		resp.Remaining = state.Remaining
		resp.Window = state.Window
		resp.QRCode = det.QRCode
		resp.Secret = det.Secret
	}

	mask := cfg.UI.MaskSecrets && !reveal
	if mask {
		resp.Password = styles.Mask(e.Password)
		resp.Secret = styles.Mask(resp.Secret)
		resp.QRCode = ""
	} else {
		resp.Password = e.Password
	}

	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		return newFormatter(cmd).JSON(resp)
	}
	return writeShow(w, resp, state, mask)
}

func writeShow(w io.Writer, resp showResponse, state codes.WindowState, masked bool) error {
	th := theme.FromName(cfg.UI.Theme)
	st := styles.New(th)
	tr := catalog()

	fmt.Fprintln(w, st.Title.Render(resp.Title))
	tbl := output.NewTable("FIELD", "VALUE").MaxWidth(0, 24)
	tbl.AddRow("id", resp.ID)
	if resp.Username != "" {
		tbl.AddRow("username", resp.Username)
	}
	if resp.Password != "" {
		tbl.AddRow("password", resp.Password)
	}
	if resp.URL != "" {
		tbl.AddRow("url", resp.URL)
	}
	for _, f := range resp.CustomFields {
		tbl.AddRow(f.Name, f.Value)
	}
	if resp.HaveTOTP {
		tbl.AddRow(strings.ToLower(tr.T("dashboard.current_code")),
			fmt.Sprintf("%s  %s%s", styles.GroupCode(resp.Code), state.Display, tr.T("dashboard.time_left")))
		secret := resp.Secret
		if masked {
			secret += " (" + tr.T("dashboard.secret_hidden") + ")"
		}
		tbl.AddRow(strings.ToLower(tr.T("dashboard.secret_key")), secret)
		if resp.QRCode != "" {
			tbl.AddRow("qr", tr.T("dashboard.qr_available"))
		}
	}
	if err := tbl.Render(w); err != nil {
		return err
	}

	if strings.TrimSpace(resp.Notes) == "" {
		return nil
	}
	notes, err := renderNotes(resp.Notes, th)
	if err != nil {
		// fall back to the raw text
		notes = resp.Notes + "\n"
	}
	_, err = fmt.Fprint(w, "\n"+notes)
	return err
}

// renderNotes renders markdown notes for the terminal.
func renderNotes(md string, th theme.Theme) (string, error) {
	style := glamour.WithAutoStyle()
	if th.IsPlain() || !output.IsTerminal() {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(output.TerminalWidth(80)-4))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
