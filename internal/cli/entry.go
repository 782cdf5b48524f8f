package cli

import (
	"bufio"
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

func newEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Manage the entries stored on the server",
	}
	cmd.AddCommand(
		newEntryListCmd(),
		newEntryAddCmd(),
		newEntryEditCmd(),
		newEntryRemoveCmd(),
		newEntryGenerateCmd(),
		newEntryGroupCmd(),
	)
	return cmd
}

// entrySummary is an entry without its secrets.
type entrySummary struct {
	ID       string `json:"id"`
	GroupID  string `json:"group_id,omitempty"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
	HaveTOTP bool   `json:"have_totp"`
	Fields   int    `json:"custom_fields"`
}

func summarize(e api.Entry) entrySummary {
	return entrySummary{
		ID:       e.ID,
		GroupID:  e.GroupID,
		Title:    e.Title,
		Username: e.Username,
		URL:      e.URL,
		HaveTOTP: e.HaveTOTP,
		Fields:   len(e.CustomFields),
	}
}

func newEntryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List entries",
		Long:    "List entries without their secrets. --group lists one group.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			entries, err := groupEntries(ctx, client)
			if err != nil {
				return err
			}
			out := make([]entrySummary, 0, len(entries))
			for _, e := range entries {
				out = append(out, summarize(e))
			}

			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(out)
			}
			if len(out) == 0 {
				fmt.Fprintln(w, catalog().T("dashboard.no_tokens"))
				return nil
			}
			tbl := output.NewTable("ID", "TITLE", "USERNAME", "URL", "TOTP").
				MaxWidth(1, 32).MaxWidth(3, 40)
			for _, s := range out {
				totp := "—"
				if s.HaveTOTP {
					totp = "yes"
				}
				tbl.AddRow(s.ID, s.Title, s.Username, s.URL, totp)
			}
			return tbl.Render(w)
		},
	}
}

// entryFlags are the field flags shared by add and edit.
type entryFlags struct {
	title         string
	username      string
	url           string
	notes         string
	totpSecret    string
	noTOTP        bool
	fields        []string
	removeFields  []string
	passwordStdin bool
	generate      bool
	length        int
}

func (f *entryFlags) register(cmd *cobra.Command, edit bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "Entry title")
	fl.StringVar(&f.username, "username", "", "User name")
	fl.StringVar(&f.url, "url", "", "Site URL")
	fl.StringVar(&f.notes, "notes", "", "Notes (markdown)")
	fl.StringVar(&f.totpSecret, "totp-secret", "", "Base32 TOTP secret; enables one-time codes")
	fl.StringArrayVar(&f.fields, "field", nil, "Custom field as name=value (repeatable)")
	fl.BoolVar(&f.passwordStdin, "password-stdin", false, "Read the password from stdin, or prompt on a terminal")
	fl.BoolVar(&f.generate, "generate-password", false, "Let the server generate the password")
	fl.IntVar(&f.length, "length", api.DefaultPasswordLength, "Length of a generated password")
	cmd.MarkFlagsMutuallyExclusive("password-stdin", "generate-password")
	if edit {
		fl.BoolVar(&f.noTOTP, "no-totp", false, "Disable one-time codes and drop the secret")
		fl.StringArrayVar(&f.removeFields, "remove-field", nil, "Remove a custom field by name (repeatable)")
	}
}

// apply copies the flags the user set onto e.
func (f *entryFlags) apply(cmd *cobra.Command, e *api.Entry) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		e.Title = strings.TrimSpace(f.title)
	}
	if changed("username") {
		e.Username = f.username
	}
	if changed("url") {
		e.URL = f.url
	}
	if changed("notes") {
		e.Notes = f.notes
	}
	if changed("totp-secret") {
		secret, err := normalizeSecret(f.totpSecret)
		if err != nil {
			return err
		}
		e.TOTPToken = secret
		e.HaveTOTP = secret != ""
	}
	if f.noTOTP {
		e.HaveTOTP = false
		e.TOTPToken = ""
	}
	for _, name := range f.removeFields {
		e.CustomFields = removeField(e.CustomFields, name)
	}
	for _, raw := range f.fields {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return output.NewCLIError("invalid --field " + raw).
				WithHint("Use --field name=value").
				WithCode("INVALID_FLAG")
		}
		e.CustomFields = setField(e.CustomFields, name, value)
	}
	if f.passwordStdin {
		pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		e.Password = pw
	}
	return nil
}

// generatePassword asks the server for a password when --generate-password
// is set and stores it on e. It returns the generated password.
func (f *entryFlags) generatePassword(ctx context.Context, client *api.Client, e *api.Entry) (string, error) {
	if !f.generate {
		return "", nil
	}
	if err := checkLength(f.length); err != nil {
		return "", err
	}
	pw, err := client.GeneratePassword(ctx, f.length)
	if err != nil {
		return "", err
	}
	e.Password = pw
	return pw, nil
}

func checkLength(n int) error {
	if n < api.MinPasswordLength || n > api.MaxPasswordLength {
		return output.NewCLIError(fmt.Sprintf("invalid --length %d", n)).
			WithHint(fmt.Sprintf("Use a length between %d and %d", api.MinPasswordLength, api.MaxPasswordLength)).
			WithCode("INVALID_FLAG")
	}
	return nil
}

func setField(fields []api.CustomField, name, value string) []api.CustomField {
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, api.CustomField{Name: name, Value: value})
}

func removeField(fields []api.CustomField, name string) []api.CustomField {
	out := fields[:0]
	for _, f := range fields {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// normalizeSecret strips spaces and padding and checks the secret is base32.
func normalizeSecret(s string) (string, error) {
	s = strings.ToUpper(strings.TrimRight(strings.ReplaceAll(strings.TrimSpace(s), " ", ""), "="))
	if s == "" {
		return "", nil
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s); err != nil {
		return "", output.NewCLIError(catalog().T("flash.invalid_secret")).
			WithCause(err.Error()).
			WithHint("The secret is the base32 text shown next to the QR code").
			WithCode("INVALID_SECRET")
	}
	return s, nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func invalidEntry(err error) error {
	return output.NewCLIError(err.Error()).
		WithHint("See 'otpdash entry add --help'").
		WithCode("INVALID_ENTRY")
}

// addResponse is the JSON answer of entry add. The generated password is
// only present with --generate-password.
type addResponse struct {
	entrySummary
	GeneratedPassword string `json:"generated_password,omitempty"`
}

func newEntryAddCmd() *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an entry",
		Long: `Create an entry. --group creates it inside a group and
--generate-password lets the server pick the password.`,
		Example: `  otpdash entry add --title github --username me --totp-secret JBSWY3DPEHPK3PXP
  echo "$PW" | otpdash entry add --title mail --password-stdin --field recovery=abcd
  otpdash entry add --title vpn --group work --generate-password --length 24`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var e api.Entry
			if err := f.apply(cmd, &e); err != nil {
				return err
			}
			if err := e.Validate(); err != nil {
				return invalidEntry(err)
			}

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

			g, err := scopeGroup(ctx, client)
			if err != nil {
				return err
			}
			if g != nil {
				e.GroupID = g.ID
			}
			generated, err := f.generatePassword(ctx, client, &e)
			if err != nil {
				return err
			}

			created, err := client.CreateEntry(ctx, e)
			if err != nil {
				return err
			}
			log.Info(ctx, "entry created", "entry", created.ID, "group", created.GroupID)
			notifyEntry(ctx, log, notify.NewEntryEvent(notify.EventEntryCreated, created.Title))

			w := cmd.OutOrStdout()
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(addResponse{entrySummary: summarize(*created), GeneratedPassword: generated})
			}
			fmt.Fprintf(w, "✓ %s: %s (%s)\n", catalog().T("passwords.create_success"), created.Title, created.ID)
			if generated != "" {
				fmt.Fprintf(w, "%s: %s\n", catalog().T("passwords.password_generated"), generated)
			}
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

// entryFields lists the comparable fields of e. The password and the TOTP
// secret are compared separately so they never reach the output.
func entryFields(e api.Entry) []output.Field {
	totp := "off"
	if e.HaveTOTP {
		totp = "on"
	}
	fields := []output.Field{
		{Name: "title", Value: e.Title},
		{Name: "username", Value: e.Username},
		{Name: "url", Value: e.URL},
		{Name: "totp", Value: totp},
		{Name: "notes", Value: e.Notes},
	}
	for _, f := range e.CustomFields {
		fields = append(fields, output.Field{Name: "field:" + f.Name, Value: f.Value})
	}
	return fields
}

type editResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DryRun          bool                 `json:"dry_run"`
	Changes         []output.FieldChange `json:"changes"`
	PasswordChanged bool                 `json:"password_changed"`
	SecretChanged   bool                 `json:"secret_changed"`

	GeneratedPassword string `json:"generated_password,omitempty"`
}

func (r editResponse) empty() bool {
	return len(r.Changes) == 0 && !r.PasswordChanged && !r.SecretChanged
}

func writeChanges(w io.Writer, r editResponse) {
	for _, ch := range r.Changes {
		switch {
		case ch.Diff != "":
			fmt.Fprintf(w, "~ %s:\n%s", ch.Field, ch.Diff)
		case ch.Old == "":
			fmt.Fprintf(w, "+ %s: %s\n", ch.Field, ch.New)
		case ch.New == "":
			fmt.Fprintf(w, "- %s\n", ch.Field)
		default:
			fmt.Fprintf(w, "~ %s: %s\n", ch.Field, output.InlineDiff(ch.Old, ch.New))
		}
	}
	if r.PasswordChanged {
		fmt.Fprintln(w, "~ password: changed")
	}
	if r.SecretChanged {
		fmt.Fprintln(w, "~ totp secret: changed")
	}
}

func newEntryEditCmd() *cobra.Command {
	var (
		f      entryFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id|title>",
		Short: "Change fields of an entry",
		Long: `Change the fields given as flags and leave the rest as they are.
--dry-run prints the changes without saving them.`,
		Args: cobra.ExactArgs(1),
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

			before, err := resolveEntry(ctx, client, args[0])
			if err != nil {
				return err
			}
			after := *before
			after.CustomFields = append([]api.CustomField(nil), before.CustomFields...)
			if err := f.apply(cmd, &after); err != nil {
				return err
			}
			if err := after.Validate(); err != nil {
				return invalidEntry(err)
			}
			generated, err := f.generatePassword(ctx, client, &after)
			if err != nil {
				return err
			}

			resp := editResponse{
				ID:              before.ID,
				Title:           after.Title,
				DryRun:          dryRun,
				Changes:         output.DiffFields(entryFields(*before), entryFields(after)),
				PasswordChanged: (f.passwordStdin || f.generate) && after.Password != before.Password,
				SecretChanged:   after.TOTPToken != before.TOTPToken,

				GeneratedPassword: generated,
			}
			if resp.Changes == nil {
				resp.Changes = []output.FieldChange{}
			}

			w := cmd.OutOrStdout()
			if !dryRun && !resp.empty() {
				if _, err := client.UpdateEntry(ctx, before.ID, after); err != nil {
					return err
				}
				notifyEntry(ctx, log, notify.NewEntryEvent(notify.EventEntryUpdated, after.Title))
			}

			if IsJSONOutput() {
				return newFormatter(cmd).JSON(resp)
			}
			if resp.empty() {
				fmt.Fprintln(w, "Nothing to change")
				return nil
			}
			writeChanges(w, resp)
			if generated != "" && !dryRun {
				fmt.Fprintf(w, "%s: %s\n", catalog().T("passwords.password_generated"), generated)
			}
			if !dryRun {
				fmt.Fprintf(w, "✓ %s: %s\n", catalog().T("passwords.update_success"), after.Title)
			}
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without saving them")
	return cmd
}

func newEntryRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id|title>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an entry",
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

			e, err := resolveEntry(ctx, client, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
					fmt.Sprintf("%s %q? [y/N] ", catalog().T("passwords.delete_password"), e.Title))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "Cancelled")
					return nil
				}
			}

			if err := client.DeleteEntry(ctx, e.ID); err != nil {
				return err
			}
			notifyEntry(ctx, log, notify.NewEntryRemovedEvent(e.Title))

			if IsJSONOutput() {
				return newFormatter(cmd).JSON(map[string]any{"id": e.ID, "title": e.Title, "deleted": true})
			}
			fmt.Fprintf(w, "✓ %s: %s\n", catalog().T("passwords.delete_success"), e.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func newEntryGenerateCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Print a password generated by the server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLength(length); err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			pw, err := client.GeneratePassword(ctx, length)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return newFormatter(cmd).JSON(map[string]any{"password": pw, "length": len(pw)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), pw)
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", api.DefaultPasswordLength, "Password length")
	return cmd
}

// confirm asks a yes/no question. Input that is not a terminal must use
// --yes.
func confirm(in io.Reader, prompt io.Writer, question string) (bool, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, output.NewCLIError("refusing to delete without confirmation").
			WithHint("Pass --yes to delete non-interactively").
			WithCode("CONFIRMATION_REQUIRED")
	}
	fmt.Fprint(prompt, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// notifyEntry forwards an entry change to the configured channels.
func notifyEntry(ctx context.Context, log logging.Logger, ev notify.Event) {
	n := newNotifier()
	if n == nil || !n.Enabled(ev.Type) {
		return
	}
	if err := n.Notify(ctx, ev); err != nil {
		log.Warn(ctx, "notification failed", "event", string(ev.Type), "error", err)
	}
}
