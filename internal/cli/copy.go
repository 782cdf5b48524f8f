package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

type copyResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Copied    string `json:"copied"` // "code" or "secret"
	Remaining int    `json:"remaining_seconds,omitempty"`
}

// printNotifier writes success notices to w. Failures are returned to the
// caller and reported by Execute.
type printNotifier struct {
	w io.Writer
}

func (p printNotifier) Notify(n codes.Notice) {
	if n.Level == codes.NoticeSuccess && !IsJSONOutput() {
		fmt.Fprintln(p.w, "✓ "+n.Message)
	}
}

func newCopyCmd() *cobra.Command {
	var secret bool
	cmd := &cobra.Command{
		Use:   "copy <id|title>",
		Short: "Copy the current code of an entry to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, args[0], secret)
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "Copy the TOTP secret instead of the code")
	return cmd
}

func runCopy(cmd *cobra.Command, ref string, secret bool) error {
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

	e, err := resolveEntry(ctx, client, ref)
	if err != nil {
		return err
	}
	if !e.HaveTOTP {
		return output.FromError(codes.ErrNoCode).WithCause(e.Title + " has no one-time codes")
	}

	fetcher := newFetcher(client)
	resp := copyResponse{ID: e.ID, Title: e.Title, Copied: "code"}
	var text string
	if secret {
		det, err := fetcher.FetchDetails(ctx, e.ID)
		if err != nil {
			return err
		}
		text, resp.Copied = det.Secret, "secret"
	} else {
		code, err := fetcher.FetchCode(ctx, e.ID)
		if err != nil {
			return err
		}
		text, resp.Remaining = code.Value, code.State().Remaining
	}
	if text == "" {
		return output.FromError(codes.ErrNoCode)
	}

	w := cmd.OutOrStdout()
	bridge := notify.NewBridge(ctx, newNotifier(), printNotifier{w: w}, log)
	adapter := codes.NewAdapter(nil, bridge, newCopier(log), catalog())
	err = adapter.CopyText(e.ID, text)
	bridge.Wait()
	if err != nil {
		return output.NewCLIError("failed to copy to the clipboard").
			WithCause(err.Error()).
			WithHint(output.HintClipboard).
			WithCode("CLIPBOARD_ERROR")
	}

	if IsJSONOutput() {
		return newFormatter(cmd).JSON(resp)
	}
	if !secret {
		fmt.Fprintf(w, "%s  %ds\n", e.Title, resp.Remaining)
	}
	return nil
}
