package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/clipboard"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/i18n"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/output"
)

// requestTimeout bounds one-shot commands such as show and entry add.
const requestTimeout = 30 * time.Second

func newClient() (*api.Client, error) {
	c, err := api.New(cfg.Server.URL,
		api.WithTimeout(cfg.Server.Timeout.Std()),
		api.WithHeaders(cfg.Server.Headers),
	)
	if err != nil {
		return nil, output.NewCLIError("invalid server URL").
			WithCause(err.Error()).
			WithHint("Set [server] url in the config file or pass --server").
			WithCode("CONFIG_INVALID")
	}
	return c, nil
}

func newFetcher(c *api.Client) *codes.HTTPFetcher {
	return codes.NewHTTPFetcher(c, codes.RealClock(), cfg.Server.WindowSeconds)
}

// openLogger returns the command's logger. --log-level sends records to
// stderr; otherwise they go to the configured file. The dashboard passes
// fileOnly so nothing is written over the screen.
func openLogger(fileOnly bool) (logging.Logger, func() error, error) {
	if logLevel != "" && !fileOnly {
		return logging.NewText(os.Stderr, logLevel), func() error { return nil }, nil
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.OpenFile(cfg.Log.Path, level)
}

func catalog() *i18n.Catalog {
	c, err := i18n.Load(cfg.UI.Lang)
	if err != nil {
		return i18n.MustLoad(i18n.DefaultLang)
	}
	return c
}

// newCopier is replaced in tests.
var newCopier = func(log logging.Logger) codes.Copier {
	cb, err := clipboard.New()
	if err != nil {
		log.Warn(context.Background(), "clipboard unavailable", "error", err)
		return clipboard.Unavailable(err)
	}
	log.Debug(context.Background(), "clipboard ready", "backend", cb.Backend())
	return cb
}

// newNotifier returns nil when notifications are switched off.
func newNotifier() *notify.Notifier {
	if !cfg.Notifications.Enabled {
		return nil
	}
	return notify.New(cfg.Notifications)
}

func resolveMode(name string) (codes.Mode, error) {
	if name == "" {
		name = cfg.Refresh.Mode
	}
	mode, ok := codes.ParseMode(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return mode, output.NewCLIError("unknown refresh mode: " + name).
			WithHint("Use --mode per-entry or --mode batch").
			WithCode("INVALID_FLAG")
	}
	return mode, nil
}

// resolveGroup finds a group by id, falling back to a unique
// case-insensitive name match.
func resolveGroup(ctx context.Context, client *api.Client, ref string) (*api.Group, error) {
	groups, err := client.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].ID == ref {
			return &groups[i], nil
		}
	}
	var match *api.Group
	for i := range groups {
		if !strings.EqualFold(groups[i].Name, ref) {
			continue
		}
		if match != nil {
			return nil, output.NewCLIError("more than one group is named " + ref).
				WithHint("Refer to the group by id; see 'otpdash entry group ls'").
				WithCode("AMBIGUOUS_GROUP")
		}
		match = &groups[i]
	}
	if match == nil {
		return nil, output.GroupNotFoundError(ref)
	}
	return match, nil
}

// scopeGroup resolves --group. It returns nil when the flag is unset.
func scopeGroup(ctx context.Context, client *api.Client) (*api.Group, error) {
	if groupFlag == "" {
		return nil, nil
	}
	return resolveGroup(ctx, client, groupFlag)
}

// scopedEntries lists the entries of group g, or every entry when g is nil.
func scopedEntries(ctx context.Context, client *api.Client, g *api.Group) ([]api.Entry, error) {
	if g == nil {
		return client.ListEntries(ctx)
	}
	return client.ListGroupEntries(ctx, g.ID)
}

// requirePerEntry rejects --group in batch mode, whose listing has no ids.
func requirePerEntry(mode codes.Mode) error {
	if groupFlag != "" && mode == codes.ModeBatch {
		return output.NewCLIError("--group needs per-entry mode").
			WithHint("Drop --mode batch or --group").
			WithCode("INVALID_FLAG")
	}
	return nil
}

// resolveEntry finds an entry by id, falling back to a unique
// case-insensitive title match within the --group scope.
func resolveEntry(ctx context.Context, client *api.Client, ref string) (*api.Entry, error) {
	g, err := scopeGroup(ctx, client)
	if err != nil {
		return nil, err
	}
	e, err := client.GetEntry(ctx, ref)
	if err == nil && (g == nil || e.GroupID == g.ID) {
		return e, nil
	}
	if err != nil && !api.IsNotFound(err) {
		return nil, err
	}

	entries, err := scopedEntries(ctx, client, g)
	if err != nil {
		return nil, err
	}
	var match *api.Entry
	for i := range entries {
		if !strings.EqualFold(entries[i].Title, ref) {
			continue
		}
		if match != nil {
			return nil, output.NewCLIError("more than one entry is titled " + ref).
				WithHint("Refer to the entry by id; see 'otpdash entry ls'").
				WithCode("AMBIGUOUS_ENTRY")
		}
		match = &entries[i]
	}
	if match == nil {
		return nil, output.EntryNotFoundError(ref)
	}
	return match, nil
}
