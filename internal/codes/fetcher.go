package codes

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dicklesworthstone/otpdash/internal/api"
)

// Fetcher obtains codes from the server.
type Fetcher interface {
	FetchCode(ctx context.Context, id string) (Code, error)
	FetchAll(ctx context.Context) ([]Listed, error)
	FetchDetails(ctx context.Context, id string) (Details, error)
}

// HTTPFetcher is the Fetcher backed by the server's HTTP API. Every error it
// returns is a *FetchError.
type HTTPFetcher struct {
	client *api.Client
	clock  Clock
	window int
}

// NewHTTPFetcher wraps client. window is used when a response carries no
// interval; zero means DefaultWindowSeconds.
func NewHTTPFetcher(client *api.Client, clock Clock, window int) *HTTPFetcher {
	if clock == nil {
		clock = RealClock()
	}
	if window <= 0 {
		window = DefaultWindowSeconds
	}
	return &HTTPFetcher{client: client, clock: clock, window: window}
}

// FetchCode fetches the current code of one entry.
func (f *HTTPFetcher) FetchCode(ctx context.Context, id string) (Code, error) {
	resp, err := f.client.Code(ctx, id)
	if err != nil {
		return Code{}, normalize(id, err)
	}
	return f.code(resp.Code, resp.RemainingSeconds, resp.Interval), nil
}

// FetchAll fetches every token at once for the dashboard-list mode.
func (f *HTTPFetcher) FetchAll(ctx context.Context) ([]Listed, error) {
	resp, err := f.client.Codes(ctx)
	if err != nil {
		return nil, normalize("", err)
	}
	out := make([]Listed, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		out = append(out, Listed{
			Name: t.Name,
			Code: f.code(t.CurrentCode, t.SecondsRemaining, 0),
		})
	}
	return out, nil
}

// FetchDetails fetches the detail-view payload of one entry.
func (f *HTTPFetcher) FetchDetails(ctx context.Context, id string) (Details, error) {
	resp, err := f.client.Details(ctx, id)
	if err != nil {
		return Details{}, normalize(id, err)
	}
	name := resp.Name
	if name == "" {
		name = id
	}
	return Details{
		Name:   name,
		Code:   f.code(resp.Current(), resp.Remaining(), resp.Interval),
		Secret: resp.Secret,
		QRCode: resp.QRCode,
	}, nil
}

func (f *HTTPFetcher) code(value string, remaining, interval int) Code {
	if interval <= 0 {
		interval = f.window
	}
	return Code{
		Value:     value,
		Remaining: remaining,
		Window:    interval,
		FetchedAt: f.clock.Now(),
	}
}

// normalize maps client errors onto FetchError.
func normalize(id string, err error) error {
	var se *api.StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = http.StatusText(se.Status)
		}
		return &FetchError{
			Kind:    KindServer,
			EntryID: id,
			Status:  se.Status,
			Message: msg,
			Err:     err,
		}
	}
	var de *api.DecodeError
	if errors.As(err, &de) {
		return &FetchError{
			Kind:    KindServer,
			EntryID: id,
			Status:  de.Status,
			Message: "malformed response",
			Err:     err,
		}
	}
	return &FetchError{
		Kind:    KindTransport,
		EntryID: id,
		Message: "unreachable",
		Err:     err,
	}
}

// SoonestBoundary returns a Code whose Remaining is the smallest of tokens,
// so a batch refresh lands on the first expiring token. An empty listing
// yields a full window.
func SoonestBoundary(tokens []Listed, window int) Code {
	if window <= 0 {
		window = DefaultWindowSeconds
	}
	c := Code{Remaining: window, Window: window}
	for i, t := range tokens {
		if i == 0 || t.Code.Remaining < c.Remaining {
			c.Remaining = t.Code.Remaining
			c.FetchedAt = t.Code.FetchedAt
		}
		if t.Code.Window > 0 {
			c.Window = t.Code.Window
		}
	}
	return c
}
