package codes

import (
	"errors"
	"fmt"
)

// ErrStaleResult marks a fetch that resolved after its entry was cancelled
// or re-registered. It is only ever logged.
var ErrStaleResult = errors.New("codes: stale result discarded")

// ErrNoCode is returned by Adapter.Copy when the entry has no code yet.
var ErrNoCode = errors.New("codes: no code to copy")

// FetchErrorKind separates unreachable servers from servers that answered
// with an error.
type FetchErrorKind int

const (
	KindTransport FetchErrorKind = iota
	KindServer
)

func (k FetchErrorKind) String() string {
	if k == KindServer {
		return "server"
	}
	return "transport"
}

// FetchError is the uniform failure of a code fetch.
type FetchError struct {
	Kind    FetchErrorKind
	EntryID string
	Status  int    // HTTP status for KindServer
	Message string // server supplied message, or "unreachable"
	Err     error
}

func (e *FetchError) Error() string {
	if e.Kind == KindServer {
		if e.EntryID != "" {
			return fmt.Sprintf("fetch %s: server returned %d: %s", e.EntryID, e.Status, e.Message)
		}
		return fmt.Sprintf("fetch: server returned %d: %s", e.Status, e.Message)
	}
	if e.EntryID != "" {
		return fmt.Sprintf("fetch %s: %s", e.EntryID, e.Message)
	}
	return "fetch: " + e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransport reports whether err is an unreachable-server FetchError.
func IsTransport(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTransport
}

// IsServer reports whether err is a FetchError carrying a server response.
func IsServer(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindServer
}
