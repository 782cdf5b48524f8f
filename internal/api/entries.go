package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// CustomField is a free-form name/value pair on an entry.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entry is a password entry as stored by the server.
type Entry struct {
	ID           string        `json:"id,omitempty"`
	GroupID      string        `json:"group_id,omitempty"`
	Title        string        `json:"title"`
	Username     string        `json:"username"`
	Password     string        `json:"password,omitempty"`
	URL          string        `json:"url,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	HaveTOTP     bool          `json:"have_totp"`
	TOTPToken    string        `json:"totp_token,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// Validate checks the fields the server requires.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("title is required")
	}
	if e.HaveTOTP && strings.TrimSpace(e.TOTPToken) == "" && e.ID == "" {
		return errors.New("a TOTP secret is required when one-time codes are enabled")
	}
	return nil
}

// ListEntries returns every entry.
func (c *Client) ListEntries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := c.do(ctx, http.MethodGet, c.endpoint("entries"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEntry returns one entry.
func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	var out Entry
	if err := c.do(ctx, http.MethodGet, c.endpoint("entries", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEntry stores a new entry and returns it with its server id. An entry
// with a GroupID is created inside that group.
func (c *Client) CreateEntry(ctx context.Context, e Entry) (*Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	endpoint := c.endpoint("entries")
	if e.GroupID != "" {
		endpoint = c.endpoint("groups", e.GroupID, "entries")
	}
	var out Entry
	if err := c.do(ctx, http.MethodPost, endpoint, e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEntry replaces entry id.
func (c *Client) UpdateEntry(ctx context.Context, id string, e Entry) (*Entry, error) {
	e.ID = id
	if err := e.Validate(); err != nil {
		return nil, err
	}
	var out Entry
	if err := c.do(ctx, http.MethodPut, c.endpoint("entries", id), e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEntry removes entry id.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("entries", id), nil, nil)
}
