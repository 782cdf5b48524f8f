package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Group is a named set of entries.
type Group struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Validate checks the fields the server requires.
func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("group name is required")
	}
	return nil
}

// ListGroups returns every group.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := c.do(ctx, http.MethodGet, c.endpoint("groups"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup stores a new group and returns it with its server id.
func (c *Client) CreateGroup(ctx context.Context, g Group) (*Group, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var out Group
	if err := c.do(ctx, http.MethodPost, c.endpoint("groups"), g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGroup replaces the name and description of group id.
func (c *Client) UpdateGroup(ctx context.Context, id string, g Group) (*Group, error) {
	g.ID = id
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var out Group
	if err := c.do(ctx, http.MethodPut, c.endpoint("groups", id), g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup removes group id together with its entries.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("groups", id), nil, nil)
}

// ListGroupEntries returns the entries of group id.
func (c *Client) ListGroupEntries(ctx context.Context, id string) ([]Entry, error) {
	var out []Entry
	if err := c.do(ctx, http.MethodGet, c.endpoint("groups", id, "entries"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
