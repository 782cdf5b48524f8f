package api

import (
	"context"
	"net/http"
)

// CodeResponse is the body of GET /codes/{id}.
type CodeResponse struct {
	Code             string `json:"code"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Interval         int    `json:"interval"`
}

// Token is one item of GET /codes.
type Token struct {
	Name             string `json:"name"`
	CurrentCode      string `json:"current_code"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

// TokensResponse is the body of GET /codes.
type TokensResponse struct {
	Tokens []Token `json:"tokens"`
}

// DetailsResponse is the body of GET /codes/{id}/details.
type DetailsResponse struct {
	Name             string `json:"name"`
	Code             string `json:"code"`
	CurrentCode      string `json:"current_code"`
	RemainingSeconds int    `json:"remaining_seconds"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Interval         int    `json:"interval"`
	Secret           string `json:"secret"`
	QRCode           string `json:"qr_code"`
}

// Current returns the code, whichever field name the server used.
func (d DetailsResponse) Current() string {
	if d.Code != "" {
		return d.Code
	}
	return d.CurrentCode
}

// Remaining returns the seconds left, whichever field name the server used.
func (d DetailsResponse) Remaining() int {
	if d.RemainingSeconds != 0 {
		return d.RemainingSeconds
	}
	return d.SecondsRemaining
}

// Code fetches the current code of one entry.
func (c *Client) Code(ctx context.Context, id string) (*CodeResponse, error) {
	var out CodeResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("codes", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Codes fetches every token in one call.
func (c *Client) Codes(ctx context.Context) (*TokensResponse, error) {
	var out TokensResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("codes"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Details fetches the code plus secret and QR image of one entry.
func (c *Client) Details(ctx context.Context, id string) (*DetailsResponse, error) {
	var out DetailsResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("codes", id, "details"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
