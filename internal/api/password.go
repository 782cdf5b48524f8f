package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Password length bounds accepted by GeneratePassword.
const (
	DefaultPasswordLength = 16
	MinPasswordLength     = 8
	MaxPasswordLength     = 128
)

type generatedPassword struct {
	Password string `json:"password"`
}

// GeneratePassword asks the server for a random password of length
// characters. A length of 0 uses DefaultPasswordLength.
func (c *Client) GeneratePassword(ctx context.Context, length int) (string, error) {
	if length == 0 {
		length = DefaultPasswordLength
	}
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("password length must be between %d and %d", MinPasswordLength, MaxPasswordLength)
	}
	var out generatedPassword
	endpoint := c.endpoint("generate-password") + "?length=" + strconv.Itoa(length)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return "", err
	}
	if out.Password == "" {
		return "", errors.New("server returned an empty password")
	}
	return out.Password, nil
}
