package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"byronhub/internal/model"
)

// ErrEmptyToken is returned when login succeeds without a token.
var ErrEmptyToken = errors.New("login returned no token")

// Login exchanges an email for a session token.
func (c *Client) Login(ctx context.Context, email string) (string, error) {
	data, err := c.send(ctx, http.MethodPost, "/login", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	token := parseToken(data)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// parseToken accepts a bare token, a JSON string or {"token": "..."}.
func parseToken(data []byte) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(data, &obj) == nil {
		return strings.TrimSpace(obj.Token)
	}
	return strings.TrimSpace(string(data))
}

// Person fetches one person.
func (c *Client) Person(ctx context.Context, id model.ID) (*model.Person, error) {
	var p model.Person
	if err := c.doJSON(ctx, http.MethodGet, "/people/"+url.PathEscape(id.String()), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePersonRole changes the role of a person (manager only).
func (c *Client) UpdatePersonRole(ctx context.Context, id model.ID, role string) error {
	return c.doJSON(ctx, http.MethodPut, "/people/role/"+url.PathEscape(id.String()),
		map[string]string{"role": role}, nil)
}

// UpdatePersonDepartment changes the department of a person (manager only).
func (c *Client) UpdatePersonDepartment(ctx context.Context, id model.ID, department string) error {
	return c.doJSON(ctx, http.MethodPut, "/people/department/"+url.PathEscape(id.String()),
		map[string]string{"department": department}, nil)
}

// Notifications returns the notifications addressed to personID.
func (c *Client) Notifications(ctx context.Context, personID model.ID) ([]model.Notification, error) {
	var out []model.Notification
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/"+url.PathEscape(personID.String()), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
