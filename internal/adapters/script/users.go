package script

import (
	"context"
)

// User is an account record as the scripting service reports it.
type User struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Name        string          `json:"name,omitempty"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

type userEnvelope struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

// Login checks credentials against the backend. A wrong username or
// password comes back as a *BackendError.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	return c.userCall(ctx, "login", Payload{
		"username": username,
		"password": password,
	})
}

// Register creates a customer account and returns it.
func (c *Client) Register(ctx context.Context, username, password, name, phone, lineID string) (*User, error) {
	return c.userCall(ctx, "register", Payload{
		"username": username,
		"password": password,
		"name":     name,
		"phone":    phone,
		"lineId":   lineID,
	})
}

// GetUser fetches the current account record, used for session checks.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	return c.userCall(ctx, "getUser", Payload{"userId": userID})
}

func (c *Client) userCall(ctx context.Context, action string, payload Payload) (*User, error) {
	resp, err := c.call(ctx, action, payload)
	if err != nil {
		return nil, err
	}

	var body userEnvelope
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	if body.User == nil {
		return nil, &BackendError{Action: action, Message: "no user in response"}
	}
	return body.User, nil
}
