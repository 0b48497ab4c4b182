package api

import (
	"context"
	"fmt"

	"github.com/duetapp/duet/internal/workspace"
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type LoginResponse struct {
	Tokens
	User User `json:"user"`
}

// Login exchanges credentials for a token pair and the user.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	resp, err := c.request(ctx, "").SetBody(creds).SetResult(&out).Post("/auth/login")
	if err := check("login", resp, err); err != nil {
		return LoginResponse{}, err
	}
	if out.AccessToken == "" {
		return LoginResponse{}, fmt.Errorf("login: response carried no access token")
	}
	return out, nil
}

// Refresh trades a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	resp, err := c.request(ctx, "").
		SetBody(map[string]string{"refreshToken": refreshToken}).
		SetResult(&out).
		Post("/auth/refresh")
	if err := check("refresh", resp, err); err != nil {
		return Tokens{}, err
	}
	if out.AccessToken == "" {
		return Tokens{}, fmt.Errorf("refresh: response carried no access token")
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// Logout revokes the session server-side.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.request(ctx, accessToken).Post("/auth/logout")
	return check("logout", resp, err)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context, accessToken string) (User, error) {
	var out User
	resp, err := c.request(ctx, accessToken).SetResult(&out).Get("/users/me")
	if err := check("get profile", resp, err); err != nil {
		return User{}, err
	}
	return out, nil
}

// Workspaces lists the workspaces the user belongs to.
func (c *Client) Workspaces(ctx context.Context, accessToken string) ([]workspace.Workspace, error) {
	var out struct {
		Workspaces []workspace.Workspace `json:"workspaces"`
	}
	resp, err := c.request(ctx, accessToken).SetResult(&out).Get("/workspaces")
	if err := check("list workspaces", resp, err); err != nil {
		return nil, err
	}
	return out.Workspaces, nil
}
