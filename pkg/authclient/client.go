// Package authclient is a small Go client for the cartworks auth
// service. It mirrors the service's request and response types, so the
// server's handlers import it too and the two cannot drift apart.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one auth service instance. The zero value is not
// usable; construct with New.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a new account and returns it with its initial token
// pair. The account starts unverified; the service mails out a
// verification token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	var out RegisterResponse
	err := c.do(ctx, http.MethodPost, "/v1/register", "", req, &out)
	return out, err
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/login", "", LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Refresh exchanges a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/refresh", "", RefreshRequest{RefreshToken: refreshToken}, &out)
	return out, err
}

// Logout revokes the presented access token and the subject's active
// refresh token.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/v1/logout", accessToken, nil, nil)
}

// VerifyEmail consumes an emailed verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	path := "/v1/verify-email?token=" + url.QueryEscape(token)
	return c.do(ctx, http.MethodGet, path, "", nil, nil)
}

// ResendVerification asks for a fresh verification token.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/v1/verify-email/resend", "", ResendVerificationRequest{Email: email}, nil)
}

// RequestPasswordReset asks the service to mail a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/v1/password-reset/request", "", PasswordResetRequest{Email: email}, nil)
}

// ConfirmPasswordReset redeems a reset code for a new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	req := PasswordResetConfirmRequest{Email: email, Code: code, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/v1/password-reset/confirm", "", req, nil)
}

// Me returns the account behind the access token.
func (c *Client) Me(ctx context.Context, accessToken string) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodGet, "/v1/me", accessToken, nil, &out)
	return out, err
}

// do performs one request/response cycle. Non-2xx responses are decoded
// into *APIError so callers can match on the code.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = fmt.Sprintf("unexpected response with status %d", resp.StatusCode)
	}
	return apiErr
}
