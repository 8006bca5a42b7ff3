package client

import (
	"context"
	"net/http"
)

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Tokens is the token pair returned by the auth endpoints.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	Role       string `json:"role"`
	Tokens
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{method: http.MethodPost, template: "/auth/login", body: creds, out: &out, public: true})
	return out, err
}

// Register creates an account. The backend sends a verification email; the
// user must verify before logging in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, call{method: http.MethodPost, template: "/auth/register", body: reg, public: true})
}

// RefreshTokens renews the token pair.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	err := c.do(ctx, call{
		method:   http.MethodPost,
		template: "/auth/refreshToken",
		body:     map[string]string{"refreshToken": refreshToken},
		out:      &out,
		public:   true,
	})
	return out, err
}
