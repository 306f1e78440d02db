package domain

import "time"

// TokenPair is what the session flows hand back: a signed access token for
// API calls and a signed refresh token for minting new access tokens.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type,omitempty"` // always "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}
