package auth

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var ErrAuthExpiredAndUnrefreshable = errors.New("no usable credential: cached token missing, expired or unrefreshable and authorization failed")

// Tokens this close to expiry are treated as expired.
const expiryDelta = 10 * time.Second

// Credential is an immutable snapshot of the bearer token material.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// State classifies a cached credential.
type State int

const (
	StateValid State = iota
	StateRefreshable
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateRefreshable:
		return "refreshable"
	default:
		return "terminal"
	}
}

// NextState decides what must happen to c at time now. A zero ExpiresAt never expires.
func NextState(c Credential, now time.Time) State {
	if c.AccessToken != "" && (c.ExpiresAt.IsZero() || now.Add(expiryDelta).Before(c.ExpiresAt)) {
		return StateValid
	}
	if c.RefreshToken != "" {
		return StateRefreshable
	}
	return StateTerminal
}

// FromToken converts an oauth2 token.
func FromToken(tok *oauth2.Token) Credential {
	return Credential{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// Token converts back to an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}
