// Package auth manages per-session OAuth2 credentials: storage, the
// authorization-code exchange, and lazy refresh before downstream calls.
package auth

import (
	"errors"
	"time"
)

// refreshSkew is subtracted from the recorded expiry when deciding whether
// a credential is still usable, so tokens about to expire mid-request get
// refreshed up front.
const refreshSkew = 60 * time.Second

// ErrNotAuthenticated indicates no credential is available for the caller.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrAuthExpired indicates the refresh grant failed and the user must
// reconnect their account.
var ErrAuthExpired = errors.New("session expired")

// ErrOAuthConfig indicates the OAuth client id/secret are not configured.
var ErrOAuthConfig = errors.New("oauth client not configured")

// Credential is the access/refresh token pair handed back and forth with
// the client. ExpiresAt is epoch milliseconds so the value round-trips
// with the browser side unchanged.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Valid reports whether the access token can still be used at now, keeping
// the refreshSkew buffer before the recorded expiry.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}

	return now.UnixMilli() < c.ExpiresAt-refreshSkew.Milliseconds()
}
