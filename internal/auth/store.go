package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// LocalSession is the session key used by transports that have no browser
// session of their own (the stdio/MCP binding).
const LocalSession = "local"

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// User is the subset of the identity provider's userinfo payload the
// assistant surfaces to the client.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Store keeps credentials keyed by session and refreshes them lazily.
// Concurrent refreshes for the same session are collapsed into one token
// endpoint call.
type Store struct {
	// UserInfoURL is the provider's userinfo endpoint; set once at
	// construction, overridable before use.
	UserInfoURL string

	mu         sync.RWMutex
	cfg        *oauth2.Config
	creds      map[string]*Credential
	sf         singleflight.Group
	stateStore map[string]time.Time
	now        func() time.Time
}

// NewStore creates a credential store backed by the given OAuth2 config.
func NewStore(cfg *oauth2.Config) *Store {
	return &Store{
		UserInfoURL: defaultUserInfoURL,
		cfg:         cfg,
		creds:       make(map[string]*Credential),
		stateStore:  make(map[string]time.Time),
		now:         time.Now,
	}
}

// Get returns the credential stored for sessionID, or nil.
func (s *Store) Get(sessionID string) *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds[sessionID]
}

// Put stores a credential for sessionID.
func (s *Store) Put(sessionID string, cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds[sessionID] = cred
}

// Delete drops the credential for sessionID on disconnect.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, sessionID)
}

// EnsureValid returns a usable credential, refreshing it first when it is
// within the skew window of its expiry. The second return value reports
// whether a refresh happened and the caller should persist the result.
func (s *Store) EnsureValid(ctx context.Context, cred *Credential) (*Credential, bool, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, false, ErrNotAuthenticated
	}

	if cred.Valid(s.now()) {
		return cred, false, nil
	}

	refreshed, err := s.refresh(ctx, cred)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	return refreshed, true, nil
}

// EnsureSession is the keyed variant of EnsureValid. Concurrent calls for
// the same stale session perform a single refresh; every caller observes
// the winning credential.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) (*Credential, bool, error) {
	cred := s.Get(sessionID)
	if cred == nil || cred.AccessToken == "" {
		return nil, false, ErrNotAuthenticated
	}

	if cred.Valid(s.now()) {
		return cred, false, nil
	}

	v, err, _ := s.sf.Do(sessionID, func() (any, error) {
		cur := s.Get(sessionID)
		if cur == nil {
			return nil, errors.New("session removed")
		}
		if cur.Valid(s.now()) {
			// Another caller refreshed while we waited.
			return cur, nil
		}

		refreshed, err := s.refresh(ctx, cur)
		if err != nil {
			return nil, err
		}
		s.Put(sessionID, refreshed)

		return refreshed, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	refreshed := v.(*Credential)

	return refreshed, refreshed != cred, nil
}

// refresh performs a refresh-token grant against the provider's token
// endpoint. The refresh token is preserved; Google does not rotate it on
// refresh grants.
func (s *Store) refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred.RefreshToken == "" {
		return nil, errors.New("no refresh token")
	}

	src := s.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("tokenSource.Token failed: %w", err)
	}
	if tok.Expiry.IsZero() {
		return nil, errors.New("refresh response missing expiry")
	}

	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    tok.Expiry.UnixMilli(),
	}, nil
}

// AuthCodeURL builds the provider consent URL with offline access, forced
// consent and a short-lived random state.
func (s *Store) AuthCodeURL() (string, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return "", ErrOAuthConfig
	}

	state, err := s.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return s.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (s *Store) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.stateStore[state] = now.Add(5 * time.Minute)

	for st, exp := range s.stateStore {
		if exp.Before(now) {
			delete(s.stateStore, st)
		}
	}

	return state, nil
}

func (s *Store) validateState(state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.stateStore[state]
	if !exists {
		return false
	}

	delete(s.stateStore, state)

	return !s.now().After(expiry)
}

// Exchange trades an authorization code for a credential after validating
// state. The caller decides under which session key(s) to store it.
func (s *Store) Exchange(ctx context.Context, code, state string) (*Credential, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, ErrOAuthConfig
	}

	if !s.validateState(state) {
		return nil, errors.New("invalid or expired state parameter")
	}

	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UnixMilli(),
	}, nil
}

// UserInfo fetches the authenticated user's profile with the credential's
// bearer token.
func (s *Store) UserInfo(ctx context.Context, cred *Credential) (*User, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpClient.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	user := &User{}
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
	}

	return user, nil
}
