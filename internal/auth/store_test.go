package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/hal9000y/chat-assistant/internal/auth"
)

func newTokenServer(t *testing.T, hits *atomic.Int32, status int, body string, delay time.Duration) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		time.Sleep(delay)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newOauthCfg(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost/api/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "http://localhost/authorize",
			TokenURL: tokenURL,
		},
	}
}

func TestEnsureValidFreshCredentialSkipsNetwork(t *testing.T) {
	hits := &atomic.Int32{}
	srv := newTokenServer(t, hits, http.StatusOK, `{}`, 0)

	store := auth.NewStore(newOauthCfg(srv.URL))

	cred := &auth.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}

	got, refreshed, err := store.EnsureValid(context.Background(), cred)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Same(t, cred, got)
	assert.Equal(t, int32(0), hits.Load())
}

func TestEnsureValidRefreshesStaleCredential(t *testing.T) {
	hits := &atomic.Int32{}
	srv := newTokenServer(t, hits, http.StatusOK,
		`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`, 0)

	store := auth.NewStore(newOauthCfg(srv.URL))

	// Inside the 60s skew window, so a refresh is due.
	cred := &auth.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(30 * time.Second).UnixMilli(),
	}

	got, refreshed, err := store.EnsureValid(context.Background(), cred)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.Greater(t, got.ExpiresAt, cred.ExpiresAt)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEnsureValidRefreshFailure(t *testing.T) {
	hits := &atomic.Int32{}
	srv := newTokenServer(t, hits, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Token has been revoked"}`, 0)

	store := auth.NewStore(newOauthCfg(srv.URL))

	cred := &auth.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().UnixMilli(),
	}

	_, _, err := store.EnsureValid(context.Background(), cred)
	require.ErrorIs(t, err, auth.ErrAuthExpired)
}

func TestEnsureValidMissingCredential(t *testing.T) {
	store := auth.NewStore(newOauthCfg("http://localhost/token"))

	_, _, err := store.EnsureValid(context.Background(), nil)
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)

	_, _, err = store.EnsureValid(context.Background(), &auth.Credential{RefreshToken: "refresh-1"})
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestEnsureSessionUnknownSession(t *testing.T) {
	store := auth.NewStore(newOauthCfg("http://localhost/token"))

	_, _, err := store.EnsureSession(context.Background(), "nope")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestEnsureSessionSingleRefresh(t *testing.T) {
	hits := &atomic.Int32{}
	srv := newTokenServer(t, hits, http.StatusOK,
		`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`, 100*time.Millisecond)

	store := auth.NewStore(newOauthCfg(srv.URL))
	store.Put("sess-1", &auth.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().UnixMilli(),
	})

	const callers = 8

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]*auth.Credential, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], _, errs[i] = store.EnsureSession(context.Background(), "sess-1")
		}()
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", results[i].AccessToken)
	}
	assert.Equal(t, int32(1), hits.Load(), "concurrent callers must share one refresh")

	stored := store.Get("sess-1")
	require.NotNil(t, stored)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestExchange(t *testing.T) {
	hits := &atomic.Int32{}
	srv := newTokenServer(t, hits, http.StatusOK,
		`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3599}`, 0)

	store := auth.NewStore(newOauthCfg(srv.URL))

	authURL, err := store.AuthCodeURL()
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "test-client-id", parsed.Query().Get("client_id"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Equal(t, "consent", parsed.Query().Get("prompt"))

	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	cred, err := store.Exchange(context.Background(), "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Greater(t, cred.ExpiresAt, time.Now().UnixMilli())
}

func TestExchangeRejectsReplayedState(t *testing.T) {
	srv := newTokenServer(t, &atomic.Int32{}, http.StatusOK,
		`{"access_token":"access-1","token_type":"Bearer","expires_in":3599}`, 0)

	store := auth.NewStore(newOauthCfg(srv.URL))

	authURL, err := store.AuthCodeURL()
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	_, err = store.Exchange(context.Background(), "auth-code", state)
	require.NoError(t, err)

	_, err = store.Exchange(context.Background(), "auth-code", state)
	require.Error(t, err)
}

func TestOAuthConfigMissing(t *testing.T) {
	store := auth.NewStore(&oauth2.Config{})

	_, err := store.AuthCodeURL()
	require.ErrorIs(t, err, auth.ErrOAuthConfig)

	_, err = store.Exchange(context.Background(), "code", "state")
	require.ErrorIs(t, err, auth.ErrOAuthConfig)
}

func TestUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"email":"test@test.com","name":"Test User","picture":"http://p/1.png"}`)
	}))
	defer srv.Close()

	store := auth.NewStore(newOauthCfg("http://localhost/token"))
	store.UserInfoURL = srv.URL

	user, err := store.UserInfo(context.Background(), &auth.Credential{AccessToken: "access-1"})
	require.NoError(t, err)
	assert.Equal(t, &auth.User{Email: "test@test.com", Name: "Test User", Picture: "http://p/1.png"}, user)

	_, err = store.UserInfo(context.Background(), &auth.Credential{AccessToken: "wrong"})
	require.Error(t, err)
}

func TestCredentialValid(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		cred     *auth.Credential
		expected bool
	}{
		{name: "nil", cred: nil, expected: false},
		{name: "no access token", cred: &auth.Credential{ExpiresAt: now.Add(time.Hour).UnixMilli()}, expected: false},
		{
			name:     "fresh",
			cred:     &auth.Credential{AccessToken: "a", ExpiresAt: now.Add(61 * time.Second).UnixMilli()},
			expected: true,
		},
		{
			name:     "inside skew window",
			cred:     &auth.Credential{AccessToken: "a", ExpiresAt: now.Add(60 * time.Second).UnixMilli()},
			expected: false,
		},
		{
			name:     "expired",
			cred:     &auth.Credential{AccessToken: "a", ExpiresAt: now.Add(-time.Hour).UnixMilli()},
			expected: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cred.Valid(now))
		})
	}
}
