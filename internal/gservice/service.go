// Package gservice wraps the Google mail and calendar API surfaces used by
// the assistant. Clients are stateless: every call carries the caller's
// access token, so one client instance serves any number of sessions.
package gservice

import (
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

const defaultMaxResults = 10

func tokenOpts(accessToken string, extra []option.ClientOption) []option.ClientOption {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		})),
	}

	return append(opts, extra...)
}

func normalizeMaxResults(maxResults int64) int64 {
	if maxResults <= 0 {
		return defaultMaxResults
	}
	if maxResults > 50 {
		return 50
	}

	return maxResults
}
