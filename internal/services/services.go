// package services defines the provider-facing interfaces used by the stats flow
package services

import (
	"context"

	"github.com/desertthunder/wrapped/internal/models"
)

// Authorizer builds authorization requests and redeems authorization codes for a public (PKCE) client.
type Authorizer interface {
	// AuthorizeURL returns the provider URL the user must visit. state is omitted from the query when empty.
	AuthorizeURL(challenge, state string) string

	// Exchange trades an authorization code and its verifier for an access token.
	Exchange(ctx context.Context, code, verifier string) (string, error)
}

// StatsService reads the listening statistics of the user owning token.
type StatsService interface {
	// UserProfile retrieves the current user's profile.
	UserProfile(ctx context.Context, token string) (*models.Profile, error)

	// TopArtists retrieves ranked top artists. limit <= 0 uses the provider default.
	TopArtists(ctx context.Context, token string, timeRange models.TimeRange, limit int) ([]models.Artist, error)

	// TopTracks retrieves ranked top tracks. limit <= 0 uses the provider default.
	TopTracks(ctx context.Context, token string, timeRange models.TimeRange, limit int) ([]models.Track, error)
}
