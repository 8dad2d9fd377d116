// Spotify implementations of [Authorizer] and [StatsService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/pkce"
	"github.com/desertthunder/wrapped/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxTopItems is the largest page the top-items endpoints accept.
	MaxTopItems = 50
)

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// spotifyUser is the /me response.
type spotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []spotifyImage `json:"images"`
}

type spotifySimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []spotifyImage `json:"images"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Artists    []spotifySimpleArtist `json:"artists"`
	Album      spotifyAlbum          `json:"album"`
	DurationMS int                   `json:"duration_ms"`
}

// spotifyPage is a paginated top-items response. Items is a pointer so a missing key is detectable.
type spotifyPage[T any] struct {
	Items *[]T    `json:"items"`
	Total int     `json:"total"`
	Limit int     `json:"limit"`
	Next  *string `json:"next"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// AuthOpts configures [SpotifyAuth].
type AuthOpts struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string // defaults to the Spotify accounts service
	TokenURL    string // defaults to the Spotify accounts service
	HTTPClient  *http.Client
}

// SpotifyAuth implements [Authorizer] for the Spotify accounts service.
type SpotifyAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

var _ Authorizer = (*SpotifyAuth)(nil)

// NewSpotifyAuth creates a [SpotifyAuth] for a public client.
func NewSpotifyAuth(opts AuthOpts) (*SpotifyAuth, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrInvalidConfig)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = shared.DefaultScopes
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	config := &oauth2.Config{
		ClientID:    opts.ClientID,
		RedirectURL: opts.RedirectURI,
		Scopes:      opts.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &SpotifyAuth{config: config, httpClient: opts.HTTPClient}, nil
}

// RedirectURI returns the registered redirect URI requests are built with.
func (a *SpotifyAuth) RedirectURI() string {
	return a.config.RedirectURL
}

// AuthorizeURL returns the authorization request URL carrying the S256 challenge.
func (a *SpotifyAuth) AuthorizeURL(challenge, state string) string {
	return a.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}

// Exchange POSTs the authorization code and verifier to the token endpoint and returns the access token.
func (a *SpotifyAuth) Exchange(ctx context.Context, code, verifier string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	if verifier == "" {
		return "", shared.ErrMissingVerifier
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode != "" {
			return "", fmt.Errorf("%w: %s: %s", shared.ErrTokenExchange, rErr.ErrorCode, rErr.ErrorDescription)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	return token.AccessToken, nil
}

// ServiceOpts configures [SpotifyService].
type ServiceOpts struct {
	BaseURL           string // defaults to the Spotify Web API
	HTTPClient        *http.Client
	RequestsPerSecond float64 // 0 disables throttling
}

// SpotifyService implements [StatsService] against the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ StatsService = (*SpotifyService)(nil)

// NewSpotifyService creates a [SpotifyService].
func NewSpotifyService(opts ServiceOpts) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
	}
}

// doRequest performs an authenticated GET against the Web API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, token, endpoint string, query url.Values, result any) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrDecode, endpoint, err)
	}

	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	msg := strings.TrimSpace(string(body))
	var apiErr spotifyError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}

func topItemsQuery(timeRange models.TimeRange, limit int) url.Values {
	q := url.Values{}
	if timeRange == "" {
		timeRange = models.DefaultTimeRange
	}
	q.Set("time_range", string(timeRange))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(min(limit, MaxTopItems)))
	}
	return q
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, token string) (*models.Profile, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, token, "/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: /me: missing id", shared.ErrDecode)
	}

	return &models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Images:      mapImages(user.Images),
	}, nil
}

// TopArtists retrieves the user's top artists for timeRange.
func (s *SpotifyService) TopArtists(ctx context.Context, token string, timeRange models.TimeRange, limit int) ([]models.Artist, error) {
	var page spotifyPage[spotifyArtist]
	if err := s.doRequest(ctx, token, "/me/top/artists", topItemsQuery(timeRange, limit), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: /me/top/artists: missing items", shared.ErrDecode)
	}

	artists := make([]models.Artist, 0, len(*page.Items))
	for _, a := range *page.Items {
		artists = append(artists, models.Artist{
			ID:     a.ID,
			Name:   a.Name,
			Genres: a.Genres,
			Images: mapImages(a.Images),
		})
	}
	return artists, nil
}

// TopTracks retrieves the user's top tracks for timeRange.
func (s *SpotifyService) TopTracks(ctx context.Context, token string, timeRange models.TimeRange, limit int) ([]models.Track, error) {
	var page spotifyPage[spotifyTrack]
	if err := s.doRequest(ctx, token, "/me/top/tracks", topItemsQuery(timeRange, limit), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: /me/top/tracks: missing items", shared.ErrDecode)
	}

	tracks := make([]models.Track, 0, len(*page.Items))
	for _, t := range *page.Items {
		track := models.Track{
			ID:       t.ID,
			Name:     t.Name,
			Duration: t.DurationMS / 1000,
			Album: models.Album{
				ID:     t.Album.ID,
				Name:   t.Album.Name,
				Images: mapImages(t.Album.Images),
			},
		}
		for _, a := range t.Artists {
			track.Artists = append(track.Artists, a.Name)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func mapImages(images []spotifyImage) []models.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.Image, len(images))
	for i, img := range images {
		out[i] = models.Image{URL: img.URL, Height: img.Height, Width: img.Width}
	}
	return out
}
