// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/shared"
)

// MockStatsService is a test double for [services.StatsService].
//
// Each fetch returns its configured value or error and counts the call.
type MockStatsService struct {
	Profile    *models.Profile
	Artists    []models.Artist
	Tracks     []models.Track
	ProfileErr error
	ArtistsErr error
	TracksErr  error

	mu     sync.Mutex
	Calls  map[string]int
	Limits []int
	Ranges []models.TimeRange
	Tokens []string
}

func (m *MockStatsService) record(name, token string, tr models.TimeRange, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[name]++
	m.Tokens = append(m.Tokens, token)
	if name != "profile" {
		m.Ranges = append(m.Ranges, tr)
		m.Limits = append(m.Limits, limit)
	}
}

func (m *MockStatsService) UserProfile(ctx context.Context, token string) (*models.Profile, error) {
	m.record("profile", token, "", 0)
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	return m.Profile, nil
}

func (m *MockStatsService) TopArtists(ctx context.Context, token string, tr models.TimeRange, limit int) ([]models.Artist, error) {
	m.record("artists", token, tr, limit)
	if m.ArtistsErr != nil {
		return nil, m.ArtistsErr
	}
	return m.Artists, nil
}

func (m *MockStatsService) TopTracks(ctx context.Context, token string, tr models.TimeRange, limit int) ([]models.Track, error) {
	m.record("tracks", token, tr, limit)
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	if limit > 0 && limit < len(m.Tracks) {
		return m.Tracks[:limit], nil
	}
	return m.Tracks, nil
}

// CallCount returns how many times the named fetch ("profile", "artists", "tracks") ran.
func (m *MockStatsService) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// MockAuthorizer is a test double for [services.Authorizer].
type MockAuthorizer struct {
	Token       string
	ExchangeErr error

	mu        sync.Mutex
	Exchanges int
	Code      string
	Verifier  string
}

// AuthorizeURL encodes its arguments so tests can read them back.
func (m *MockAuthorizer) AuthorizeURL(challenge, state string) string {
	q := url.Values{}
	q.Set("code_challenge", challenge)
	if state != "" {
		q.Set("state", state)
	}
	return "https://accounts.example.com/authorize?" + q.Encode()
}

func (m *MockAuthorizer) Exchange(ctx context.Context, code, verifier string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Exchanges++
	m.Code, m.Verifier = code, verifier
	if m.ExchangeErr != nil {
		return "", m.ExchangeErr
	}
	return m.Token, nil
}

// MemoryVerifierStore is an in-memory [repositories.VerifierStore].
type MemoryVerifierStore struct {
	mu       sync.Mutex
	verifier string
	SaveErr  error
}

func (s *MemoryVerifierStore) Save(ctx context.Context, verifier string) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if verifier == "" {
		return fmt.Errorf("%w: empty verifier", shared.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifier = verifier
	return nil
}

func (s *MemoryVerifierStore) Take(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifier == "" {
		return "", shared.ErrMissingVerifier
	}
	v := s.verifier
	s.verifier = ""
	return v, nil
}

func (s *MemoryVerifierStore) Peek(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifier == "" {
		return "", shared.ErrMissingVerifier
	}
	return s.verifier, nil
}

func (s *MemoryVerifierStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifier = ""
	return nil
}

// SampleWrapped returns a fully populated [models.Wrapped].
func SampleWrapped() *models.Wrapped {
	tracks := []models.Track{
		{ID: "t1", Name: "Cruel Summer", Artists: []string{"Taylor Swift"}, Album: models.Album{Name: "Lover", Images: []models.Image{{URL: "https://i.scdn.co/lover"}}}, Duration: 178},
		{ID: "t2", Name: "Kill Bill", Artists: []string{"SZA"}, Album: models.Album{Name: "SOS", Images: []models.Image{{URL: "https://i.scdn.co/sos"}}}, Duration: 153},
		{ID: "t3", Name: "Flowers", Artists: []string{"Miley Cyrus"}, Album: models.Album{Name: "Endless Summer Vacation"}, Duration: 200},
	}
	return &models.Wrapped{
		Profile:   &models.Profile{ID: "u1", DisplayName: "Ada"},
		TimeRange: models.ShortTerm,
		TopArtists: []models.Artist{
			{ID: "a1", Name: "Taylor Swift", Genres: []string{"pop"}, Images: []models.Image{{URL: "https://i.scdn.co/taylor"}}},
			{ID: "a2", Name: "SZA", Genres: []string{"r&b", "pop"}},
		},
		TopTracks: tracks,
		TopGenre:  "pop",
		Top5:      tracks,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
