// package tasks implements the stats flow for a single user.
package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/pkce"
	"github.com/desertthunder/wrapped/internal/repositories"
	"github.com/desertthunder/wrapped/internal/services"
	"github.com/desertthunder/wrapped/internal/shared"
)

// Top5Limit is the number of tracks requested for the top 5 list.
const Top5Limit = 5

// Engine defines the stats flow.
type Engine interface {
	// Begin starts an authorization attempt and returns the URL the user must visit.
	Begin(ctx context.Context, state string) (string, error)

	// Complete redeems an authorization code for an access token.
	Complete(ctx context.Context, code string) (string, error)

	// Fetch gathers the user's stats for timeRange.
	Fetch(ctx context.Context, token string, timeRange models.TimeRange, progress chan<- ProgressUpdate) (*models.Wrapped, error)

	// TopGenre returns the most common genre among the user's top artists.
	TopGenre(ctx context.Context, token string, timeRange models.TimeRange) (string, bool, error)
}

// StatsEngine implements [Engine].
type StatsEngine struct {
	auth      services.Authorizer
	stats     services.StatsService
	verifiers repositories.VerifierStore
	logger    *log.Logger

	verifierLength int
}

var _ Engine = (*StatsEngine)(nil)

// NewStatsEngine creates a [StatsEngine]. A nil logger discards output.
func NewStatsEngine(auth services.Authorizer, stats services.StatsService, verifiers repositories.VerifierStore, logger *log.Logger) *StatsEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StatsEngine{
		auth:           auth,
		stats:          stats,
		verifiers:      verifiers,
		logger:         logger,
		verifierLength: pkce.DefaultVerifierLength,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *StatsEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Begin generates a fresh verifier, stores it, and returns the authorization URL for its challenge.
// Any previously pending verifier is replaced.
func (e *StatsEngine) Begin(ctx context.Context, state string) (string, error) {
	if e.auth == nil || e.verifiers == nil {
		return "", fmt.Errorf("%w: authorizer not initialized", shared.ErrServiceUnavailable)
	}

	pair, err := pkce.New(e.verifierLength)
	if err != nil {
		return "", err
	}

	if err := e.verifiers.Save(ctx, pair.Verifier); err != nil {
		return "", fmt.Errorf("failed to store verifier: %w", err)
	}

	e.logger.Debug("stored verifier", "length", len(pair.Verifier), "phase", Redirect)
	return e.auth.AuthorizeURL(pair.Challenge, state), nil
}

// Complete takes the stored verifier and exchanges code for an access token.
//
// The verifier is consumed even when the exchange fails; a new attempt must start with [StatsEngine.Begin].
func (e *StatsEngine) Complete(ctx context.Context, code string) (string, error) {
	if e.auth == nil || e.verifiers == nil {
		return "", fmt.Errorf("%w: authorizer not initialized", shared.ErrServiceUnavailable)
	}
	if code == "" {
		return "", fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	verifier, err := e.verifiers.Take(ctx)
	if err != nil {
		return "", err
	}

	e.logger.Debug("exchanging code", "phase", HasCode)
	token, err := e.auth.Exchange(ctx, code, verifier)
	if err != nil {
		return "", err
	}

	e.logger.Info("authorization complete", "phase", TokenExchanged)
	return token, nil
}

type fetchOperation struct {
	name    string
	phase   Phase
	message string
	run     func(ctx context.Context, w *models.Wrapped) error
}

// Fetch runs profile, artists, tracks, genre and top 5 in order. Each failure is logged and recorded in
// [models.Wrapped.Errors]; the run continues with that field empty.
//
// The returned error is non-nil only when ctx ends before every fetch has run.
func (e *StatsEngine) Fetch(ctx context.Context, token string, timeRange models.TimeRange, progress chan<- ProgressUpdate) (*models.Wrapped, error) {
	if e.stats == nil {
		return nil, fmt.Errorf("%w: stats service not initialized", shared.ErrServiceUnavailable)
	}
	if timeRange == "" {
		timeRange = models.DefaultTimeRange
	}

	result := &models.Wrapped{
		TimeRange:  timeRange,
		TopArtists: []models.Artist{},
		TopTracks:  []models.Track{},
		Top5:       []models.Track{},
	}

	ops := []fetchOperation{
		{name: "profile", phase: FetchProfile, message: "Fetching profile...", run: func(ctx context.Context, w *models.Wrapped) error {
			profile, err := e.stats.UserProfile(ctx, token)
			if err != nil {
				return err
			}
			w.Profile = profile
			return nil
		}},
		{name: "top_artists", phase: FetchArtists, message: "Fetching top artists...", run: func(ctx context.Context, w *models.Wrapped) error {
			artists, err := e.stats.TopArtists(ctx, token, timeRange, 0)
			if err != nil {
				return err
			}
			w.TopArtists = nonNil(artists)
			return nil
		}},
		{name: "top_tracks", phase: FetchTracks, message: "Fetching top tracks...", run: func(ctx context.Context, w *models.Wrapped) error {
			tracks, err := e.stats.TopTracks(ctx, token, timeRange, 0)
			if err != nil {
				return err
			}
			w.TopTracks = nonNil(tracks)
			return nil
		}},
		{name: "top_genre", phase: FetchGenre, message: "Finding top genre...", run: func(ctx context.Context, w *models.Wrapped) error {
			genre, _, err := e.TopGenre(ctx, token, timeRange)
			if err != nil {
				return err
			}
			w.TopGenre = genre
			return nil
		}},
		{name: "top_5", phase: FetchTop5, message: "Fetching top 5 tracks...", run: func(ctx context.Context, w *models.Wrapped) error {
			tracks, err := e.stats.TopTracks(ctx, token, timeRange, Top5Limit)
			if err != nil {
				return err
			}
			w.Top5 = nonNil(tracks)
			return nil
		}},
	}

	total := len(ops)
	logger := e.logger.With("time_range", timeRange)

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, fetchStartedUpdate(op, i+1, total))

		if err := op.run(ctx, result); err != nil {
			logger.Error("fetch failed", "step", op.name, "error", err)
			result.Errors = append(result.Errors, models.FetchError{Step: op.name, Err: err})
			e.sendProgress(progress, fetchFailedUpdate(op, i+1, total, err))
		}
	}

	e.sendProgress(progress, dataFetchedUpdate(total, len(result.Errors)))
	logger.Info("stats fetched", "phase", DataFetched, "failed", len(result.Errors))
	return result, nil
}

// TopGenre fetches the top artists for timeRange and returns their most common genre.
// ok is false when the artists carry no genres.
func (e *StatsEngine) TopGenre(ctx context.Context, token string, timeRange models.TimeRange) (string, bool, error) {
	if e.stats == nil {
		return "", false, fmt.Errorf("%w: stats service not initialized", shared.ErrServiceUnavailable)
	}

	artists, err := e.stats.TopArtists(ctx, token, timeRange, 0)
	if err != nil {
		return "", false, err
	}

	genre, ok := GenreOf(artists)
	return genre, ok, nil
}

// GenreOf flattens the artists' genre lists and returns the most frequent label.
func GenreOf(artists []models.Artist) (string, bool) {
	var genres []string
	for _, a := range artists {
		genres = append(genres, a.Genres...)
	}
	return shared.MostCommon(genres)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
