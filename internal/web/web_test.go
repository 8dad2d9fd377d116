package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/pkce"
	"github.com/desertthunder/wrapped/internal/repositories"
	"github.com/desertthunder/wrapped/internal/services"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	tu "github.com/desertthunder/wrapped/internal/testing"
	"github.com/desertthunder/wrapped/internal/view"
)

type fixture struct {
	app   *App
	auth  *tu.MockAuthorizer
	store *tu.MemoryVerifierStore
	stats *tu.MockStatsService
}

func newFixture(callbackPath string) *fixture {
	w := tu.SampleWrapped()
	f := &fixture{
		auth:  &tu.MockAuthorizer{Token: "abc"},
		store: &tu.MemoryVerifierStore{},
		stats: &tu.MockStatsService{Profile: w.Profile, Artists: w.TopArtists, Tracks: w.TopTracks},
	}
	engine := tasks.NewStatsEngine(f.auth, f.stats, f.store, nil)
	f.app = NewApp(AppOpts{Engine: engine, CallbackPath: callbackPath})
	return f
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestApp(t *testing.T) {
	t.Run("first visit redirects to the provider", func(t *testing.T) {
		f := newFixture("")
		rec := f.get("/")

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}

		loc, _ := url.Parse(rec.Header().Get("Location"))
		verifier, err := f.store.Peek(context.Background())
		if err != nil {
			t.Fatalf("verifier should be stored: %v", err)
		}
		if loc.Query().Get("code_challenge") != pkce.GenerateChallenge(verifier) {
			t.Error("redirect challenge does not match stored verifier")
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected request ID header")
		}
	})

	t.Run("return with code renders stats", func(t *testing.T) {
		f := newFixture("")
		f.get("/")
		rec := f.get("/?code=the-code")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if f.auth.Exchanges != 1 || f.auth.Code != "the-code" {
			t.Errorf("unexpected exchange %+v", f.auth)
		}

		body := rec.Body.String()
		for _, want := range []string{
			`id="welcome-message">Hi Ada, Welcome to your Spotify Wrapped`,
			`id="top-artist-name">Taylor Swift`,
			`id="top-song-name">Cruel Summer by Taylor Swift`,
			`id="top-genre-text">pop`,
			"1. Cruel Summer by Taylor Swift",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("callback path serves the flow", func(t *testing.T) {
		f := newFixture("/callback")
		f.get("/")
		if rec := f.get("/callback?code=c"); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("partial stats still render", func(t *testing.T) {
		f := newFixture("")
		f.stats.TracksErr = shared.ErrAPIRequest
		f.get("/")
		rec := f.get("/?code=c")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, view.NoTracksMessage) || !strings.Contains(body, "Taylor Swift") {
			t.Error("expected fallback tracks and rendered artist")
		}
	})

	t.Run("code without verifier", func(t *testing.T) {
		f := newFixture("")
		rec := f.get("/?code=c")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if f.auth.Exchanges != 0 {
			t.Error("no exchange should be attempted")
		}
		if !strings.Contains(rec.Body.String(), "expired or was already used") {
			t.Errorf("unexpected body %s", rec.Body)
		}
	})

	t.Run("rejected code", func(t *testing.T) {
		f := newFixture("")
		f.auth.ExchangeErr = fmt.Errorf("%w: invalid_grant", shared.ErrTokenExchange)
		f.get("/")
		if rec := f.get("/?code=c"); rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("provider denied", func(t *testing.T) {
		f := newFixture("")
		if rec := f.get("/?error=access_denied"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		rec := newFixture("").get("/healthz")
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
			t.Errorf("unexpected health response %d %q", rec.Code, rec.Body)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		if rec := newFixture("").get("/nope"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

// TestAppEndToEnd drives the real auth and API clients against a fake provider.
func TestAppEndToEnd(t *testing.T) {
	var tokenPosts atomic.Int32
	var postedVerifier atomic.Value

	provider := http.NewServeMux()
	provider.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenPosts.Add(1)
		r.ParseForm()
		postedVerifier.Store(r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"abc","token_type":"Bearer"}`)
	})
	provider.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u1","display_name":"Ada"}`)
	})
	provider.HandleFunc("GET /v1/me/top/artists", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"a1","name":"Björk","genres":["art pop","electronica","art pop"],"images":[]}]}`)
	})
	provider.HandleFunc("GET /v1/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"t1","name":"Jóga","artists":[{"name":"Björk"}],"album":{"name":"Homogenic","images":[]}}]}`)
	})
	srv := httptest.NewServer(provider)
	defer srv.Close()

	db, err := shared.OpenStorage(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	auth, err := services.NewSpotifyAuth(services.AuthOpts{
		ClientID:    "client",
		RedirectURI: "http://127.0.0.1:3000/callback",
		TokenURL:    srv.URL + "/api/token",
	})
	if err != nil {
		t.Fatalf("failed to create auth: %v", err)
	}
	stats := services.NewSpotifyService(services.ServiceOpts{BaseURL: srv.URL + "/v1"})
	store := repositories.NewVerifierStore(repositories.NewLocalStorage(db))
	app := NewApp(AppOpts{
		Engine:       tasks.NewStatsEngine(auth, stats, store, nil),
		TimeRange:    models.LongTerm,
		CallbackPath: "/callback",
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	challenge := loc.Query().Get("code_challenge")

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=xyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	if tokenPosts.Load() != 1 {
		t.Errorf("expected one token POST, got %d", tokenPosts.Load())
	}
	if v, _ := postedVerifier.Load().(string); pkce.GenerateChallenge(v) != challenge {
		t.Error("posted verifier does not match the challenge sent at authorization")
	}

	body := rec.Body.String()
	for _, want := range []string{"Hi Ada", "Björk", "Jóga by Björk", `id="top-genre-text">art pop`, "all time"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestListenAndServe(t *testing.T) {
	app := NewApp(AppOpts{Engine: tasks.NewStatsEngine(nil, nil, nil, nil)})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- app.ListenAndServe(ctx, "127.0.0.1:0") }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		if err := app.ListenAndServe(context.Background(), "127.0.0.1:-1"); err == nil {
			t.Error("expected listen error")
		}
	})
}
