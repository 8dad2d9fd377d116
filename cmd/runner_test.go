package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	tu "github.com/desertthunder/wrapped/internal/testing"
)

// mockEngine builds a [tasks.StatsEngine] over the shared test doubles.
func mockEngine() (tasks.Engine, *tu.MockAuthorizer, *tu.MemoryVerifierStore) {
	w := tu.SampleWrapped()
	auth := &tu.MockAuthorizer{Token: "abc"}
	store := &tu.MemoryVerifierStore{}
	stats := &tu.MockStatsService{Profile: w.Profile, Artists: w.TopArtists, Tracks: w.TopTracks}
	return tasks.NewStatsEngine(auth, stats, store, nil), auth, store
}

// run executes args against a fresh root command and returns the error from the action.
func run(r *Runner, args ...string) error {
	app := newApp(r)
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	return app.Run(context.Background(), append([]string{"wrapped"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			engine, _, _ := mockEngine()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Engine:     engine,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.engine != engine {
				t.Error("expected engine to be set")
			}
		})

		t.Run("with nil config defers loading", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("expected config to be loaded by the command")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil writers uses stdout and stderr", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.prompt != os.Stderr {
				t.Error("expected prompt to default to os.Stderr")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil browser uses OpenBrowser", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.browser == nil {
				t.Error("expected default browser opener")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "login", "callback", "stats", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestConfigure(t *testing.T) {
	newRunner := func(configID, buildID string) *Runner {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = configID
		engine, _, _ := mockEngine()
		return NewRunner(RunnerOpts{
			Config:   config,
			ClientID: buildID,
			Engine:   engine,
			Logger:   shared.NewLogger(io.Discard),
			Output:   io.Discard,
			Prompt:   io.Discard,
			Browser:  func(string) error { return nil },
		})
	}
	clientID := func(r *Runner) string { return r.config.Credentials.Spotify.ClientID }

	t.Run("client ID precedence", func(t *testing.T) {
		t.Run("build-time value is the last resort", func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", "")
			r := newRunner("", "build-id")
			if err := run(r, "login", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if clientID(r) != "build-id" {
				t.Errorf("expected build-id, got %q", clientID(r))
			}
		})

		t.Run("config beats build-time value", func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", "")
			r := newRunner("config-id", "build-id")
			if err := run(r, "login", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if clientID(r) != "config-id" {
				t.Errorf("expected config-id, got %q", clientID(r))
			}
		})

		t.Run("environment beats config", func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
			r := newRunner("config-id", "build-id")
			if err := run(r, "login", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if clientID(r) != "env-id" {
				t.Errorf("expected env-id, got %q", clientID(r))
			}
		})

		t.Run("flag beats environment", func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
			r := newRunner("config-id", "build-id")
			if err := run(r, "--client-id", "flag-id", "login", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if clientID(r) != "flag-id" {
				t.Errorf("expected flag-id, got %q", clientID(r))
			}
		})
	})

	t.Run("env selects the redirect URI", func(t *testing.T) {
		r := newRunner("config-id", "")
		if err := run(r, "--env", "production", "login", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		uri, err := r.config.Credentials.Spotify.RedirectURI()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if uri != "https://mywrapped.netlify.app" {
			t.Errorf("expected production redirect URI, got %s", uri)
		}
	})

	t.Run("loads the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		conf := "[credentials.spotify]\nclient_id = \"from-file\"\n"
		if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("SPOTIFY_CLIENT_ID", "")

		engine, _, _ := mockEngine()
		r := NewRunner(RunnerOpts{Engine: engine, Output: io.Discard, Prompt: io.Discard, Browser: func(string) error { return nil }})
		if err := run(r, "--config", path, "login", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.configPath != path {
			t.Errorf("expected config path %s, got %s", path, r.configPath)
		}
		if clientID(r) != "from-file" {
			t.Errorf("expected client ID from file, got %q", clientID(r))
		}
		if r.config.Server.Port != 3000 {
			t.Errorf("expected defaults for keys missing from the file, got port %d", r.config.Server.Port)
		}
	})

	t.Run("malformed config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not = [valid"), 0644); err != nil {
			t.Fatal(err)
		}

		r := NewRunner(RunnerOpts{Output: io.Discard, Prompt: io.Discard})
		err := run(r, "--config", path, "login")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestEngine(t *testing.T) {
	t.Run("missing client ID", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})
		if _, err := r.Engine(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("unknown environment", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client"
		config.Credentials.Spotify.Environment = "staging"

		r := NewRunner(RunnerOpts{Config: config})
		if _, err := r.Engine(); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("builds once and opens storage", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client"
		config.Database.Path = ":memory:"

		r := NewRunner(RunnerOpts{Config: config})
		defer r.Close()

		first, err := r.Engine()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, _ := r.Engine()
		if first != second {
			t.Error("expected the engine to be reused")
		}
		if r.db == nil {
			t.Error("expected storage to be open")
		}

		if err := r.Close(); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
		if r.db != nil {
			t.Error("expected storage to be released")
		}
	})

	t.Run("injected engine is used as is", func(t *testing.T) {
		engine, _, _ := mockEngine()
		r := NewRunner(RunnerOpts{Engine: engine})

		got, err := r.Engine()
		if err != nil || got != engine {
			t.Errorf("expected injected engine, got %v, %v", got, err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("creates config and database", func(t *testing.T) {
		t.Chdir(t.TempDir())
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Prompt: io.Discard})

		if err := run(r, "setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, "config.toml")
		tu.AssertFileExists(t, "wrapped.db")
		if !strings.Contains(tu.MustReadFile(t, "config.toml"), "[credentials.spotify]") {
			t.Error("expected config from the embedded template")
		}
	})

	t.Run("keeps an existing config", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		conf := "[database]\npath = \"custom.db\"\n"
		if err := os.WriteFile("config.toml", []byte(conf), 0644); err != nil {
			t.Fatal(err)
		}

		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Prompt: io.Discard})
		if err := run(r, "setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tu.MustReadFile(t, "config.toml") != conf {
			t.Error("existing config should not be overwritten")
		}
		tu.AssertFileExists(t, filepath.Join(dir, "custom.db"))
	})
}

func TestCommandsRequireFlags(t *testing.T) {
	r := NewRunner(RunnerOpts{Output: io.Discard, Prompt: io.Discard})

	if err := run(r, "callback"); err == nil {
		t.Error("expected an error without --code")
	}
}
