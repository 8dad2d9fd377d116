package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wrapped/internal/repositories"
	"github.com/desertthunder/wrapped/internal/services"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	clientID   string
	endpoints  Endpoints
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	prompt     io.Writer
	browser    shared.BrowserOpener
	engine     tasks.Engine
	db         *sql.DB
}

// Endpoints overrides the Spotify URLs. Empty fields keep the production endpoints.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	APIURL   string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config skips loading --config when set.
	Config     *shared.Config
	ConfigPath string
	// ClientID is the build-time fallback used when neither flag, env nor config set one.
	ClientID   string
	Endpoints  Endpoints
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Prompt receives instructions for the user so they stay out of Output.
	Prompt  io.Writer
	Browser shared.BrowserOpener
	// Engine replaces the engine built from config.
	Engine tasks.Engine
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		clientID:   opts.ClientID,
		endpoints:  opts.Endpoints,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		prompt:     opts.Prompt,
		browser:    opts.Browser,
		engine:     opts.Engine,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, callbackCommand, statsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the storage opened by [Runner.Engine].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// configure loads the config file and applies the global flags on top of it.
//
// Client ID precedence is --client-id, then SPOTIFY_CLIENT_ID, then the config file, then the build-time value.
func (r *Runner) configure(cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config == nil {
		if path := cmd.String("config"); path != "" {
			r.configPath = path
		}
		if r.configPath == "" {
			r.configPath = "config.toml"
		}

		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	spotify := &r.config.Credentials.Spotify
	if id := cmd.String("client-id"); id != "" {
		spotify.ClientID = id
	} else if spotify.ClientID == "" {
		spotify.ClientID = r.clientID
	}

	if env := cmd.String("env"); env != "" {
		spotify.Environment = env
	}

	r.logger.Debug("configuration loaded", "path", r.configPath, "environment", spotify.Environment)
	return nil
}

// Engine returns the stats engine, building it from config on first use.
//
// The verifier store lives in the sqlite database at database.path so that `login` and `callback` can run
// as separate processes.
func (r *Runner) Engine() (tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	spotify := r.config.Credentials.Spotify
	if err := spotify.Validate(); err != nil {
		return nil, err
	}
	redirectURI, err := spotify.RedirectURI()
	if err != nil {
		return nil, err
	}

	auth, err := services.NewSpotifyAuth(services.AuthOpts{
		ClientID:    spotify.ClientID,
		RedirectURI: redirectURI,
		Scopes:      spotify.ScopeList(),
		AuthURL:     r.endpoints.AuthURL,
		TokenURL:    r.endpoints.TokenURL,
		HTTPClient:  r.httpClient,
	})
	if err != nil {
		return nil, err
	}

	stats := services.NewSpotifyService(services.ServiceOpts{
		BaseURL:           r.endpoints.APIURL,
		HTTPClient:        r.httpClient,
		RequestsPerSecond: spotify.RequestsPerSecond,
	})

	db, err := shared.OpenStorage(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db

	verifiers := repositories.NewVerifierStore(repositories.NewLocalStorage(db))
	r.engine = tasks.NewStatsEngine(auth, stats, verifiers, shared.WithLogger(r.logger, "component", "engine"))
	return r.engine, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePrompt(format string, args ...any) {
	fmt.Fprintf(r.prompt, format, args...)
}
