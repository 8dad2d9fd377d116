// Package web serves the stats page in a browser.
//
// # Flow
//
// The app answers one route with two behaviors, mirroring a single-page redirect round trip:
//
//	GET /            → no code: start authorization, 302 to the provider
//	GET /?code=…     → exchange the code, fetch stats, render the page
//	GET /healthz     → liveness probe
//
// The same flow handler is mounted at the redirect URI path when it differs from "/" (for example
// /callback in local development).
//
// # Failures
//
// A failed fetch leaves its section on the page with placeholder text. Failures before any data is
// fetched (absent verifier, rejected code) log and answer with the error page.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/server"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	"github.com/desertthunder/wrapped/internal/view"
)

// AppOpts configures an [App].
type AppOpts struct {
	Engine       tasks.Engine
	Logger       *log.Logger
	TimeRange    models.TimeRange
	CallbackPath string // path of the redirect URI; "" or "/" serves the flow at the root only
}

// App is the browser front end.
type App struct {
	engine    tasks.Engine
	logger    *log.Logger
	timeRange models.TimeRange
	router    *server.BasicRouter
}

// NewApp creates an [App] with its routes registered.
func NewApp(opts AppOpts) *App {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.TimeRange == "" {
		opts.TimeRange = models.DefaultTimeRange
	}

	a := &App{
		engine:    opts.Engine,
		logger:    logger,
		timeRange: opts.TimeRange,
		router:    server.NewBasicRouter(),
	}

	a.router.Use(server.RequestID(), server.Logger(logger), server.Recover(logger))
	a.router.HandleFunc(http.MethodGet, "/{$}", a.handleFlow)
	if p := opts.CallbackPath; p != "" && p != "/" {
		a.router.HandleFunc(http.MethodGet, p, a.handleFlow)
	}
	a.router.HandleFunc(http.MethodGet, "/healthz", a.handleHealth)
	return a
}

// ServeHTTP implements [http.Handler].
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (a *App) handleFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.logger.With("request_id", server.RequestIDFrom(ctx))
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		err := fmt.Errorf("%w: %s", shared.ErrAuthFailed, providerErr)
		a.fail(w, logger, http.StatusBadRequest, err)
		return
	}

	code := q.Get("code")
	switch tasks.PhaseFor(code) {
	case tasks.NoCode:
		target, err := a.engine.Begin(ctx, "")
		if err != nil {
			a.fail(w, logger, statusFor(err), err)
			return
		}
		logger.Info("redirecting to provider", "phase", tasks.Redirect)
		http.Redirect(w, r, target, http.StatusFound)

	case tasks.HasCode:
		token, err := a.engine.Complete(ctx, code)
		if err != nil {
			a.fail(w, logger, statusFor(err), err)
			return
		}

		wrapped, err := a.engine.Fetch(ctx, token, a.timeRange, nil)
		if err != nil {
			a.fail(w, logger, statusFor(err), err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view.Render(w, view.Build(wrapped)); err != nil {
			logger.Error("render failed", "error", err)
			return
		}
		logger.Info(tasks.RenderedUpdate("browser").Message, "phase", tasks.Rendered, "partial", wrapped.Partial())
	}
}

func (a *App) fail(w http.ResponseWriter, logger *log.Logger, status int, err error) {
	logger.Error("request failed", "status", status, "error", err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if rerr := view.RenderError(w, userMessage(err)); rerr != nil {
		logger.Error("render failed", "error", rerr)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingVerifier),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrAuthFailed):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrTokenExchange):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingVerifier):
		return "This sign-in link has expired or was already used. Start again from the home page."
	case errors.Is(err, shared.ErrAuthFailed):
		return "Spotify did not authorize the request."
	case errors.Is(err, shared.ErrTokenExchange):
		return "Spotify rejected the sign-in. Start again from the home page."
	default:
		return "Something went wrong while loading your stats."
	}
}

// ListenAndServe serves the app on addr until ctx ends, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		a.logger.Info("serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
