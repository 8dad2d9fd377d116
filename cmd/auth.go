package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/wrapped/internal/server"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	"github.com/urfave/cli/v3"
)

const defaultCallbackTimeout = 2 * time.Minute

// Login starts an authorization and prints the URL to visit.
//
// The verifier stays in storage until `wrapped callback` redeems the code, so the two halves can run as
// separate processes.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	authURL, err := engine.Begin(ctx, "")
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"authorize_url": authURL}, true)
	}

	if !cmd.Bool("no-browser") {
		r.openOrPrint(authURL)
	} else {
		r.writePlain("%s\n", authURL)
	}
	r.writePrompt("→ After approving, run: wrapped callback --code <code from the redirect URI>\n")
	return nil
}

// Callback redeems a code from a redirect started by [Runner.Login] and prints the stats.
func (r *Runner) Callback(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	token, err := engine.Complete(ctx, cmd.String("code"))
	if err != nil {
		return err
	}

	return r.printStats(ctx, cmd, engine, token)
}

// authorize runs the whole redirect round trip locally: it serves the redirect URI on a short-lived
// server, sends the user to the provider and exchanges the code that comes back.
func (r *Runner) authorize(ctx context.Context, engine tasks.Engine, noBrowser bool) (string, error) {
	redirectURI, err := r.config.Credentials.Spotify.RedirectURI()
	if err != nil {
		return "", err
	}
	callbackURL, err := loopbackURL(redirectURI)
	if err != nil {
		return "", err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewCallbackHandler(callbackURL.Path, state)
	srv, err := server.StartCallbackServer(callbackURL.Host, handler, r.logger)
	if err != nil {
		return "", err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL, err := engine.Begin(ctx, state)
	if err != nil {
		return "", err
	}

	if noBrowser {
		r.writePrompt("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePrompt("→ Opening browser for Spotify authorization...\n")
		r.openOrPrint(authURL)
	}

	timeout := r.config.Server.CallbackTimeout
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	r.writePrompt("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	code, err := srv.Wait(waitCtx)
	if err != nil {
		return "", fmt.Errorf("authorization failed: %w", err)
	}

	return engine.Complete(ctx, code)
}

func (r *Runner) openOrPrint(authURL string) {
	if err := r.browser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePrompt("⚠ Could not open browser automatically.\n")
		r.writePrompt("Please open this URL in your browser:\n%s\n\n", authURL)
	}
}

// loopbackURL checks that the redirect URI can be served from this machine.
func loopbackURL(redirectURI string) (*url.URL, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect URI %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}

	host := u.Hostname()
	ip := net.ParseIP(host)
	if u.Scheme != "http" || u.Port() == "" || (host != "localhost" && (ip == nil || !ip.IsLoopback())) {
		return nil, fmt.Errorf("%w: redirect URI %s is not a local http address; use `wrapped login` and `wrapped callback` instead",
			shared.ErrInvalidConfig, redirectURI)
	}

	return u, nil
}
