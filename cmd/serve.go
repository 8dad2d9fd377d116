package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the browser flow: `/` redirects to Spotify and the redirect URI renders the stats page.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}
	timeRange, err := models.ParseTimeRange(cmd.String("time-range"))
	if err != nil {
		return err
	}

	app, err := r.newWebApp(timeRange)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	r.writePrompt("→ Open http://%s/ to see your stats\n", addr)

	return app.ListenAndServe(ctx, addr)
}

func (r *Runner) newWebApp(timeRange models.TimeRange) (*web.App, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, err
	}

	redirectURI, err := r.config.Credentials.Spotify.RedirectURI()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect URI %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}

	return web.NewApp(web.AppOpts{
		Engine:       engine,
		Logger:       r.logger.With("component", "web"),
		TimeRange:    timeRange,
		CallbackPath: u.Path,
	}), nil
}
