// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// newApp builds the root command. Global flags are inherited by every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "wrapped",
		Usage:   "Your Spotify listening stats, from the terminal or the browser",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "Spotify client ID (overrides config)",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Redirect URI environment from credentials.spotify.redirect_uris",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}

func timeRangeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "time-range",
		Aliases: []string{"t"},
		Usage:   "short_term (4 weeks), medium_term (6 months) or long_term (all time)",
		Value:   "short_term",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown, csv or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to this file (markdown: directory) instead of stdout",
		},
	}
}

func noBrowserFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "no-browser",
		Usage: "Print the authorization URL instead of opening a browser",
	}
}

// loginCommand starts an authorization and leaves the verifier in storage for [callbackCommand].
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Print the Spotify authorization URL and store a new code verifier",
		Flags: []cli.Flag{
			noBrowserFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the authorization URL as JSON",
			},
		},
		Action: r.Login,
	}
}

// callbackCommand finishes an authorization started by [loginCommand].
func callbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "callback",
		Usage: "Exchange the code from the redirect URI and print your stats",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "code",
				Usage:    "Value of the code query parameter on the redirect URI",
				Required: true,
			},
			timeRangeFlag(),
		}, outputFlags()...),
		Action: r.Callback,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Authorize in the browser and print your stats",
		Flags: append([]cli.Flag{
			timeRangeFlag(),
			noBrowserFlag(),
		}, outputFlags()...),
		Action: r.Stats,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the stats page on the local web server",
		Flags: []cli.Flag{
			timeRangeFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for browsing stats interactively.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Authorize in the browser and browse your stats in the terminal",
		Flags: []cli.Flag{
			timeRangeFlag(),
			noBrowserFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI owns the terminal",
				Value: "./tmp/wrapped-tui.log",
			},
		},
		Action: r.TUI,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the database",
		Action: r.Setup,
	}
}
