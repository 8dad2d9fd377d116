package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/wrapped/internal/shared"
)

// clientID is the Spotify client ID baked in at build time:
//
//	go build -ldflags "-X main.clientID=..." ./cmd
var clientID string

var version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		Logger:   logger,
		ClientID: clientID,
	})
	defer runner.Close()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		runner.Close()
		stop()
		logger.Fatalf("application error: %v", err)
	}
}
