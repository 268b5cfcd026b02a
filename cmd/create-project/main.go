package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentx-labs/stackforge/internal/cli"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// An interrupt cancels the run; completed steps are still rolled back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteCreate(ctx, version, commit, date); err != nil {
		stop()
		os.Exit(1)
	}
}
