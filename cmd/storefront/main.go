package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KavinT06/anigas-attire-sub000/internal/cli"
)

func main() {
	// Canceled on SIGINT or SIGTERM so in-flight requests and the mock
	// backend shut down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
