package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spachava753/ctictl/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancelling the context kills in-flight git and docker processes
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, shutting down gracefully...", "signal", sig)
		cancel()
	}()

	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)

	signal.Stop(sigChan)
	cancel()
	os.Exit(code)
}
