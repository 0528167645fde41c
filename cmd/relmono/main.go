// Package main is the entry point for the relmono CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/relmono/internal/cli"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cli.SetVersionInfo(version, commit, date)

	code := run(context.Background(), sigChan, cli.ExecuteContext, func() {}, os.Stderr, os.Exit)
	os.Exit(code)
}

// run executes the CLI and returns its exit code. The first signal cancels
// the context; a second signal, or the shutdown timeout, calls exit.
func run(parent context.Context, sigChan <-chan os.Signal, execute func(context.Context) error, cleanup func(), stderr io.Writer, exit func(int)) int {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	if sigChan != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			watchSignals(sigChan, done, cancel, stderr, exit)
		}()
	}

	err := execute(ctx)
	close(done)
	wg.Wait()
	cleanup()

	if err == nil {
		return 0
	}
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "Operation canceled")
		return 130 // Standard exit code for SIGINT
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
		}
		return exitErr.Code
	}

	// Print the error since SilenceErrors is enabled in cobra
	fmt.Fprintf(stderr, "Error: %v\n", rperrors.RedactError(err))
	return 1
}

func watchSignals(sigChan <-chan os.Signal, done <-chan struct{}, cancel context.CancelFunc, stderr io.Writer, exit func(int)) {
	var sig os.Signal
	select {
	case sig = <-sigChan:
	case <-done:
		return
	}
	fmt.Fprintf(stderr, "\nReceived signal %v, initiating graceful shutdown...\n", sig)
	cancel()

	shutdownTimer := time.NewTimer(shutdownTimeout)
	defer shutdownTimer.Stop()

	// A second signal already queued wins over completion.
	select {
	case sig = <-sigChan:
		fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
		exit(1)
		return
	default:
	}

	select {
	case <-done:
	case <-shutdownTimer.C:
		fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
		exit(1)
	case sig = <-sigChan:
		fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
		exit(1)
	}
}
