// cmd/hiremind/main.go
//
// This is the entry point for the HireMind terminal client.
// When you run `hiremind` from any directory, this is what executes.
//
// Flow:
// 1. Create .hiremind in the working directory if it is missing
// 2. Install the trace exporter when telemetry is enabled
// 3. Launch the TUI, optionally on the route given as the first argument

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/hiremind/internal/config"
	"github.com/kingrea/hiremind/internal/telemetry"
	"github.com/kingrea/hiremind/internal/tui"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Get the current working directory - this is where .hiremind lives
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitHiremindDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .hiremind directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	shutdown, err := telemetry.Init(context.Background(), telemetry.Settings{
		Enabled:     cfg.Project.Telemetry.Enabled,
		Endpoint:    cfg.Project.Telemetry.Endpoint,
		ServiceName: cfg.Project.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		// Tracing is optional; the client works without a collector.
		fmt.Fprintf(os.Stderr, "Telemetry disabled: %v\n", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	var opts []tui.AppOption
	if len(os.Args) > 1 {
		opts = append(opts, tui.WithInitialPath(os.Args[1]))
	}
	app, err := tui.NewApp(cwd, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting client: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// Run blocks until the user quits
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}
