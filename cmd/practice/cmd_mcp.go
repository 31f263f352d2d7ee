package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weboryskills/practice/internal/app"
	"github.com/weboryskills/practice/internal/config"
	mcpserver "github.com/weboryskills/practice/internal/mcp"
)

// cmdMCP serves the practice tools over stdio
func cmdMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Engine:   a.Engine,
		Progress: a.Progress,
		Version:  Version,
	})
	return srv.ServeStdio(ctx)
}
