package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/offnote/internal"
	pkgconfig "github.com/starford/offnote/pkg/config"
)

type runFunc func(ctx context.Context, opts ...internal.Option) error

func run(fn runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		read, err := pkgconfig.LoadIfExists(configPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if !read {
			slog.Warn("config file not found, using defaults", slog.String("path", configPath))
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	addrFlag := &cli.StringFlag{
		Name:    "addr",
		Usage:   "Base URL of a running client",
		Value:   "http://localhost:8081",
		Sources: cli.EnvVars("OFFNOTE_ADDR"),
	}

	cmd := &cli.Command{
		Name:  "offnote",
		Usage: "Offline-first notes with a reconciling sync engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Run the remote note endpoint",
				Action: run(internal.RunServer),
			},
			{
				Name:   "client",
				Usage:  "Run the offline-first client with its local API",
				Action: run(internal.RunClient),
			},
			{
				Name:   "mcp",
				Usage:  "Run the client behind an MCP stdio server",
				Action: run(internal.RunMCP),
			},
			{
				Name:   "status",
				Usage:  "Show the sync status of a running client",
				Flags:  []cli.Flag{addrFlag},
				Action: statusAction,
			},
			{
				Name:   "sync",
				Usage:  "Ask a running client to reconcile now",
				Flags:  []cli.Flag{addrFlag},
				Action: syncAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
