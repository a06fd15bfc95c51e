package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/promptree/promptree/internal"
	pkgconfig "github.com/promptree/promptree/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()

	_, statErr := os.Stat(configPath)
	switch {
	case statErr == nil || cmd.IsSet("config"):
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		// No config file; run on defaults.
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("default config invalid: %w", err)
		}
	}

	if model := cmd.String("model"); model != "" {
		cfg.Ollama.Model = model
	}
	return cfg, nil
}

func runMode(mode string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Ollama model name (overrides config)",
			Sources: cli.EnvVars("PROMPTREE_MODEL"),
		},
	}

	cmd := &cli.Command{
		Name:   "promptree",
		Usage:  "Record LLM conversations as navigable threads with cross-reference links",
		Action: runMode(internal.ModeREPL),
		Flags:  flags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server with SSE change events",
				Action: runMode(internal.ModeServe),
				Flags:  flags,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMode(internal.ModeMCP),
				Flags:  flags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
