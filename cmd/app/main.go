package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/knowleague/internal"
	pkgconfig "github.com/starford/knowleague/pkg/config"
)

var version = "dev"

type runFunc func(context.Context, ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return cfg, nil
}

func action(run runFunc, extra func(*cli.Command) []internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if extra != nil {
			opts = append(opts, extra(cmd)...)
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	serve := action(internal.Run, nil)

	cmd := &cli.Command{
		Name:    "knowleague",
		Usage:   "Note repository on MongoDB with REST, WebSocket and MCP front ends",
		Version: version,
		Action:  serve,
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
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the note commands as MCP tools over stdio",
				Action: action(internal.RunMCP, nil),
			},
			{
				Name:  "import",
				Usage: "Import the Markdown vault into the notes collection",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "prune", Usage: "Delete notes whose file was removed"},
					&cli.BoolFlag{Name: "watch", Usage: "Keep running and import changes as they happen"},
				},
				Action: action(internal.RunImport, func(cmd *cli.Command) []internal.Option {
					return []internal.Option{
						internal.WithPrune(cmd.Bool("prune")),
						internal.WithWatch(cmd.Bool("watch")),
					}
				}),
			},
			{
				Name:   "export",
				Usage:  "Write every note to the vault as Markdown",
				Action: action(internal.RunExport, nil),
			},
			{
				Name:   "ensure-index",
				Usage:  "Create the text index search_notes needs",
				Action: action(internal.RunEnsureIndex, nil),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
