package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/snapnotes/internal"
	pkgconfig "github.com/starford/snapnotes/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the YAML config. The default path may be missing, in
// which case defaults plus environment are used; an explicit path must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	required := configPath != defaultConfigPath
	if err := pkgconfig.LoadOptional(configPath, required, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := internal.ExportRequest{
		ID:     cmd.Int("id"),
		Input:  cmd.String("in"),
		Format: cmd.String("format"),
		Kind:   cmd.String("kind"),
		Name:   cmd.String("name"),
		List:   cmd.Bool("list"),
		Delete: cmd.String("delete"),
	}
	// Keep stdout for the JSON result.
	if err := internal.RunExport(ctx, req, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return fmt.Errorf("export error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "snapnotes",
		Usage:  "AI study notes from text and PDFs, as bullets, Q&A, or flashcards",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "export",
				Usage:  "Write a saved entry or a notes file to the export directory",
				Action: export,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "History entry id"},
					&cli.StringFlag{Name: "in", Usage: "Raw notes file to export instead of a history entry"},
					&cli.StringFlag{Name: "format", Usage: "Format of --in (bullet, qa, flashcard); defaults to export.default_format"},
					&cli.StringFlag{Name: "kind", Usage: "Export kind", Value: "txt"},
					&cli.StringFlag{Name: "name", Usage: "File name inside the export directory"},
					&cli.BoolFlag{Name: "list", Usage: "List the export directory instead of writing"},
					&cli.StringFlag{Name: "delete", Usage: "Remove a file from the export directory instead of writing"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
