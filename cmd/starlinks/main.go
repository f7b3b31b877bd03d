package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/starlinks/internal"
	pkgconfig "github.com/starford/starlinks/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(transport string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if transport != "" {
			cfg.App.Transport = transport
		}

		if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func slugs(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	recs, err := internal.Slugs(ctx, internal.WithConfig(cfg))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tLOCALE\tTITLE")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Slug, r.Locale, r.Title)
	}
	return w.Flush()
}

func main() {
	cmd := &cli.Command{
		Name:   "starlinks",
		Usage:  "Link completion, navigation and hover for Starlight documentation content",
		Action: serve(""),
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
				Usage:  "Serve the HTTP API and the SSE event stream",
				Action: serve(internal.TransportHTTP),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: serve(internal.TransportMCP),
			},
			{
				Name:  "slugs",
				Usage: "Build the link index once and print it",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print records as JSON"},
				},
				Action: slugs,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
