package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/debug"
	"github.com/reqtrace/reqtrace/internal/display"
	"github.com/reqtrace/reqtrace/internal/marker"
	"github.com/reqtrace/reqtrace/internal/tracer"
	"github.com/reqtrace/reqtrace/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	rootFlag := c.String("root")

	cfg, err := config.LoadWithRoot(c.String("config"), rootFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}

	return cfg, nil
}

func newFormatter(c *cli.Context, cfg *config.Config) *display.Formatter {
	format := "text"
	if c.Bool("json") {
		format = "json"
	}
	return display.NewFormatter(display.FormatterOptions{
		Format:    format,
		ShowLinks: c.Bool("links"),
		Root:      cfg.Project.Root,
	})
}

func main() {
	app := &cli.App{
		Name:                   "reqtrace",
		Usage:                  "Requirements-to-code traceability index",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".reqtrace.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root directory (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include 'src/**/*.py')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show debug information",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.Enable()
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand(),
			addCommand(),
			refsCommand(),
			filesCommand(),
			statusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan the workspace and rebuild the requirement index",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			tr := tracer.New(cfg)
			stats, err := tr.Scan(context.Background())
			if err != nil {
				return err
			}

			fmt.Print(newFormatter(c, cfg).FormatScan(stats, len(tr.Requirements())))
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Write a requirement marker into a source file",
		ArgsUsage: "REQUIREMENT FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Name of the definition to annotate",
			},
			&cli.IntFlag{
				Name:    "line",
				Aliases: []string{"l"},
				Usage:   "Approximate line of the definition (1-based)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: reqtrace add REQUIREMENT FILE")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			requirement, file := c.Args().Get(0), c.Args().Get(1)
			tr := tracer.New(cfg)
			if err := tr.AddMarker(requirement, file, marker.Options{
				Symbol: c.String("symbol"),
				Line:   c.Int("line"),
			}); err != nil {
				return err
			}

			fmt.Print(newFormatter(c, cfg).FormatReferences(requirement, tr.GetReferences(requirement)))
			return nil
		},
	}
}

func refsCommand() *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "List the code references recorded for a requirement",
		ArgsUsage: "REQUIREMENT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "links",
				Usage: "Append editor deep links to each reference",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: reqtrace refs REQUIREMENT")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			requirement := c.Args().First()
			tr := tracer.New(cfg)
			fmt.Print(newFormatter(c, cfg).FormatReferences(requirement, tr.GetReferences(requirement)))
			return nil
		},
	}
}

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:      "files",
		Usage:     "List the requirements that reference a file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: reqtrace files FILE")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			file := c.Args().First()
			tr := tracer.New(cfg)
			fmt.Print(newFormatter(c, cfg).FormatRequirements(file, tr.GetRequirementsForFile(file)))
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show index health and staleness",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			tr := tracer.New(cfg)
			fmt.Print(newFormatter(c, cfg).FormatStatus(tr.Status()))
			return nil
		},
	}
}
