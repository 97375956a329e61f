package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/app"
	"github.com/marmos91/rmshelf/pkg/config"
	"github.com/spf13/pflag"
)

const usage = `rmshelf - document library server

Usage:
  rmshelf init  [--config PATH] [--force]   Write a sample configuration
  rmshelf serve [--config PATH]             Start the API server

Configuration is read from --config, or from $XDG_CONFIG_HOME/rmshelf/config.yaml
when no path is given. Every key can be overridden with an RMSHELF_ environment
variable (e.g. RMSHELF_SERVER_LISTEN=:8081).

Flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and dispatches to a subcommand.
func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("rmshelf", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "path to the configuration file")
	force := flags.Bool("force", false, "overwrite an existing configuration file (init)")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected exactly one command, got %d", flags.NArg())
	}

	switch cmd := flags.Arg(0); cmd {
	case "init":
		return runInit(*configPath, *force, stdout)
	case "serve":
		return runServe(*configPath)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runInit(path string, force bool, stdout io.Writer) error {
	if path == "" {
		written, err := config.InitConfig(force)
		if err != nil {
			return err
		}
		path = written
	} else if err := config.InitConfigToPath(path, force); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Configuration written to %s\n", path)
	return nil
}

func runServe(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	logger.Info("rmshelf starting")
	logger.Info("  API listen: %s", cfg.Server.Listen)
	logger.Info("  Metadata store: %s", cfg.Metadata.Type)
	logger.Info("  Content store: %s", cfg.Content.Type)
	logger.Info("  Session storage: %s", cfg.Session.Storage.Type)
	if cfg.Metrics.Enabled {
		logger.Info("  Metrics port: %d", cfg.Metrics.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("Failed to close stores: %v", cerr)
		}
	}()

	logger.Info("Server is running. Press Ctrl+C to stop.")
	if err := a.Run(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
