// Package main is the storefront command line client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/abgdnv/storefront/pkg/telemetry"
)

const appName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "error: %s\n", carterrors.Reason(err))
		}
		os.Exit(1)
	}
}

// run loads the configuration, builds the client and executes one command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to the yaml configuration (default config.yaml)")
	envFile := fs.String("env", "", "path to the .env file (default .env)")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(fs)
		return errors.New("no command given")
	}

	cfg, err := configloader.LoadWith[*config.Storefront](appName, configloader.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := bootstrap.NewLoggerTo(stderr, cfg.Log.Level)
	slog.SetDefault(logger)
	logger.Debug("Configuration loaded", "config", cfg.String())

	shutdown, err := telemetry.Setup(ctx, appName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Printf("telemetry shutdown failed: %v", err)
		}
	}()

	client, err := app.SetupClient(cfg, stdout, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return dispatch(ctx, client, fs.Arg(0), fs.Args()[1:])
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", appName)
	for _, c := range commands {
		fmt.Fprintf(out, "  %-12s %s\n", c.name, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}
