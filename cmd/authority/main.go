// authority is the development stand-in for the remote authority. It serves
// the post contract over HTTP from SQLite or Postgres and logs a development
// credential at startup.
package main

import (
	"context"
	"fmt"
	"os"

	"wallfeed/internal/config"
	"wallfeed/internal/observability"
	"wallfeed/internal/server"

	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("authority", pflag.ContinueOnError)
	port := flags.String("port", "", "listen port (overrides PORT)")
	seed := flags.String("seed", "", "YAML seed file (overrides SEED_FILE)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if flags.Changed("port") {
		cfg.Port = *port
	}
	if flags.Changed("seed") {
		cfg.SeedFile = *seed
	}
	observability.SetLevel(cfg.LogLevel)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "wallfeed-authority",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampler,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if err := server.Run(cfg); err != nil {
		observability.GlobalLogger.Error("authority stopped", "error", err)
		_ = shutdown(context.Background())
		os.Exit(1)
	}
}
