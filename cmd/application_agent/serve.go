package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/application-agent/internal/config"
	"github.com/jonathan/application-agent/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveDBURL      string
	serveTimeout    time.Duration
	serveMigrate    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for generating documents.

With a database, requests are resolved against stored users and every result is saved and listed under /api/generations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080, or PORT env var)")
	serveCmd.Flags().StringVar(&serveDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	serveCmd.Flags().DurationVar(&serveTimeout, "request-timeout", 10*time.Minute, "Upper bound for one generation request")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Create missing tables on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(serveConfigPath, func(cfg *config.Config) {
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if cmd.Flags().Changed("db-url") {
			cfg.DatabaseURL = serveDBURL
		}
	}, nil)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Port:           cfg.Port,
		Generator:      rt.service,
		Logger:         rt.logger,
		Metrics:        rt.metrics,
		RequestTimeout: serveTimeout,
		OnShutdown:     rt.Close,
	}
	if rt.database != nil {
		if serveMigrate {
			if err := rt.database.EnsureSchema(cmd.Context()); err != nil {
				rt.Close()
				return err
			}
		}
		srvCfg.History = rt.database
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		rt.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
