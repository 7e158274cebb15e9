// Package main is the entry point for webpool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"webpool/internal/api"
	"webpool/internal/config"
	"webpool/internal/events"
	"webpool/internal/logger"
	"webpool/internal/server"
	"webpool/internal/worker"
)

var (
	version = "dev"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("", "Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("", "Error executing command: %v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "webpool",
		Short:         "A tiny TCP web server backed by a fixed-size worker pool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env がなければ環境変数のみを使う
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webpool version %s\n", version)
		},
	})

	return rootCmd
}

func newServeCommand() *cobra.Command {
	v := config.NewViper()
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept connections and serve them from the worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, v)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Config file path (YAML/JSON)")
	flags.String(config.KeyAddr, defaults.Addr, "Address to accept connections on")
	flags.Int(config.KeyWorkers, defaults.Workers, "Number of pool workers")
	flags.Int(config.KeyMaxConnections, defaults.MaxConnections, "Stop after this many connections (0 = unlimited)")
	flags.String(config.KeyRoot, defaults.Root, "Directory containing hello.html and 404.html")
	flags.Duration(config.KeySleepDelay, defaults.SleepDelay, "Delay for the /sleep route")
	flags.Duration(config.KeyReadTimeout, defaults.ReadTimeout, "Timeout for reading the request line")
	flags.String(config.KeyAdminAddr, defaults.AdminAddr, "Admin API address (empty = disabled)")
	flags.String(config.KeyLogLevel, defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String(config.KeyLogFormat, defaults.LogFormat, "Log format (text, json)")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := logger.Default
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	log.SetFormat(cfg.LogFormat)

	bus := events.NewBus()
	defer bus.Close()

	pool, err := worker.NewPoolWithConfig(worker.PoolConfig{
		NumWorkers: cfg.Workers,
		Logger:     log,
		Events:     bus,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		Root:           cfg.Root,
		MaxConnections: cfg.MaxConnections,
		SleepDelay:     cfg.SleepDelay,
		ReadTimeout:    cfg.ReadTimeout,
	}, pool, log)
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.AdminAddr != "" {
		admin := api.NewServer(cfg.AdminAddr, pool, bus)
		go func() {
			if err := admin.Start(ctx); err != nil {
				log.Error("", "Admin API error: %v", err)
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil {
		return err
	}

	log.Info("", "Shutting down.")
	return pool.Close()
}
