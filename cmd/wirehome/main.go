package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wirehome/core/pkg/api"
	"github.com/wirehome/core/pkg/config"
	"github.com/wirehome/core/pkg/hub"
	"github.com/wirehome/core/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wirehome",
	Short: "Wirehome - Home automation hub runtime",
	Long: `Wirehome is the runtime of a home automation hub. Physical devices,
logical groups, scenes and automations are long-lived in-memory entities;
clients interact with them through an HTTP API while an in-process message
bus carries domain events between subsystems.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Wirehome version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(serverCmd)
}

// initLogging configures the global logger from the loaded config, with
// explicitly set CLI flags taking precedence over the file.
func initLogging(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		apiAddr, _ := cmd.Flags().GetString("api-addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if apiAddr != "" {
			cfg.APIAddr = apiAddr
		}

		initLogging(cmd, cfg)

		return runServer(cfg)
	},
}

func init() {
	serverCmd.Flags().String("config", "", "Path to the YAML configuration file")
	serverCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	serverCmd.Flags().String("api-addr", "", "HTTP API bind address (overrides config)")
}

func runServer(cfg *config.Config) error {
	h, err := hub.New(cfg, Version)
	if err != nil {
		return err
	}
	if err := h.Start(); err != nil {
		return err
	}

	server := api.NewServer(h, cfg.Bus.DefaultWaitTimeout)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.APIAddr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Logger.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			h.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	return h.Stop()
}
