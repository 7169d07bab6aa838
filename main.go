package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tutoriq/tutoriq-be/internal/config"
	"github.com/tutoriq/tutoriq-be/internal/logger"
)

var configFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tutoriq",
		Short: "TutorIQ study assistant backend",
		Long: `TutorIQ serves the study assistant web app: accounts, study profiles,
the AI study tools and the saved conversation history.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml); environment variables take precedence")

	rootCmd.AddCommand(newServeCmd(), newDiagnoseCmd())
	return rootCmd
}

// loadConfig reads the configuration and sets up the global logger.
func loadConfig() (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	if cfg.JWTSecretGenerated {
		log.Warn().Msg("JWT_SECRET is not set; using a random secret, sessions will not survive a restart")
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
