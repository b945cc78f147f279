package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/api"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/config"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/service"
)

var (
	cfgFile    string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gigasetelements",
	Short: "Client for the Gigaset Elements security system cloud",
	Long: `Keeps a local view of a Gigaset Elements security system synchronized
with the vendor cloud over authenticated HTTP polling, and exposes the
reconciled alarm state on the command line and as Prometheus metrics.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

// setup loads configuration and wires the client stack.
func setup() (*config.Config, *service.Service, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(cfg.Logging)

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	client := api.New(api.Config{
		BaseURL:        cfg.API.BaseURL,
		AuthURL:        cfg.API.AuthURL,
		CloudURL:       cfg.API.CloudURL,
		Email:          cfg.Auth.Email,
		Password:       cfg.Auth.Password,
		Timezone:       cfg.Timezone,
		SessionExpiry:  cfg.SessionExpiry(),
		RequestTimeout: cfg.RequestTimeout(),
		RateLimit:      cfg.API.RateLimit,
		RateLimitBurst: cfg.API.RateLimitBurst,
	}, logger)

	svc, err := service.New(client, loc, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, svc, logger, nil
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
