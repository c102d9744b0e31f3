// Package app wires configuration, logging and the server lifecycle into
// the unibot command.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/unibot/cmd/unibot/app/options"
)

const (
	// Name is the name of the application.
	Name = "unibot"

	commandDesc = `University chatbot backend.

This server provides:
  - Retrieval-augmented AI chat over a hot-reloaded knowledge file
  - JWT authentication with token revocation
  - Role-based user management with asymmetric manage/create rules
  - Student-consultant support chat over REST and WebSocket

Configuration can be provided via command-line flags, environment
variables (prefix: UNIBOT_) or a YAML configuration file.`
)

// NewCommand creates the root command.
func NewCommand() *cobra.Command {
	opts := options.NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:           Name,
		Short:         "University chatbot backend",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, configFile, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	opts.AddFlags(cmd.Flags())
	return cmd
}

// loadConfig merges the config file and environment into the options.
// Explicit flags keep the highest priority.
func loadConfig(cmd *cobra.Command, configFile string, opts *options.Options) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/unibot")
	}

	v.SetEnvPrefix("UNIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return v.Unmarshal(opts)
}

func run(opts *options.Options) error {
	log, err := logger.New(opts.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetGlobal(log)
	defer func() { _ = logger.Flush() }()

	return Run(signalContext(), opts)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal exits immediately.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
