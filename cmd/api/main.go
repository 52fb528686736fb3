package main

import (
	"context"
	"log"

	"wsecho/config"
	"wsecho/internal/server"
	"wsecho/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wsecho",
		Short:         "Serve the item API and the WebSocket echo endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig()
			applyFlags(cmd, cfg)

			l := logger.New(cfg.LogMode)
			logger.SetGlobalLogger(l)
			defer l.Sync()

			srv := server.New(cfg, l)
			srv.SetupRoutes(srv.Routes())
			return srv.Start(context.Background())
		},
	}

	cmd.Flags().StringP("port", "p", "", "port to listen on (overrides APP_PORT)")
	cmd.Flags().String("mode", "", "gin mode: debug, release or test (overrides APP_MODE)")
	return cmd
}

// applyFlags overrides cfg with the flags set on the command line only, so
// an unset flag never masks APP_PORT or APP_MODE.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.AppPort, _ = flags.GetString("port")
	}
	if flags.Changed("mode") {
		cfg.AppMode, _ = flags.GetString("mode")
	}
}
