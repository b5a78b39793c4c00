package main

import (
	"github.com/spf13/cobra"

	"IntelBrief/internal/app"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		schedule bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API and run the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(flags)
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("schedule") {
				cfg.Scheduler.Enabled = schedule
			}

			application, err := app.New(cmd.Context(), cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			return application.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "Enable the cron scheduler")

	return cmd
}
