package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"IntelBrief/internal/app"
	"IntelBrief/internal/domain"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		quick    bool
		model    string
		feeds    []string
		forums   []string
		channels []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(flags)
			logger := newLogger(cfg)

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			settings := cfg.DefaultSettings()
			settings.Quick = quick
			if model != "" {
				settings.Model = model
			}
			if cmd.Flags().Changed("feed") {
				settings.FeedURLs = feeds
			}
			if cmd.Flags().Changed("forum") {
				settings.Forums = forums
			}
			if cmd.Flags().Changed("channel") {
				settings.Channels = channels
			}

			run, err := application.RunOnce(cmd.Context(), settings)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(run); err != nil {
				return err
			}
			if run.Stage == domain.StageFailed {
				return fmt.Errorf("run %s failed: %s", run.RunID, run.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quick, "quick", "q", false, "Quick mode: first feed only, small item caps")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Primary model override")
	cmd.Flags().StringSliceVar(&feeds, "feed", nil, "Feed URLs (replace configured feeds)")
	cmd.Flags().StringSliceVar(&forums, "forum", nil, "Forum names (replace configured forums)")
	cmd.Flags().StringSliceVar(&channels, "channel", nil, "Video channel IDs (replace configured channels)")

	return cmd
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Probe every configured source without collecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(flags)
			application, err := app.New(cmd.Context(), cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			failed := 0
			for _, check := range application.Pipeline().ValidateSources(cmd.Context(), cfg.DefaultSettings()) {
				status := "ok"
				if !check.Valid {
					status = "FAILED " + check.Error
					failed++
				}
				fmt.Printf("%-6s %-50s %s\n", check.Kind, check.Target, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d sources failed validation", failed)
			}
			return nil
		},
	}
}
