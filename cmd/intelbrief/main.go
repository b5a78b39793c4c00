package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"IntelBrief/internal/config"
	"IntelBrief/internal/logging"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:          "intelbrief",
		Short:        "Collect sources, extract insights and compose a reviewable brief",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", flags.envFile, err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file (defaults to $INTELBRIEF_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(runCmd(flags))
	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(validateCmd(flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(flags *globalFlags) config.Config {
	return config.Load(flags.configPath)
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}
