package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"campus-assistant/internal/config"
	"campus-assistant/internal/helper"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	cfgFile       string
	jsonOutput    bool
	currentConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "campus-assistant",
	Short:         "Answer questions about the campus from its official data",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		helper.SetupLogger(cfg.Log.Level, cfg.Log.JSON)
		currentConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.AddCommand(syncCmd, askCmd, serveCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
