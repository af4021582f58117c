package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venuewatch/venuewatch/internal/app"
	"github.com/venuewatch/venuewatch/internal/config"
	"github.com/venuewatch/venuewatch/internal/logging"
)

var (
	jsonOutput bool
	verbose    bool

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:          "venuectl <command>",
	Short:        "Operate the venue event monitor against its configured store",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !verbose {
			cfg.Logging.Level = quietLevel
		}
		// Logs go to stderr so stdout stays parseable.
		logger, err := logging.NewWithWriter(cfg.Logging, os.Stderr)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a, err := app.New(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show collection logs on stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "collect", Title: "Collection:"},
		&cobra.Group{ID: "moderate", Title: "Moderation:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(lightweightCmd)
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approvedCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
