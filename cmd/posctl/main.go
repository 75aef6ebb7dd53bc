// Command posctl is the operator tool for a cafe-pos installation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/router"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Administer a cafe-pos installation",
	Long: `posctl runs schema migrations, seeds a demo restaurant and checks
kitchen printers without starting the API server.

Configuration is read from the environment (and .env) like the server;
--database-url overrides DATABASE_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		cfg := config.Load()
		if databaseURL == "" {
			databaseURL = cfg.DatabaseURL
		}
		return config.ApplyTimeZone(cfg.TimeZone)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the API version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), router.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	rootCmd.AddCommand(versionCmd, migrateCmd, seedCmd, printTestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
