package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"example.com/timetrack/internal/config"
	"example.com/timetrack/internal/observability"
)

// cliContext is shared by every subcommand once the root has parsed flags.
type cliContext struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}
	var storeDriver, sqlitePath, logLevel string

	root := &cobra.Command{
		Use:   "trackctl",
		Short: "Operate the timetrack store",
		Long: `trackctl applies schema migrations and prints time recaps straight from the store
configured through the same environment variables as the API (STORE_DRIVER, POSTGRES_URL, SQLITE_PATH).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cc.cfg = config.Load()
			if storeDriver != "" {
				cc.cfg.StoreDriver = strings.ToLower(storeDriver)
			}
			if sqlitePath != "" {
				cc.cfg.SQLitePath = sqlitePath
			}
			if logLevel != "" {
				cc.cfg.LogLevel = logLevel
			}
			// Recap output goes to stdout; keep logs on stderr and quiet by default.
			cc.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cc.cfg.LogLevel)
		},
	}

	root.PersistentFlags().StringVar(&storeDriver, "store", "", "store driver: postgres, sqlite or memory (default $STORE_DRIVER)")
	root.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file (default $SQLITE_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newMigrateCmd(cc))
	root.AddCommand(newRecapCmd(cc))
	return root
}
