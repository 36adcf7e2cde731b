package main

import (
	"os"

	"querygw/internal/config"
	"querygw/internal/logger"

	"github.com/spf13/cobra"
)

type cmdGlobal struct {
	flagEnvFile  string
	flagLogLevel string

	cfg *config.Config
	log logger.Logger
}

// PreRun loads the configuration and builds the logger shared by every
// subcommand.
func (g *cmdGlobal) PreRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(g.flagEnvFile)
	if err != nil {
		return err
	}

	if g.flagLogLevel != "" {
		cfg.Server.LogLevel = g.flagLogLevel
	}

	log, err := logger.New(cfg.Server.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	g.cfg = cfg
	g.log = log

	return nil
}

func main() {
	globalCmd := cmdGlobal{}

	serveCmd := cmdServe{global: &globalCmd}
	app := serveCmd.Command()
	app.Use = "querygw"
	app.Short = "SQL over HTTP gateway for PostgreSQL"
	app.Long = `Description:
  SQL over HTTP gateway for PostgreSQL

  Every request to /query runs in its own transaction on its own connection.
  Running without a subcommand starts the server.
`
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	app.PersistentPreRunE = globalCmd.PreRun

	// Global flags.
	app.PersistentFlags().StringVar(&globalCmd.flagEnvFile, "env-file", ".env", "Environment file to load before reading the environment")
	app.PersistentFlags().StringVar(&globalCmd.flagLogLevel, "log-level", "", "Log level, overrides LOG_LEVEL")

	// serve sub-command
	serveSubCmd := cmdServe{global: &globalCmd}
	app.AddCommand(serveSubCmd.Command())

	// check sub-command
	checkCmd := cmdCheck{global: &globalCmd}
	app.AddCommand(checkCmd.Command())

	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
