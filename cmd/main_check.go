package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"querygw/internal/service"

	"github.com/spf13/cobra"
)

type cmdCheck struct {
	global *cmdGlobal

	flagTimeout time.Duration
}

func (c *cmdCheck) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "check"
	cmd.Short = "Check that the database is reachable"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	cmd.Flags().DurationVar(&c.flagTimeout, "timeout", 10*time.Second, "How long to wait for the database")

	return cmd
}

func (c *cmdCheck) Run(cmd *cobra.Command, args []string) error {
	cfg := c.global.cfg

	db, err := service.NewPostgresClient(cfg.Database.DSN(), c.global.log, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), c.flagTimeout)
	defer cancel()

	return check(ctx, db, cfg.Database.Summary(), cmd.OutOrStdout())
}

// check prints the server version, or fails with the classified error.
func check(ctx context.Context, db service.DBClient, summary string, out io.Writer) error {
	version, err := db.Version(ctx)
	if err != nil {
		return fmt.Errorf("%s (%s)", service.ErrorMessage(err), summary)
	}

	_, err = fmt.Fprintf(out, "%s\n%s\n", summary, version)

	return err
}
