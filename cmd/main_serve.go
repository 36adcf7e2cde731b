package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"querygw/internal/handler"
	"querygw/internal/logger"
	"querygw/internal/metrics"
	"querygw/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	startupProbeTimeout = 10 * time.Second
	shutdownTimeout     = 15 * time.Second
)

type cmdServe struct {
	global *cmdGlobal

	flagListen string
	flagDebug  bool
}

func (c *cmdServe) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "serve"
	cmd.Short = "Run the HTTP server"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	cmd.Flags().StringVar(&c.flagListen, "listen", "", "Listen address, overrides HOST and PORT")
	cmd.Flags().BoolVar(&c.flagDebug, "debug", false, "Enable gin debug mode and the /debug/config endpoint")

	return cmd
}

func (c *cmdServe) Run(cmd *cobra.Command, args []string) error {
	cfg := c.global.cfg
	log := c.global.log

	if c.flagDebug {
		cfg.Server.DebugEndpoints = true
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := service.NewPostgresClient(cfg.Database.DSN(), log, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe(ctx, log, db)

	h := handler.New(db, cfg.Database, log)
	router := handler.NewRouter(h, handler.RouterOptions{
		Metrics:        m,
		DebugEndpoints: cfg.Server.DebugEndpoints,
	})

	addr := cfg.Server.Address()
	if c.flagListen != "" {
		addr = c.flagListen
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.Ctx{"addr": addr, "database": cfg.Database.Summary()})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// probe logs whether the store is reachable. The server starts either way.
func probe(ctx context.Context, log logger.Logger, db service.DBClient) {
	ctx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()

	version, err := db.Version(ctx)
	if err != nil {
		log.Warn("Database not reachable at startup", logger.Ctx{"err": service.ErrorMessage(err)})
		return
	}

	log.Info("Database reachable", logger.Ctx{"version": version})
}
