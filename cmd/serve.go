package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BinLe1988/payday-server/api"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveFlags struct {
	withWorker bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

New posts, comments and salary records are stored as pending and a moderation
job is pushed to Redis. Use --with-worker to consume the queue in the same
process, or run "payday worker" separately.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveFlags.withWorker, "with-worker", false, "also run moderation workers in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "payday-api", true)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(a.cfg.Server.Mode)

	deps := api.Deps{
		DB:          a.db,
		Log:         a.log,
		Queue:       a.queue,
		Words:       a.words,
		Engine:      a.engine,
		Runner:      a.runner,
		Salary:      a.salary,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Checks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := a.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return a.redis.Ping(ctx).Err()
			},
		},
	}
	if a.cfg.Metrics.Enabled {
		deps.Gatherer = a.metricsReg
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if serveFlags.withWorker {
		g.Go(func() error {
			return a.runWorkers(ctx)
		})
	}

	return g.Wait()
}
