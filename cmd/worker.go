package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BinLe1988/payday-server/pkg/moderation"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var workerFlags struct {
	metricsAddr string
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the moderation workers",
	Long: `Run the moderation workers.

Consumes moderation jobs from Redis, re-enqueues stale pending content on the
sweep schedule and flags legacy salary records on the legacy scan schedule.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerFlags.metricsAddr, "metrics-addr", "", "serve /metrics on this address, e.g. :9100")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "payday-worker", true)
	if err != nil {
		return err
	}
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runWorkers(ctx)
	})

	if workerFlags.metricsAddr != "" && a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.metricsReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: workerFlags.metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// runWorkers 恢复遗留任务，启动定时任务和工作池，直到 ctx 取消
func (a *app) runWorkers(ctx context.Context) error {
	mc := a.cfg.Moderation

	n, err := a.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Warn("recovered unacknowledged moderation jobs", zap.Int("count", n))
	}

	sweeper := moderation.NewSweeper(a.db, a.queue, moderation.SweeperConfig{
		Schedule: mc.SweepCron,
		Grace:    mc.SweepGrace,
		Batch:    mc.SweepBatch,
	}, a.log, a.modMetrics)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	legacy := cron.New()
	if err := a.salary.ScheduleLegacyScan(ctx, legacy, mc.LegacyCron); err != nil {
		return err
	}
	legacy.Start()
	defer func() { <-legacy.Stop().Done() }()

	worker := moderation.NewWorker(a.queue, a.runner, moderation.WorkerConfig{
		Workers:     mc.Workers,
		TaskTimeout: mc.TaskTimeout,
		PollTimeout: mc.PollTimeout,
	}, a.log, a.modMetrics)
	return worker.Run(ctx)
}
