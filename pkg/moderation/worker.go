package moderation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskRunner 执行单个任务
type TaskRunner interface {
	Run(ctx context.Context, job Job) error
}

// WorkerConfig 工作池配置
type WorkerConfig struct {
	Workers     int
	TaskTimeout time.Duration
	PollTimeout time.Duration
}

// Worker 审核任务工作池
type Worker struct {
	queue   Queue
	runner  TaskRunner
	cfg     WorkerConfig
	log     *zap.Logger
	metrics *Metrics
	backoff time.Duration
}

// NewWorker 创建工作池
func NewWorker(queue Queue, runner TaskRunner, cfg WorkerConfig, log *zap.Logger, metrics *Metrics) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	return &Worker{
		queue:   queue,
		runner:  runner,
		cfg:     cfg,
		log:     log.With(zap.String("module", "moderation.worker")),
		metrics: metrics,
		backoff: time.Second,
	}
}

// Run 启动 cfg.Workers 个协程消费队列，直到 ctx 取消
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("moderation workers started", zap.Int("workers", w.cfg.Workers))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			w.loop(ctx, id)
			return nil
		})
	}
	err := g.Wait()

	w.log.Info("moderation workers stopped")
	return err
}

func (w *Worker) loop(ctx context.Context, id int) {
	log := w.log.With(zap.Int("worker", id))
	for ctx.Err() == nil {
		d, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrMalformedJob) {
				log.Error("malformed job moved to dead letter", zap.Error(err))
				continue
			}
			log.Warn("dequeue failed", zap.Error(err))
			w.sleep(ctx)
			continue
		}
		if d == nil {
			continue
		}
		w.Process(ctx, d)
	}
}

// Process 执行一个任务并确认、重试或转入死信
func (w *Worker) Process(ctx context.Context, d *Delivery) {
	log := w.log.With(
		zap.String("kind", string(d.Job.Kind)),
		zap.String("content_id", d.Job.ContentID),
		zap.Int("attempts", d.Job.Attempts),
	)

	taskCtx, cancel := context.WithTimeout(ctx, w.cfg.TaskTimeout)
	err := w.runner.Run(taskCtx, d.Job)
	cancel()

	if err == nil {
		if ackErr := w.queue.Ack(ctx, d); ackErr != nil {
			w.metrics.failed(d.Job.Kind, StageQueue)
			log.Warn("ack failed, job may be redelivered", zap.Error(ackErr))
		}
		return
	}

	if errors.Is(err, ErrUnknownKind) {
		if buryErr := w.queue.Bury(ctx, d); buryErr != nil {
			log.Error("bury failed", zap.Error(buryErr))
		}
		w.metrics.deadLettered(d.Job.Kind)
		log.Error("job dead-lettered", zap.Error(err))
		return
	}

	dead, retryErr := w.queue.Retry(ctx, d)
	if retryErr != nil {
		w.metrics.failed(d.Job.Kind, StageQueue)
		log.Error("retry failed", zap.Error(err), zap.NamedError("retry_error", retryErr))
		return
	}
	if dead {
		w.metrics.deadLettered(d.Job.Kind)
		log.Error("job dead-lettered after max attempts", zap.Error(err))
		return
	}
	log.Warn("moderation task failed, will retry", zap.Error(err))
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
