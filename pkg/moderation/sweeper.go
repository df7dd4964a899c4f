package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweeperConfig 补偿扫描配置
type SweeperConfig struct {
	Schedule string
	Grace    time.Duration
	Batch    int
}

// Sweeper 定时把从未评分的 pending 内容重新入队
//
// 入队失败或任务耗尽重试次数的内容会一直停在 pending 且 risk_checked_at 为空，
// 这里按创建时间把超过宽限期的内容重新提交。
type Sweeper struct {
	db      *gorm.DB
	queue   Enqueuer
	cfg     SweeperConfig
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper 创建补偿扫描器
func NewSweeper(db *gorm.DB, queue Enqueuer, cfg SweeperConfig, log *zap.Logger, metrics *Metrics) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	return &Sweeper{
		db:      db,
		queue:   queue,
		cfg:     cfg,
		log:     log.With(zap.String("module", "moderation.sweeper")),
		metrics: metrics,
		now:     time.Now,
	}
}

// Sweep 执行一次扫描，返回重新入队的数量
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.Grace)
	total := 0
	for _, kind := range Kinds {
		model, err := newRecord(kind)
		if err != nil {
			return total, err
		}

		var ids []string
		err = s.db.WithContext(ctx).Model(model).
			Where("risk_status = ? AND risk_checked_at IS NULL AND risk_reviewed_by IS NULL", "pending").
			Where("created_at < ?", cutoff).
			Order("created_at ASC").
			Limit(s.cfg.Batch).
			Pluck("id", &ids).Error
		if err != nil {
			return total, fmt.Errorf("sweep %s: %w", kind, err)
		}

		n := 0
		for _, id := range ids {
			if err := s.queue.Enqueue(ctx, Job{Kind: kind, ContentID: id}); err != nil {
				s.metrics.swept(kind, n)
				return total + n, err
			}
			n++
		}
		s.metrics.swept(kind, n)
		total += n
	}
	return total, nil
}

// Start 按 cron 表达式定时扫描，Schedule 为空时不启动
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Schedule == "" {
		s.log.Info("sweep schedule not configured, skipping")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("sweep failed", zap.Int("requeued", n), zap.Error(err))
			return
		}
		if n > 0 {
			s.log.Info("stale pending content requeued", zap.Int("requeued", n))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.cron = c
	s.log.Info("sweeper started", zap.String("schedule", s.cfg.Schedule), zap.Duration("grace", s.cfg.Grace))
	return nil
}

// Stop 停止定时扫描并等待正在执行的扫描结束
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}
