package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/risk"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 拒绝通知
const (
	RejectionTitle        = "内容未通过审核"
	ManualRejectionReason = "管理员复核未通过"
)

// Evaluator 风控评分
type Evaluator interface {
	Evaluate(ctx context.Context, content string, images []string) (risk.Result, error)
}

// Runner 执行单个审核任务：重新加载内容、评分、落库并通知作者
type Runner struct {
	db      *gorm.DB
	engine  Evaluator
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewRunner 创建审核任务执行器，metrics 可为 nil
func NewRunner(db *gorm.DB, engine Evaluator, log *zap.Logger, metrics *Metrics) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		db:      db,
		engine:  engine,
		log:     log.With(zap.String("module", "moderation")),
		metrics: metrics,
		now:     time.Now,
	}
}

// StatusFor 处置建议对应的风控状态，manual 保持 pending 等待人工复核
func StatusFor(a risk.Action) models.RiskStatus {
	switch a {
	case risk.ActionApprove:
		return models.RiskApproved
	case risk.ActionReject:
		return models.RiskRejected
	case risk.ActionManual:
		return models.RiskPending
	}
	return models.RiskPending
}

// Run 执行审核任务
//
// 内容不存在或已被人工复核时直接返回 nil。状态更新与拒绝通知在同一事务中写入，
// 通知带去重键，任务重复投递不会产生第二条通知。
func (r *Runner) Run(ctx context.Context, job Job) error {
	start := r.now()
	defer r.metrics.observe(job.Kind, start)

	log := r.log.With(zap.String("kind", string(job.Kind)), zap.String("content_id", job.ContentID))

	record, err := r.load(ctx, job.Kind, job.ContentID)
	if errors.Is(err, ErrNotFound) {
		log.Info("content no longer exists, skipping")
		return nil
	}
	if err != nil {
		r.metrics.failed(job.Kind, StageLoad)
		return err
	}

	state := record.ModerationState()
	if state.ManuallyReviewed() {
		log.Info("content already reviewed by admin, skipping", zap.String("status", string(state.RiskStatus)))
		return nil
	}

	result, err := r.engine.Evaluate(ctx, record.ModerationText(), record.ModerationImages())
	if err != nil {
		r.metrics.failed(job.Kind, StageEvaluate)
		return fmt.Errorf("evaluate %s: %w", job, err)
	}

	status := StatusFor(result.Action)
	applied, err := r.apply(ctx, job.Kind, job.ContentID, record.ModerationAuthor(), state.RiskRound, status, result)
	if err != nil {
		r.metrics.failed(job.Kind, StagePersist)
		return fmt.Errorf("persist %s: %w", job, err)
	}
	if !applied {
		log.Info("content changed during evaluation, result discarded", zap.Int("round", state.RiskRound))
		return nil
	}

	r.metrics.evaluated(job.Kind, result.Action.String())
	log.Info("moderation applied",
		zap.Int("score", result.Score),
		zap.Stringer("action", result.Action),
		zap.String("status", string(status)),
	)
	return nil
}

func (r *Runner) load(ctx context.Context, kind Kind, id string) (models.Moderatable, error) {
	record, err := newRecord(kind)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Where("id = ?", id).First(record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s:%s: %w", kind, id, err)
	}
	return record, nil
}

// apply 只更新仍处于 round 轮次且未被人工复核的记录，内容在评分期间被修改或复核时返回 false
func (r *Runner) apply(ctx context.Context, kind Kind, id, author string, round int, status models.RiskStatus, result risk.Result) (bool, error) {
	var reason *string
	if result.Reason != "" {
		reason = &result.Reason
	}
	score := result.Score

	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := newRecord(kind)
		if err != nil {
			return err
		}
		res := tx.Model(model).
			Where("id = ? AND risk_round = ? AND risk_reviewed_by IS NULL", id, round).
			Updates(map[string]interface{}{
				"risk_status":     status,
				"risk_score":      score,
				"risk_reason":     reason,
				"risk_checked_at": r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if status != models.RiskRejected || reason == nil {
			return nil
		}
		return notifyRejection(tx, kind, id, author, round, *reason)
	})
	return applied, err
}

// Review 管理员人工复核，覆盖自动审核结果，只接受 approved 或 rejected
func (r *Runner) Review(ctx context.Context, kind Kind, id string, status models.RiskStatus, adminID string) error {
	if status != models.RiskApproved && status != models.RiskRejected {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	record, err := r.load(ctx, kind, id)
	if err != nil {
		return err
	}

	now := r.now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := newRecord(kind)
		if err != nil {
			return err
		}
		err = tx.Model(model).Where("id = ?", id).Updates(map[string]interface{}{
			"risk_status":      status,
			"risk_reviewed_by": adminID,
			"risk_reviewed_at": now,
		}).Error
		if err != nil {
			return err
		}

		if status != models.RiskRejected {
			return nil
		}
		reason := ManualRejectionReason
		if prev := record.ModerationState().RiskReason; prev != nil && *prev != "" {
			reason = *prev
		}
		return notifyRejection(tx, kind, id, record.ModerationAuthor(), record.ModerationState().RiskRound, reason)
	})
	if err != nil {
		return fmt.Errorf("review %s:%s: %w", kind, id, err)
	}

	r.log.Info("moderation overridden by admin",
		zap.String("kind", string(kind)),
		zap.String("content_id", id),
		zap.String("status", string(status)),
		zap.String("admin_id", adminID),
	)
	return nil
}

func notifyRejection(tx *gorm.DB, kind Kind, id, author string, round int, reason string) error {
	key := rejectionKey(kind, id, round)
	n := models.Notification{
		UserID:    author,
		Type:      models.NotificationSystem,
		Title:     RejectionTitle,
		Content:   reason,
		RelatedID: id,
		DedupKey:  &key,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&n).Error
}
