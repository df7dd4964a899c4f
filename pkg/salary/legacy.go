package salary

import (
	"context"
	"fmt"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/vault"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScanLegacy 把加盐方案上线前写入的记录标记为待重新加密，返回新标记的数量
//
// 这些记录的金额无法再解密，只能由用户重新填写金额后按当前方案加密。
func (s *Service) ScanLegacy(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.SalaryRecord{}).
		Where("encryption_salt = ? AND needs_reencryption = ?", vault.LegacySaltSentinel, false).
		Update("needs_reencryption", true)
	if res.Error != nil {
		return 0, fmt.Errorf("scan legacy salary records: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Warn("legacy salary records flagged for re-encryption", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// ScheduleLegacyScan 在 c 上注册定时扫描，schedule 为空时不注册
func (s *Service) ScheduleLegacyScan(ctx context.Context, c *cron.Cron, schedule string) error {
	if schedule == "" {
		return nil
	}
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.ScanLegacy(ctx); err != nil {
			s.log.Error("legacy scan failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid legacy scan schedule %q: %w", schedule, err)
	}
	return nil
}
