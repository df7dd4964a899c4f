package models

import (
	"time"

	"gorm.io/gorm"
)

// 风控状态
type RiskStatus string

const (
	RiskPending  RiskStatus = "pending"
	RiskApproved RiskStatus = "approved"
	RiskRejected RiskStatus = "rejected"
)

// Valid 是否为合法的风控状态
func (s RiskStatus) Valid() bool {
	switch s {
	case RiskPending, RiskApproved, RiskRejected:
		return true
	}
	return false
}

// Moderation 风控字段，嵌入到帖子、评论、工资记录中
//
// 自动审核只写 RiskStatus/RiskScore/RiskReason/RiskCheckedAt；
// 人工复核写 RiskReviewedBy/RiskReviewedAt，之后自动审核不再覆盖。
// RiskRound 在内容修改后重新送审时加一，拒绝通知按轮次去重。
type Moderation struct {
	RiskStatus     RiskStatus `gorm:"size:20;not null;default:'pending';index" json:"riskStatus"`
	RiskScore      *int       `json:"riskScore"`
	RiskReason     *string    `gorm:"size:255" json:"riskReason"`
	RiskCheckedAt  *time.Time `json:"riskCheckedAt"`
	RiskReviewedBy *string    `gorm:"size:36" json:"-"`
	RiskReviewedAt *time.Time `json:"-"`
	RiskRound      int        `gorm:"not null;default:0" json:"-"`
}

// ManuallyReviewed 是否已被管理员人工复核
func (m *Moderation) ManuallyReviewed() bool {
	return m.RiskReviewedBy != nil
}

// ModerationReset 内容修改后重新进入审核的字段更新
func ModerationReset() map[string]interface{} {
	return map[string]interface{}{
		"risk_status":      RiskPending,
		"risk_score":       nil,
		"risk_reason":      nil,
		"risk_checked_at":  nil,
		"risk_reviewed_by": nil,
		"risk_reviewed_at": nil,
		"risk_round":       gorm.Expr("risk_round + ?", 1),
	}
}

// Moderatable 可被风控审核的内容
type Moderatable interface {
	ModerationText() string
	ModerationImages() []string
	ModerationAuthor() string
	ModerationState() *Moderation
}
