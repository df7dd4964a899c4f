package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 工资类型
type SalaryType string

const (
	SalaryNormal    SalaryType = "normal"
	SalaryBonus     SalaryType = "bonus"
	SalaryAllowance SalaryType = "allowance"
	SalaryOther     SalaryType = "other"
)

// Valid 是否为合法的工资类型
func (t SalaryType) Valid() bool {
	switch t {
	case SalaryNormal, SalaryBonus, SalaryAllowance, SalaryOther:
		return true
	}
	return false
}

// 发薪心情
type Mood string

const (
	MoodHappy  Mood = "happy"
	MoodRelief Mood = "relief"
	MoodSad    Mood = "sad"
	MoodAngry  Mood = "angry"
	MoodExpect Mood = "expect"
)

// Valid 是否为合法的心情
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodRelief, MoodSad, MoodAngry, MoodExpect:
		return true
	}
	return false
}

// SalaryRecord 工资记录，金额只以密文形式落库
//
// EncryptionSalt 的列默认值与 vault.LegacySaltSentinel 一致，
// 加盐方案上线前写入的记录迁移后都带有这个哨兵值。
type SalaryRecord struct {
	ID                string     `gorm:"size:36;primaryKey" json:"id"`
	UserID            string     `gorm:"size:36;not null;index" json:"userId"`
	AmountEncrypted   string     `gorm:"type:text;not null" json:"-"`
	EncryptionSalt    string     `gorm:"size:64;not null;default:'legacy'" json:"-"`
	NeedsReencryption bool       `gorm:"not null;default:false;index" json:"-"`
	PaydayDate        time.Time  `gorm:"type:date;not null;index" json:"paydayDate"`
	SalaryType        SalaryType `gorm:"size:20;not null;default:'normal'" json:"salaryType"`
	Images            []string   `gorm:"serializer:json" json:"images"`
	Note              string     `gorm:"type:text" json:"note"`
	Mood              Mood       `gorm:"size:20;not null" json:"mood"`
	Moderation
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *SalaryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.RiskStatus == "" {
		r.RiskStatus = RiskPending
	}
	return nil
}

func (r *SalaryRecord) ModerationText() string       { return r.Note }
func (r *SalaryRecord) ModerationImages() []string   { return r.Images }
func (r *SalaryRecord) ModerationAuthor() string     { return r.UserID }
func (r *SalaryRecord) ModerationState() *Moderation { return &r.Moderation }

// SalaryRecordRequest 新增工资记录请求
type SalaryRecordRequest struct {
	Amount     *decimal.Decimal `json:"amount"`
	PaydayDate string           `json:"paydayDate" binding:"required"` // 2006-01-02
	SalaryType SalaryType       `json:"salaryType"`
	Images     []string         `json:"images" binding:"max=9"`
	Note       string           `json:"note" binding:"max=500"`
	Mood       Mood             `json:"mood" binding:"required"`
}

// SalaryRecordUpdate 更新工资记录请求，未传字段保持不变
type SalaryRecordUpdate struct {
	Amount     *decimal.Decimal `json:"amount"`
	PaydayDate *string          `json:"paydayDate"`
	SalaryType *SalaryType      `json:"salaryType"`
	Note       *string          `json:"note" binding:"omitempty,max=500"`
	Mood       *Mood            `json:"mood"`
}

// SalaryRecordResponse 工资记录响应，金额解密失败时 Amount 为空
type SalaryRecordResponse struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	Amount            *decimal.Decimal `json:"amount"`
	AmountUnavailable bool             `json:"amountUnavailable"`
	AmountDisplay     string           `json:"amountDisplay"`
	PaydayDate        string           `json:"paydayDate"`
	SalaryType        SalaryType       `json:"salaryType"`
	Images            []string         `json:"images"`
	Note              string           `json:"note"`
	Mood              Mood             `json:"mood"`
	RiskStatus        RiskStatus       `json:"riskStatus"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}
