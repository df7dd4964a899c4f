package models

import (
	"time"

	"gorm.io/gorm"
)

// 敏感词分类
const (
	WordCategoryIllegal  = "illegal"
	WordCategoryPorn     = "porn"
	WordCategoryViolence = "violence"
	WordCategoryPolitics = "politics"
	WordCategoryFraud    = "fraud"
	WordCategoryOther    = "other"
)

// SensitiveWord 风控敏感词
type SensitiveWord struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	Word      string    `gorm:"size:100;not null;uniqueIndex" json:"word"`
	Category  string    `gorm:"size:50;not null;index" json:"category"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w *SensitiveWord) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = newID()
	}
	return nil
}

// SensitiveWordRequest 新增敏感词请求
type SensitiveWordRequest struct {
	Word     string `json:"word" binding:"required,max=100"`
	Category string `json:"category" binding:"required,max=50"`
}

// SensitiveWordUpdate 更新敏感词请求，未传字段保持不变
type SensitiveWordUpdate struct {
	Word     *string `json:"word" binding:"omitempty,max=100"`
	Category *string `json:"category" binding:"omitempty,max=50"`
	IsActive *bool   `json:"isActive"`
}
