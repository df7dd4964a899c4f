package models

import (
	"time"

	"gorm.io/gorm"
)

// 通知类型
type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
	NotificationLike    NotificationType = "like"
	NotificationSystem  NotificationType = "system"
)

// Notification 用户通知
type Notification struct {
	ID        string           `gorm:"size:36;primaryKey" json:"id"`
	UserID    string           `gorm:"size:36;not null;index" json:"userId"`
	Type      NotificationType `gorm:"size:20;not null" json:"type"`
	Title     string           `gorm:"size:100;not null" json:"title"`
	Content   string           `gorm:"type:text" json:"content"`
	RelatedID string           `gorm:"size:36" json:"relatedId"`
	IsRead    bool             `gorm:"not null;default:false" json:"isRead"`
	// 同一事件只通知一次，例如 "post:<id>:rejected"
	DedupKey  *string   `gorm:"size:100;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = newID()
	}
	return nil
}
