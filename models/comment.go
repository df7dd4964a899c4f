package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment 帖子评论
type Comment struct {
	ID            string  `gorm:"size:36;primaryKey" json:"id"`
	PostID        string  `gorm:"size:36;not null;index" json:"postId"`
	UserID        string  `gorm:"size:36;not null;index" json:"userId"`
	ParentID      *string `gorm:"size:36" json:"parentId"`
	AnonymousName string  `gorm:"size:50;not null" json:"anonymousName"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	Moderation
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.RiskStatus == "" {
		c.RiskStatus = RiskPending
	}
	return nil
}

func (c *Comment) ModerationText() string       { return c.Content }
func (c *Comment) ModerationImages() []string   { return nil }
func (c *Comment) ModerationAuthor() string     { return c.UserID }
func (c *Comment) ModerationState() *Moderation { return &c.Moderation }

// CreateCommentRequest 评论请求
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required,max=1000"`
	ParentID *string `json:"parentId"`
}
