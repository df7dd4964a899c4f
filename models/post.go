package models

import (
	"time"

	"gorm.io/gorm"
)

// 帖子类型
type PostType string

const (
	PostComplaint PostType = "complaint"
	PostSharing   PostType = "sharing"
	PostQuestion  PostType = "question"
)

// 帖子状态
type PostStatus string

const (
	PostNormal  PostStatus = "normal"
	PostHidden  PostStatus = "hidden"
	PostDeleted PostStatus = "deleted"
)

// Post 帖子
type Post struct {
	ID            string     `gorm:"size:36;primaryKey" json:"id"`
	UserID        string     `gorm:"size:36;not null;index" json:"userId"`
	AnonymousName string     `gorm:"size:50;not null" json:"anonymousName"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	Images        []string   `gorm:"serializer:json" json:"images"`
	Type          PostType   `gorm:"size:20;not null;default:'complaint'" json:"type"`
	Status        PostStatus `gorm:"size:20;not null;default:'normal'" json:"status"`
	LikeCount     int        `gorm:"not null;default:0" json:"likeCount"`
	CommentCount  int        `gorm:"not null;default:0" json:"commentCount"`
	Moderation
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.RiskStatus == "" {
		p.RiskStatus = RiskPending
	}
	return nil
}

func (p *Post) ModerationText() string       { return p.Content }
func (p *Post) ModerationImages() []string   { return p.Images }
func (p *Post) ModerationAuthor() string     { return p.UserID }
func (p *Post) ModerationState() *Moderation { return &p.Moderation }

// CreatePostRequest 发帖请求
type CreatePostRequest struct {
	Content string   `json:"content" binding:"required,max=5000"`
	Images  []string `json:"images" binding:"max=9"`
	Type    PostType `json:"type"`
}
