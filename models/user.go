package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID 生成 uuid 主键
func newID() string {
	return uuid.New().String()
}

// 用户状态
const (
	UserNormal = "normal"
	UserBanned = "banned"
)

// User 社区用户，登录由小程序侧完成，这里只保留风控和通知需要的字段
type User struct {
	ID            string         `gorm:"size:36;primaryKey" json:"id"`
	OpenID        *string        `gorm:"size:64;uniqueIndex" json:"-"`
	AnonymousName string         `gorm:"size:50;not null" json:"anonymousName"`
	Status        string         `gorm:"size:20;not null;default:'normal'" json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}

// Admin 管理后台账号
type Admin struct {
	ID           string     `gorm:"size:36;primaryKey" json:"id"`
	Username     string     `gorm:"size:50;not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}

// CredentialRequest 管理员登录请求
type CredentialRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}
