package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthHandler 管理员认证
type AuthHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(db *gorm.DB, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, log: log}
}

// AdminLogin 管理员登录
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var admin models.Admin
	err := db.Where("username = ?", req.Username).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		h.log.Error("load admin failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 验证密码
	if !utils.CheckPassword(admin.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if !admin.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin account is disabled"})
		return
	}

	// 更新最后登录时间
	now := time.Now()
	if err := db.Model(&admin).Update("last_login", now).Error; err != nil {
		h.log.Warn("update admin last login failed", zap.String("admin_id", admin.ID), zap.Error(err))
	}
	admin.LastLogin = &now

	// 生成JWT令牌
	token, err := utils.GenerateToken(admin.ID, utils.RoleAdmin)
	if err != nil {
		h.log.Error("generate token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": admin,
	})
}
