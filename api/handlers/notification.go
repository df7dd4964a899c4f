package handlers

import (
	"errors"
	"net/http"

	"github.com/BinLe1988/payday-server/api/middleware"
	"github.com/BinLe1988/payday-server/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NotificationHandler 用户通知
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List 当前用户的通知，?unread=true 只看未读
func (h *NotificationHandler) List(c *gin.Context) {
	page, size := pagination(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.Notification{}).
		Where("user_id = ?", middleware.UserID(c))
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	var list []models.Notification
	if err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"total":         total,
	})
}

// MarkRead 标记已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var n models.Notification
	if err := db.Where("id = ? AND user_id = ?", c.Param("id"), middleware.UserID(c)).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !n.IsRead {
		if err := db.Model(&n).Update("is_read", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
