package handlers

import (
	"errors"
	"net/http"

	"github.com/BinLe1988/payday-server/api/middleware"
	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/moderation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostHandler 帖子和评论
type PostHandler struct {
	db    *gorm.DB
	queue moderation.Enqueuer
	log   *zap.Logger
}

// NewPostHandler 创建帖子处理器
func NewPostHandler(db *gorm.DB, queue moderation.Enqueuer, log *zap.Logger) *PostHandler {
	return &PostHandler{db: db, queue: queue, log: log}
}

// CreatePost 发帖，内容先以 pending 落库，审核异步进行
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	postType := req.Type
	if postType == "" {
		postType = models.PostComplaint
	}
	post := models.Post{
		UserID:        user.ID,
		AnonymousName: user.AnonymousName,
		Content:       req.Content,
		Images:        req.Images,
		Type:          postType,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&post).Error; err != nil {
		h.log.Error("create post failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	submit(c.Request.Context(), h.queue, h.log, moderation.KindPost, post.ID)
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// ListPosts 帖子列表，只返回审核通过的帖子
func (h *PostHandler) ListPosts(c *gin.Context) {
	page, size := pagination(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.Post{}).
		Where("risk_status = ? AND status = ?", models.RiskApproved, models.PostNormal)
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count posts"})
		return
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// GetPost 帖子详情，未通过审核的帖子只有作者可见
func (h *PostHandler) GetPost(c *gin.Context) {
	post, ok := h.visiblePost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// CreateComment 评论
func (h *PostHandler) CreateComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, ok := h.visiblePost(c)
	if !ok {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	comment := models.Comment{
		PostID:        post.ID,
		UserID:        user.ID,
		ParentID:      req.ParentID,
		AnonymousName: user.AnonymousName,
		Content:       req.Content,
	}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
	if err != nil {
		h.log.Error("create comment failed", zap.String("post_id", post.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	submit(c.Request.Context(), h.queue, h.log, moderation.KindComment, comment.ID)
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// ListComments 评论列表，只返回审核通过的评论
func (h *PostHandler) ListComments(c *gin.Context) {
	post, ok := h.visiblePost(c)
	if !ok {
		return
	}
	page, size := pagination(c)

	var comments []models.Comment
	err := h.db.WithContext(c.Request.Context()).
		Where("post_id = ? AND risk_status = ?", post.ID, models.RiskApproved).
		Order("created_at ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *PostHandler) visiblePost(c *gin.Context) (*models.Post, bool) {
	var post models.Post
	err := h.db.WithContext(c.Request.Context()).Where("id = ? AND status <> ?", c.Param("id"), models.PostDeleted).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if post.RiskStatus != models.RiskApproved && post.UserID != middleware.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

func (h *PostHandler) currentUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("id = ?", middleware.UserID(c)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, false
	}
	return &user, true
}
