package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BinLe1988/payday-server/api/middleware"
	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/moderation"
	"github.com/BinLe1988/payday-server/pkg/risk"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Reviewer 人工复核
type Reviewer interface {
	Review(ctx context.Context, kind moderation.Kind, id string, status models.RiskStatus, adminID string) error
}

// ModerationHandler 管理端风控：敏感词维护、人工复核、评分试算
type ModerationHandler struct {
	words    *words.Registry
	engine   moderation.Evaluator
	reviewer Reviewer
	log      *zap.Logger
}

// NewModerationHandler 创建风控管理处理器
func NewModerationHandler(registry *words.Registry, engine moderation.Evaluator, reviewer Reviewer, log *zap.Logger) *ModerationHandler {
	return &ModerationHandler{words: registry, engine: engine, reviewer: reviewer, log: log}
}

// RegisterRoutes 注册路由，group 需已挂载管理员鉴权
func (h *ModerationHandler) RegisterRoutes(group *gin.RouterGroup) {
	sw := group.Group("/sensitive-words")
	{
		sw.GET("", h.ListWords)
		sw.GET("/grouped", h.GroupedWords)
		sw.POST("", h.CreateWord)
		sw.PUT("/:id", h.UpdateWord)
		sw.DELETE("/:id", h.DeleteWord)
	}
	group.PUT("/review/:kind/:id", h.Review)
	group.POST("/risk/evaluate", h.Evaluate)
}

// ListWords 敏感词列表，支持 category 和 is_active 筛选
func (h *ModerationHandler) ListWords(c *gin.Context) {
	f := words.Filter{Category: c.Query("category")}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active must be a boolean"})
			return
		}
		f.IsActive = &active
	}

	list, err := h.words.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": list, "total": len(list)})
}

// GroupedWords 启用的敏感词按分类分组
func (h *ModerationHandler) GroupedWords(c *gin.Context) {
	grouped, err := h.words.ActiveByCategory(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": grouped})
}

// CreateWord 新增敏感词
func (h *ModerationHandler) CreateWord(c *gin.Context) {
	var req models.SensitiveWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.words.Create(c.Request.Context(), req.Word, req.Category)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"word": w})
}

// UpdateWord 更新敏感词
func (h *ModerationHandler) UpdateWord(c *gin.Context) {
	var req models.SensitiveWordUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.words.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"word": w})
}

// DeleteWord 删除敏感词
func (h *ModerationHandler) DeleteWord(c *gin.Context) {
	if err := h.words.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sensitive word deleted"})
}

// ReviewRequest 人工复核请求
type ReviewRequest struct {
	Status models.RiskStatus `json:"status" binding:"required"`
}

// Review 人工复核，覆盖自动审核结果
func (h *ModerationHandler) Review(c *gin.Context) {
	kind, err := moderation.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.reviewer.Review(c.Request.Context(), kind, c.Param("id"), req.Status, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Review applied",
		"status":  req.Status,
	})
}

// EvaluateRequest 评分试算请求
type EvaluateRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// Evaluate 评分试算，不落库
func (h *ModerationHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Evaluate(c.Request.Context(), req.Content, req.Images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score":  result.Score,
		"action": result.Action,
		"reason": result.Reason,
		"status": moderation.StatusFor(result.Action),
	})
}

func (h *ModerationHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, words.ErrWordNotFound), errors.Is(err, moderation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, words.ErrDuplicateWord):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, words.ErrEmptyWord), errors.Is(err, moderation.ErrInvalidStatus), errors.Is(err, moderation.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, risk.ErrRegistryUnavailable):
		h.log.Error("sensitive word registry unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sensitive word registry unavailable"})
	default:
		h.log.Error("moderation request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
