package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/BinLe1988/payday-server/api/middleware"
	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/moderation"
	"github.com/BinLe1988/payday-server/pkg/salary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SalaryHandler 工资记录
type SalaryHandler struct {
	svc   *salary.Service
	queue moderation.Enqueuer
	log   *zap.Logger
}

// NewSalaryHandler 创建工资记录处理器
func NewSalaryHandler(svc *salary.Service, queue moderation.Enqueuer, log *zap.Logger) *SalaryHandler {
	return &SalaryHandler{svc: svc, queue: queue, log: log}
}

// Create 新增工资记录
func (h *SalaryHandler) Create(c *gin.Context) {
	var req models.SalaryRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	submit(c.Request.Context(), h.queue, h.log, moderation.KindSalary, record.ID)
	c.JSON(http.StatusCreated, gin.H{"record": h.svc.ToResponse(record)})
}

// List 本人的工资记录
func (h *SalaryHandler) List(c *gin.Context) {
	page, size := pagination(c)
	records, total, err := h.svc.List(c.Request.Context(), middleware.UserID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": h.svc.ToResponses(records),
		"total":   total,
		"page":    page,
		"size":    size,
	})
}

// Update 更新工资记录
func (h *SalaryHandler) Update(c *gin.Context) {
	var upd models.SalaryRecordUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, remoderate, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	if remoderate {
		submit(c.Request.Context(), h.queue, h.log, moderation.KindSalary, record.ID)
	}
	c.JSON(http.StatusOK, gin.H{"record": h.svc.ToResponse(record)})
}

// Delete 删除工资记录
func (h *SalaryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Salary record deleted"})
}

// AdminList 管理端工资记录列表
func (h *SalaryHandler) AdminList(c *gin.Context) {
	page, size := pagination(c)
	f := salary.Filter{
		UserID:     c.Query("user_id"),
		RiskStatus: models.RiskStatus(c.Query("risk_status")),
	}
	if v := c.Query("needs_reencryption"); v != "" {
		flag, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "needs_reencryption must be a boolean"})
			return
		}
		f.NeedsReencryption = &flag
	}

	records, total, err := h.svc.AdminList(c.Request.Context(), f, page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": h.svc.ToResponses(records),
		"total":   total,
		"page":    page,
		"size":    size,
	})
}

func (h *SalaryHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, salary.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, salary.ErrInvalidAmount),
		errors.Is(err, salary.ErrInvalidDate),
		errors.Is(err, salary.ErrInvalidMood),
		errors.Is(err, salary.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("salary request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
