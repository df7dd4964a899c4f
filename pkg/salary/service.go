// Package salary 工资记录服务，金额只以 vault 密文形式落库
package salary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/vault"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AmountPlaceholder 金额无法解密时展示的文案
const AmountPlaceholder = "无法显示该金额"

const dateLayout = "2006-01-02"

var (
	ErrRecordNotFound = errors.New("salary record not found")
	ErrInvalidAmount  = errors.New("amount is required and must not be negative")
	ErrInvalidDate    = errors.New("payday date must be YYYY-MM-DD")
	ErrInvalidMood    = errors.New("invalid mood")
	ErrInvalidType    = errors.New("invalid salary type")
)

// Service 工资记录服务
type Service struct {
	db      *gorm.DB
	vault   *vault.Vault
	log     *zap.Logger
	metrics *Metrics
}

// NewService 创建工资记录服务，metrics 可为 nil
func NewService(db *gorm.DB, v *vault.Vault, log *zap.Logger, metrics *Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:      db,
		vault:   v,
		log:     log.With(zap.String("module", "salary")),
		metrics: metrics,
	}
}

// Filter 管理端列表筛选
type Filter struct {
	UserID            string
	NeedsReencryption *bool
	RiskStatus        models.RiskStatus
}

// Create 新增工资记录
func (s *Service) Create(ctx context.Context, userID string, req models.SalaryRecordRequest) (*models.SalaryRecord, error) {
	if req.Amount == nil || req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	payday, err := parseDate(req.PaydayDate)
	if err != nil {
		return nil, err
	}
	if !req.Mood.Valid() {
		return nil, ErrInvalidMood
	}
	salaryType := req.SalaryType
	if salaryType == "" {
		salaryType = models.SalaryNormal
	}
	if !salaryType.Valid() {
		return nil, ErrInvalidType
	}

	sealed, err := s.seal(*req.Amount)
	if err != nil {
		return nil, err
	}

	record := &models.SalaryRecord{
		UserID:          userID,
		AmountEncrypted: sealed.Ciphertext,
		EncryptionSalt:  sealed.Salt,
		PaydayDate:      payday,
		SalaryType:      salaryType,
		Images:          req.Images,
		Note:            req.Note,
		Mood:            req.Mood,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("create salary record: %w", err)
	}
	return record, nil
}

// Get 获取本人的工资记录
func (s *Service) Get(ctx context.Context, userID, id string) (*models.SalaryRecord, error) {
	var record models.SalaryRecord
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update 更新工资记录
//
// 修改金额时按当前方案重新加密并清除 NeedsReencryption。修改备注时风控状态
// 重置为 pending 并进入新一轮审核，返回的 remoderate 为 true，调用方需重新提交审核。
func (s *Service) Update(ctx context.Context, userID, id string, upd models.SalaryRecordUpdate) (record *models.SalaryRecord, remoderate bool, err error) {
	record, err = s.Get(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}

	changes := map[string]interface{}{}
	if upd.Amount != nil {
		if upd.Amount.IsNegative() {
			return nil, false, ErrInvalidAmount
		}
		sealed, err := s.seal(*upd.Amount)
		if err != nil {
			return nil, false, err
		}
		changes["amount_encrypted"] = sealed.Ciphertext
		changes["encryption_salt"] = sealed.Salt
		changes["needs_reencryption"] = false
	}
	if upd.PaydayDate != nil {
		payday, err := parseDate(*upd.PaydayDate)
		if err != nil {
			return nil, false, err
		}
		changes["payday_date"] = payday
	}
	if upd.SalaryType != nil {
		if !upd.SalaryType.Valid() {
			return nil, false, ErrInvalidType
		}
		changes["salary_type"] = *upd.SalaryType
	}
	if upd.Mood != nil {
		if !upd.Mood.Valid() {
			return nil, false, ErrInvalidMood
		}
		changes["mood"] = *upd.Mood
	}
	if upd.Note != nil && *upd.Note != record.Note {
		for k, v := range models.ModerationReset() {
			changes[k] = v
		}
		changes["note"] = *upd.Note
		remoderate = true
	}
	if len(changes) == 0 {
		return record, false, nil
	}

	if err := s.db.WithContext(ctx).Model(record).Updates(changes).Error; err != nil {
		return nil, false, fmt.Errorf("update salary record: %w", err)
	}
	record, err = s.Get(ctx, userID, id)
	return record, remoderate, err
}

// Delete 删除本人的工资记录
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SalaryRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete salary record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// List 本人的工资记录，按发薪日倒序分页
func (s *Service) List(ctx context.Context, userID string, page, size int) ([]models.SalaryRecord, int64, error) {
	return s.AdminList(ctx, Filter{UserID: userID}, page, size)
}

// AdminList 管理端工资记录列表
func (s *Service) AdminList(ctx context.Context, f Filter, page, size int) ([]models.SalaryRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.SalaryRecord{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.NeedsReencryption != nil {
		query = query.Where("needs_reencryption = ?", *f.NeedsReencryption)
	}
	if f.RiskStatus != "" {
		query = query.Where("risk_status = ?", f.RiskStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count salary records: %w", err)
	}

	page, size = normalizePage(page, size)
	var records []models.SalaryRecord
	err := query.Order("payday_date DESC").Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list salary records: %w", err)
	}
	return records, total, nil
}

// ToResponse 解密金额并组装响应，单条记录解密失败只影响该条
func (s *Service) ToResponse(r *models.SalaryRecord) models.SalaryRecordResponse {
	resp := models.SalaryRecordResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		PaydayDate: r.PaydayDate.Format(dateLayout),
		SalaryType: r.SalaryType,
		Images:     r.Images,
		Note:       r.Note,
		Mood:       r.Mood,
		RiskStatus: r.RiskStatus,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}

	amount, err := s.vault.Open(r.AmountEncrypted, r.EncryptionSalt)
	if err != nil {
		scheme := vault.SchemeUnknown
		var decErr *vault.DecryptionError
		if errors.As(err, &decErr) {
			scheme = decErr.Scheme
		}
		s.metrics.decryptFailed(scheme)

		if vault.IsLegacy(err) {
			s.log.Warn("legacy salary record cannot be decrypted, needs re-encryption", zap.String("record_id", r.ID))
		} else {
			s.log.Error("salary amount decryption failed", zap.String("record_id", r.ID), zap.Stringer("scheme", scheme), zap.Error(err))
		}
		resp.AmountUnavailable = true
		resp.AmountDisplay = AmountPlaceholder
		return resp
	}

	resp.Amount = &amount
	resp.AmountDisplay = amount.StringFixed(2)
	return resp
}

// ToResponses 批量组装响应
func (s *Service) ToResponses(records []models.SalaryRecord) []models.SalaryRecordResponse {
	out := make([]models.SalaryRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, s.ToResponse(&records[i]))
	}
	return out
}

func (s *Service) seal(amount decimal.Decimal) (vault.Sealed, error) {
	sealed, err := s.vault.Seal(amount)
	if err != nil {
		s.log.Error("sealing salary amount failed", zap.Error(err))
		return vault.Sealed{}, fmt.Errorf("seal amount: %w", err)
	}
	return sealed, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
