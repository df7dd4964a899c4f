package words

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BinLe1988/payday-server/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWordNotFound  = errors.New("sensitive word not found")
	ErrDuplicateWord = errors.New("sensitive word already exists")
	ErrEmptyWord     = errors.New("sensitive word is empty")
)

// Registry 敏感词库，直接读库不做缓存，管理员的修改对下一次评估立即生效
type Registry struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRegistry 创建敏感词库
func NewRegistry(db *gorm.DB, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{db: db, log: log.With(zap.String("module", "words"))}
}

// Filter 列表筛选条件
type Filter struct {
	Category string
	IsActive *bool
}

// ActiveWords 所有启用的敏感词（扁平列表）
func (r *Registry) ActiveWords(ctx context.Context) ([]string, error) {
	var list []string
	err := r.db.WithContext(ctx).
		Model(&models.SensitiveWord{}).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Pluck("word", &list).Error
	if err != nil {
		return nil, fmt.Errorf("load active words: %w", err)
	}
	return list, nil
}

// ActiveByCategory 所有启用的敏感词，按分类组织
func (r *Registry) ActiveByCategory(ctx context.Context) (map[string][]string, error) {
	active := true
	list, err := r.List(ctx, Filter{IsActive: &active})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]string)
	for _, w := range list {
		grouped[w.Category] = append(grouped[w.Category], w.Word)
	}
	return grouped, nil
}

// List 获取敏感词列表，可按分类和状态筛选
func (r *Registry) List(ctx context.Context, f Filter) ([]models.SensitiveWord, error) {
	query := r.db.WithContext(ctx).Model(&models.SensitiveWord{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var list []models.SensitiveWord
	if err := query.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list sensitive words: %w", err)
	}
	return list, nil
}

// Get 根据 ID 获取敏感词
func (r *Registry) Get(ctx context.Context, id string) (*models.SensitiveWord, error) {
	var w models.SensitiveWord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create 创建敏感词
func (r *Registry) Create(ctx context.Context, word, category string) (*models.SensitiveWord, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	if err := r.ensureUnique(ctx, word, ""); err != nil {
		return nil, err
	}

	w := models.SensitiveWord{Word: word, Category: category, IsActive: true}
	if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, fmt.Errorf("create sensitive word: %w", err)
	}
	r.log.Info("sensitive word created", zap.String("id", w.ID), zap.String("category", category))
	return &w, nil
}

// Update 更新敏感词，nil 字段保持不变
func (r *Registry) Update(ctx context.Context, id string, upd models.SensitiveWordUpdate) (*models.SensitiveWord, error) {
	w, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if upd.Word != nil {
		word := strings.TrimSpace(*upd.Word)
		if word == "" {
			return nil, ErrEmptyWord
		}
		if err := r.ensureUnique(ctx, word, id); err != nil {
			return nil, err
		}
		changes["word"] = word
	}
	if upd.Category != nil {
		changes["category"] = *upd.Category
	}
	if upd.IsActive != nil {
		changes["is_active"] = *upd.IsActive
	}
	if len(changes) == 0 {
		return w, nil
	}

	if err := r.db.WithContext(ctx).Model(w).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update sensitive word: %w", err)
	}
	return r.Get(ctx, id)
}

// Delete 删除敏感词
func (r *Registry) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SensitiveWord{})
	if res.Error != nil {
		return fmt.Errorf("delete sensitive word: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWordNotFound
	}
	return nil
}

// Seed 词库导入条目
type Seed struct {
	Word     string `yaml:"word" json:"word"`
	Category string `yaml:"category" json:"category"`
}

// Seed 批量导入，已存在的词跳过，返回新增数量
func (r *Registry) Seed(ctx context.Context, seeds []Seed) (int, error) {
	var batch []models.SensitiveWord
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		word := strings.TrimSpace(s.Word)
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		category := s.Category
		if category == "" {
			category = models.WordCategoryOther
		}
		batch = append(batch, models.SensitiveWord{Word: word, Category: category, IsActive: true})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "word"}}, DoNothing: true}).
		CreateInBatches(&batch, 100)
	if res.Error != nil {
		return 0, fmt.Errorf("seed sensitive words: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *Registry) ensureUnique(ctx context.Context, word, exceptID string) error {
	query := r.db.WithContext(ctx).Model(&models.SensitiveWord{}).Where("word = ?", word)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateWord, word)
	}
	return nil
}
