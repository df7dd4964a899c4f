package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrRegistryUnavailable 敏感词库读取失败
var ErrRegistryUnavailable = errors.New("risk: sensitive word registry unavailable")

// WordSource 提供当前启用的敏感词
type WordSource interface {
	ActiveWords(ctx context.Context) ([]string, error)
}

// ImageChecker 图片审核，接入外部图片风控服务
type ImageChecker interface {
	CheckImages(ctx context.Context, urls []string) (Check, error)
}

// NoopImageChecker 基线策略下图片不参与评分
type NoopImageChecker struct{}

func (NoopImageChecker) CheckImages(context.Context, []string) (Check, error) {
	return Check{}, nil
}

// Engine 风控评分引擎
type Engine struct {
	words    WordSource
	contacts *ContactMatcher
	images   ImageChecker
	log      *zap.Logger
}

// Option 引擎可选配置
type Option func(*Engine)

// WithImageChecker 替换图片审核实现
func WithImageChecker(c ImageChecker) Option {
	return func(e *Engine) {
		if c != nil {
			e.images = c
		}
	}
}

// WithContactMatcher 替换联系方式规则
func WithContactMatcher(m *ContactMatcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.contacts = m
		}
	}
}

// NewEngine 创建风控引擎，words 为 nil 时等同于空词库
func NewEngine(words WordSource, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		words:    words,
		contacts: NewContactMatcher(),
		images:   NoopImageChecker{},
		log:      log.With(zap.String("module", "risk")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 综合文本和图片评分
//
// 依次执行敏感词、联系方式、图片三项检查，取最高分。只有严格高于当前最高分的
// 检查才会追加原因，同分的后续检查不追加。内容本身不会导致错误，只有敏感词库
// 不可用时返回 ErrRegistryUnavailable。
func (e *Engine) Evaluate(ctx context.Context, content string, images []string) (Result, error) {
	sensitive, err := e.checkSensitiveWords(ctx, content)
	if err != nil {
		return Result{}, err
	}

	checks := []Check{
		sensitive,
		e.contacts.Check(content),
		e.checkImages(ctx, images),
	}

	maxScore := 0
	var reasons []string
	for _, c := range checks {
		if c.Score <= maxScore {
			continue
		}
		maxScore = c.Score
		if c.Reason != "" && !contains(reasons, c.Reason) {
			reasons = append(reasons, c.Reason)
		}
	}

	return Result{
		Score:  maxScore,
		Action: ActionFor(maxScore),
		Reason: strings.Join(reasons, "; "),
	}, nil
}

// checkSensitiveWords 检查敏感词，大小写不敏感，命中第一个即返回
func (e *Engine) checkSensitiveWords(ctx context.Context, content string) (Check, error) {
	text := strings.TrimSpace(content)
	if text == "" || e.words == nil {
		return Check{}, nil
	}

	words, err := e.words.ActiveWords(ctx)
	if err != nil {
		return Check{}, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	text = strings.ToLower(text)
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if strings.Contains(text, word) {
			e.log.Debug("sensitive word matched", zap.String("word", word))
			return Check{Score: SensitiveWordScore, Reason: SensitiveWordReason}, nil
		}
	}
	return Check{}, nil
}

// checkImages 单张图片审核失败不影响整体，记为 0 分
func (e *Engine) checkImages(ctx context.Context, images []string) Check {
	if len(images) == 0 {
		return Check{}
	}
	c, err := e.images.CheckImages(ctx, images)
	if err != nil {
		e.log.Warn("image check failed, scoring as zero", zap.Int("images", len(images)), zap.Error(err))
		return Check{}
	}
	return c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
