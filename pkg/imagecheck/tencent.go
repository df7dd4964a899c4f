// Package imagecheck 图片审核，接入腾讯云图片内容安全（IMS）
package imagecheck

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BinLe1988/payday-server/pkg/risk"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://ims.tencentcloudapi.com"
	defaultRegion   = "ap-guangzhou"
	apiVersion      = "2020-12-29"
	action          = "ImageModeration"
	service         = "ims"
)

// 审核建议对应的分值与原因
const (
	BlockScore   = 90
	BlockReason  = "图片包含违规内容"
	ReviewScore  = 50
	ReviewReason = "图片需要人工审核"
)

// labelNames IMS 标签对应的中文原因
var labelNames = map[string]string{
	"Porn":     "色情",
	"Violence": "暴力",
	"Ad":       "广告",
}

// Config 腾讯云图片审核配置
type Config struct {
	SecretID  string
	SecretKey string
	Region    string
	// Endpoint 默认为 ims.tencentcloudapi.com，测试时可替换
	Endpoint string
	Timeout  time.Duration
}

// TencentChecker 实现 risk.ImageChecker
type TencentChecker struct {
	cfg    Config
	host   string
	client *http.Client
	cache  *Cache
	log    *zap.Logger
	now    func() time.Time
}

// NewTencentChecker 创建腾讯云图片审核，cache 可为 nil
func NewTencentChecker(cfg Config, cache *Cache, log *zap.Logger) (*TencentChecker, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errors.New("tencent secret id and secret key are required")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid tencent endpoint %q", cfg.Endpoint)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &TencentChecker{
		cfg:    cfg,
		host:   u.Host,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		log:    log.With(zap.String("module", "imagecheck")),
		now:    time.Now,
	}, nil
}

// CheckImages 逐张审核，返回最高分的一项
//
// 单张图片审核失败按需要人工审核计分，不影响其他图片，也不写入缓存。
// 只有 ctx 取消时返回错误。
func (p *TencentChecker) CheckImages(ctx context.Context, urls []string) (risk.Check, error) {
	var worst risk.Check
	for _, u := range urls {
		c, err := p.checkOne(ctx, u)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return risk.Check{}, ctxErr
			}
			p.log.Warn("image moderation failed, sending to manual review", zap.String("url", u), zap.Error(err))
			c = risk.Check{Score: ReviewScore, Reason: ReviewReason}
		}
		if c.Score > worst.Score {
			worst = c
		}
	}
	return worst, nil
}

func (p *TencentChecker) checkOne(ctx context.Context, imageURL string) (risk.Check, error) {
	if c, ok := p.cache.Get(ctx, imageURL); ok {
		return c, nil
	}

	suggestion, label, err := p.moderate(ctx, imageURL)
	if err != nil {
		return risk.Check{}, err
	}

	var c risk.Check
	switch suggestion {
	case "Block":
		c = risk.Check{Score: BlockScore, Reason: blockReason(label)}
	case "Review":
		c = risk.Check{Score: ReviewScore, Reason: ReviewReason}
	}
	if c.Score > 0 {
		p.log.Info("image flagged", zap.String("suggestion", suggestion), zap.String("label", label))
	}

	p.cache.Set(ctx, imageURL, c)
	return c, nil
}

func blockReason(label string) string {
	if name, ok := labelNames[label]; ok {
		return BlockReason + ": " + name
	}
	if label != "" && label != "Normal" {
		return BlockReason + ": " + label
	}
	return BlockReason
}

type imsResponse struct {
	Response struct {
		Suggestion string `json:"Suggestion"`
		Label      string `json:"Label"`
		Score      int    `json:"Score"`
		Error      *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}

func (p *TencentChecker) moderate(ctx context.Context, imageURL string) (suggestion, label string, err error) {
	payload, err := json.Marshal(struct {
		FileURL string `json:"FileUrl"`
	}{FileURL: imageURL})
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	timestamp := p.now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.authorization(payload, timestamp))
	req.Header.Set("X-TC-Action", action)
	req.Header.Set("X-TC-Version", apiVersion)
	req.Header.Set("X-TC-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-TC-Region", p.cfg.Region)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("ims request failed with status: %d", resp.StatusCode)
	}

	var result imsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if e := result.Response.Error; e != nil {
		return "", "", fmt.Errorf("ims error %s: %s", e.Code, e.Message)
	}
	return result.Response.Suggestion, result.Response.Label, nil
}

// authorization 计算 TC3-HMAC-SHA256 签名
func (p *TencentChecker) authorization(payload []byte, timestamp int64) string {
	date := time.Unix(timestamp, 0).UTC().Format("2006-01-02")

	// 1. 拼接规范请求串
	signedHeaders := "content-type;host"
	canonicalRequest := fmt.Sprintf("POST\n/\n\ncontent-type:application/json\nhost:%s\n\n%s\n%s",
		p.host, signedHeaders, sha256Hex(payload))

	// 2. 拼接待签名字符串
	algorithm := "TC3-HMAC-SHA256"
	credentialScope := fmt.Sprintf("%s/%s/tc3_request", date, service)
	stringToSign := fmt.Sprintf("%s\n%d\n%s\n%s",
		algorithm, timestamp, credentialScope, sha256Hex([]byte(canonicalRequest)))

	// 3. 计算签名
	secretDate := hmacSHA256([]byte("TC3"+p.cfg.SecretKey), date)
	secretService := hmacSHA256(secretDate, service)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	// 4. 拼接 Authorization
	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, p.cfg.SecretID, credentialScope, signedHeaders, signature)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
