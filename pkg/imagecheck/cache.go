package imagecheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/BinLe1988/payday-server/pkg/risk"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache 图片审核结果缓存，同一 URL 在 TTL 内不重复调用审核接口
type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewCache 创建 Redis 结果缓存
func NewCache(client redis.Cmdable, prefix string, ttl time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *Cache) key(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// Get 读取缓存，未命中或出错都视为未命中
func (c *Cache) Get(ctx context.Context, imageURL string) (risk.Check, bool) {
	if c == nil {
		return risk.Check{}, false
	}
	raw, err := c.client.Get(ctx, c.key(imageURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("image cache read failed", zap.Error(err))
		}
		return risk.Check{}, false
	}
	var check risk.Check
	if err := json.Unmarshal(raw, &check); err != nil {
		return risk.Check{}, false
	}
	return check, true
}

// Set 写入缓存，失败只记录日志
func (c *Cache) Set(ctx context.Context, imageURL string, check risk.Check) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(check)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(imageURL), raw, c.ttl).Err(); err != nil {
		c.log.Warn("image cache write failed", zap.Error(err))
	}
}
