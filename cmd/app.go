package main

import (
	"context"
	"fmt"

	"github.com/BinLe1988/payday-server/configs"
	"github.com/BinLe1988/payday-server/database"
	"github.com/BinLe1988/payday-server/pkg/imagecheck"
	"github.com/BinLe1988/payday-server/pkg/logger"
	"github.com/BinLe1988/payday-server/pkg/moderation"
	"github.com/BinLe1988/payday-server/pkg/risk"
	"github.com/BinLe1988/payday-server/pkg/salary"
	"github.com/BinLe1988/payday-server/pkg/utils"
	"github.com/BinLe1988/payday-server/pkg/vault"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app 进程内共享的依赖
type app struct {
	cfg   *configs.Config
	log   *zap.Logger
	db    *gorm.DB
	redis *redis.Client

	metricsReg *prometheus.Registry
	modMetrics *moderation.Metrics

	words  *words.Registry
	engine *risk.Engine
	runner *moderation.Runner
	queue  *moderation.RedisQueue
	salary *salary.Service
}

// newApp 加载配置并初始化数据库、Redis 和各服务
func newApp(ctx context.Context, service string, withRedis bool) (*app, error) {
	cfg, err := configs.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		Level:       cfg.Log.Level,
		Service:     service,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	utils.InitJWT(cfg.JWT)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db, log)
		return nil, err
	}

	v, err := vault.New(cfg.Encryption.SecretKey)
	if err != nil {
		database.Close(db, log)
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		metricsReg: prometheus.NewRegistry(),
	}
	a.metricsReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := cfg.Metrics.Namespace
	a.modMetrics = moderation.NewMetrics(a.metricsReg, ns)
	if withRedis {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		a.queue = moderation.NewRedisQueue(a.redis, cfg.Moderation.QueuePrefix, cfg.Moderation.MaxAttempts)
	}

	var opts []risk.Option
	if checker, err := a.imageChecker(); err != nil {
		a.close()
		return nil, err
	} else if checker != nil {
		opts = append(opts, risk.WithImageChecker(checker))
	}

	a.words = words.NewRegistry(db, log)
	a.engine = risk.NewEngine(a.words, log, opts...)
	a.runner = moderation.NewRunner(db, a.engine, log, a.modMetrics)
	a.salary = salary.NewService(db, v, log, salary.NewMetrics(a.metricsReg, ns))

	return a, nil
}

// imageChecker 按配置创建图片审核，未配置时返回 nil
func (a *app) imageChecker() (risk.ImageChecker, error) {
	ic := a.cfg.Moderation.Image
	if ic.Provider == "" {
		return nil, nil
	}

	var cache *imagecheck.Cache
	if a.redis != nil {
		cache = imagecheck.NewCache(a.redis, a.cfg.Moderation.QueuePrefix+":image", ic.CacheTTL, a.log)
	}
	checker, err := imagecheck.NewTencentChecker(imagecheck.Config{
		SecretID:  ic.SecretID,
		SecretKey: ic.SecretKey,
		Region:    ic.Region,
		Endpoint:  ic.Endpoint,
		Timeout:   ic.Timeout,
	}, cache, a.log)
	if err != nil {
		return nil, fmt.Errorf("init image checker: %w", err)
	}
	a.log.Info("image moderation enabled", zap.String("provider", ic.Provider))
	return checker, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis failed", zap.Error(err))
		}
	}
	database.Close(a.db, a.log)
	_ = a.log.Sync()
}
