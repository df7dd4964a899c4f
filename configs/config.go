package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	JWT        JWT        `mapstructure:"jwt"`
	Redis      Redis      `mapstructure:"redis"`
	Encryption Encryption `mapstructure:"encryption"`
	Moderation Moderation `mapstructure:"moderation"`
	Log        Log        `mapstructure:"log"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

type Server struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // gin 运行模式: debug | release | test
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Database struct {
	Driver   string `mapstructure:"driver"` // mysql | postgres | sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	// sqlite 使用的文件路径，其他驱动忽略
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type JWT struct {
	Secret    string `mapstructure:"secret"`
	ExpiresIn int    `mapstructure:"expires_in"` // 过期时间（小时）
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Encryption 工资金额加密配置
type Encryption struct {
	SecretKey string `mapstructure:"secret_key"`
}

// Moderation 风控异步任务配置
type Moderation struct {
	QueuePrefix string        `mapstructure:"queue_prefix"`
	Workers     int           `mapstructure:"workers"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	SweepCron   string        `mapstructure:"sweep_cron"`
	SweepGrace  time.Duration `mapstructure:"sweep_grace"`
	SweepBatch  int           `mapstructure:"sweep_batch"`
	LegacyCron  string        `mapstructure:"legacy_cron"`
	Image       Image         `mapstructure:"image"`
}

// Image 图片审核配置，provider 为空时图片不参与评分
type Image struct {
	Provider  string        `mapstructure:"provider"` // "" | tencent
	SecretID  string        `mapstructure:"secret_id"`
	SecretKey string        `mapstructure:"secret_key"`
	Region    string        `mapstructure:"region"`
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type Log struct {
	Environment string `mapstructure:"environment"`
	Level       string `mapstructure:"level"`
}

type Metrics struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// MinSecretKeyLength 加密主密钥的最小长度
const MinSecretKeyLength = 32

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expires_in", 72)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("encryption.secret_key", "")

	v.SetDefault("moderation.queue_prefix", "payday:moderation")
	v.SetDefault("moderation.workers", 4)
	v.SetDefault("moderation.task_timeout", 30*time.Second)
	v.SetDefault("moderation.poll_timeout", 5*time.Second)
	v.SetDefault("moderation.max_attempts", 5)
	v.SetDefault("moderation.sweep_cron", "*/10 * * * *")
	v.SetDefault("moderation.sweep_grace", 15*time.Minute)
	v.SetDefault("moderation.legacy_cron", "0 3 * * *")
	v.SetDefault("moderation.sweep_batch", 200)
	v.SetDefault("moderation.image.provider", "")
	v.SetDefault("moderation.image.region", "ap-guangzhou")
	v.SetDefault("moderation.image.timeout", 10*time.Second)
	v.SetDefault("moderation.image.cache_ttl", 24*time.Hour)

	v.SetDefault("log.environment", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "payday")
}

// Load 加载配置，path 为空时在 ./configs 和 . 下查找 config.yaml
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PAYDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// 没有配置文件时只依赖默认值和环境变量
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if len(c.Encryption.SecretKey) < MinSecretKeyLength {
		return fmt.Errorf("encryption.secret_key must be at least %d bytes", MinSecretKeyLength)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Moderation.Workers < 1 {
		return errors.New("moderation.workers must be positive")
	}
	if c.Moderation.MaxAttempts < 1 {
		return errors.New("moderation.max_attempts must be positive")
	}
	switch c.Moderation.Image.Provider {
	case "":
	case "tencent":
		if c.Moderation.Image.SecretID == "" || c.Moderation.Image.SecretKey == "" {
			return errors.New("moderation.image.secret_id and secret_key are required for tencent")
		}
	default:
		return fmt.Errorf("unsupported moderation.image.provider %q", c.Moderation.Image.Provider)
	}
	return nil
}
