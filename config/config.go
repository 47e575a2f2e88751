// Package config 从环境变量加载客户端配置
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"projectvoice/events"
	"projectvoice/logging"
)

// Prefix 所有环境变量的公共前缀
const Prefix = "PROJECTVOICE_"

// Config 客户端配置
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// MetadataURL 为空时跳过远端元数据步骤
	MetadataURL      string        `env:"METADATA_URL"`
	MetadataTimeout  time.Duration `env:"METADATA_TIMEOUT" envDefault:"5s"`
	MetadataAttempts int           `env:"METADATA_ATTEMPTS" envDefault:"3"`

	// LifecycleTimeout 单个模块/插件初始化与销毁的时限，0 表示不限
	LifecycleTimeout time.Duration `env:"LIFECYCLE_TIMEOUT" envDefault:"0s"`

	// SettingsDSN 为空时使用用户配置目录下的 projectvoice/settings.db
	SettingsDSN string `env:"SETTINGS_DSN"`

	NATSURL    string `env:"NATS_URL"`
	NATSStream string `env:"NATS_STREAM" envDefault:"PROJECTVOICE"`
	RedisAddr  string `env:"REDIS_ADDR"`

	// RelayEvents 镜像到外部通道的事件名，为空时使用 events.MessageRelayDefaults
	RelayEvents []string `env:"RELAY_EVENTS" envSeparator:","`
}

// Load 从进程环境加载配置
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom 从给定的变量表加载配置，键需带 PROJECTVOICE_ 前缀，不读取进程环境
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.RelayEvents) == 0 {
		cfg.RelayEvents = append([]string(nil), events.MessageRelayDefaults...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验取值范围
func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid %sLOG_LEVEL %q", Prefix, c.LogLevel)
	}
	if c.MetadataAttempts < 1 {
		return fmt.Errorf("%sMETADATA_ATTEMPTS must be at least 1, got %d", Prefix, c.MetadataAttempts)
	}
	if c.MetadataTimeout < 0 || c.LifecycleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Level 返回解析后的日志级别
func (c Config) Level() logging.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
