package bootstrap

import (
	"os"

	"projectvoice/appinfo"
	"projectvoice/config"
	"projectvoice/logging"
	"projectvoice/registry"
	"projectvoice/relay"
	"projectvoice/relay/natsrelay"
	"projectvoice/relay/redisrelay"
)

// FromConfig 把环境配置转换为应用选项
//
// 配置了 NATS_URL / REDIS_ADDR 时分别登记对应的事件镜像插件。
func FromConfig(cfg config.Config) []Option {
	logger := logging.NewWriterLogger(os.Stderr, "[projectvoice]", cfg.Level())

	retryCfg := DefaultOptions().MetadataRetry
	retryCfg.MaxAttempts = cfg.MetadataAttempts

	opts := []Option{
		WithLogger(logger),
		WithSettingsDSN(cfg.SettingsDSN),
		WithLifecycleTimeout(cfg.LifecycleTimeout),
		WithLifecycleTracing(cfg.Level() == logging.DebugLevel),
		WithMetadataRetry(retryCfg),
	}
	if cfg.MetadataURL != "" {
		opts = append(opts, WithMetadataSource(
			appinfo.NewHTTPSource(cfg.MetadataURL, appinfo.WithRequestTimeout(cfg.MetadataTimeout)),
		))
	}

	relayEvents := cfg.RelayEvents
	if cfg.NATSURL != "" {
		opts = append(opts, WithPlugins(func(env Env) registry.IDescriptor {
			sink := natsrelay.New(natsrelay.Config{
				URL:    cfg.NATSURL,
				Stream: cfg.NATSStream,
				Logger: env.Logger.WithFields(logging.String("component", "relay.nats")),
			})
			return relay.New(env.Bus, sink, relay.WithEvents(relayEvents...), relay.WithLogger(env.Logger))
		}))
	}
	if cfg.RedisAddr != "" {
		opts = append(opts, WithPlugins(func(env Env) registry.IDescriptor {
			sink := redisrelay.New(redisrelay.Config{
				Addr:   cfg.RedisAddr,
				Logger: env.Logger.WithFields(logging.String("component", "relay.redis")),
			})
			return relay.New(env.Bus, sink, relay.WithEvents(relayEvents...), relay.WithLogger(env.Logger))
		}))
	}
	return opts
}
