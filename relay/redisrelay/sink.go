// Package redisrelay 基于 Redis Streams 的事件镜像通道
package redisrelay

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
	"projectvoice/relay"
)

// client 依赖的 go-redis 命令子集，便于测试替换
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Config Redis Streams 通道配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// MaxLen 每个流的近似长度上限，<= 0 不裁剪
	MaxLen int64
	Logger logging.Logger
}

// Sink Redis Streams 通道
type Sink struct {
	cfg    Config
	logger logging.Logger

	mu        sync.RWMutex
	client    client
	ownClient bool
}

// New 创建 Redis Streams 通道
func New(cfg Config) *Sink {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "projectvoice:events:"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 10000
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "relay.redis"))
	}
	return &Sink{cfg: cfg, logger: cfg.Logger}
}

func (s *Sink) Name() string { return "redis" }

// Open 建立客户端并确认可达
func (s *Sink) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.client == nil && s.cfg.Client != nil {
		s.client = s.cfg.Client
	}
	if s.client == nil {
		addr := s.cfg.Addr
		if addr == "" {
			addr = "127.0.0.1:6379"
		}
		s.client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
			DB:       s.cfg.DB,
		})
		s.ownClient = true
	}
	cl := s.client
	s.mu.Unlock()

	if err := cl.Ping(ctx).Err(); err != nil {
		_ = s.Close()
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "ping redis").WithContext("addr", s.cfg.Addr)
	}
	s.logger.Info(ctx, "redis stream sink ready", logging.String("prefix", s.cfg.StreamPrefix))
	return nil
}

// Send XADD 到 <前缀><事件名>
func (s *Sink) Send(ctx context.Context, rec relay.Record) error {
	s.mu.RLock()
	cl := s.client
	s.mu.RUnlock()
	if cl == nil {
		return apperrors.NewError(apperrors.ErrCodeInternal, "redis sink not open")
	}
	args := &redis.XAddArgs{
		Stream: s.Stream(rec.Name),
		Values: map[string]any{
			"id":       rec.ID,
			"name":     rec.Name,
			"envelope": string(rec.Data),
		},
	}
	if s.cfg.MaxLen > 0 {
		args.MaxLen = s.cfg.MaxLen
		args.Approx = true
	}
	return cl.XAdd(ctx, args).Err()
}

// Close 关闭自有客户端；注入的客户端由调用方管理
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl, own := s.client, s.ownClient
	s.client = nil
	s.ownClient = false
	if own && cl != nil {
		return cl.Close()
	}
	return nil
}

// Stream 返回事件对应的流名
func (s *Sink) Stream(eventName string) string {
	return s.cfg.StreamPrefix + eventName
}
