// Package natsrelay 基于 NATS JetStream 的事件镜像通道
package natsrelay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
	"projectvoice/relay"
)

// jetStream 依赖的 JetStream 能力子集，nats.JetStreamContext 满足该接口
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// Config JetStream 通道配置
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	Conn          *nats.Conn
	Logger        logging.Logger

	// 流参数，仅在流不存在时用于创建
	MaxAge   time.Duration // 0 表示不限
	MaxBytes int64         // 0 表示不限
	Replicas int           // 0 表示默认
}

// Sink JetStream 通道
type Sink struct {
	cfg    Config
	logger logging.Logger

	mu       sync.RWMutex
	conn     *nats.Conn
	js       jetStream
	ownsConn bool
}

// New 创建 JetStream 通道，连接在 Open 时建立
func New(cfg Config) *Sink {
	if cfg.Stream == "" {
		cfg.Stream = "PROJECTVOICE"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "projectvoice.events."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "relay.nats"))
	}
	return &Sink{cfg: cfg, logger: cfg.Logger}
}

func (s *Sink) Name() string { return "nats" }

// Open 建立连接并确保流存在
func (s *Sink) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnection(); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "connect nats").WithContext("url", s.cfg.URL)
	}
	if err := s.ensureStream(); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "ensure jetstream stream").
			WithContext("stream", s.cfg.Stream)
	}
	s.logger.Info(ctx, "jetstream sink ready",
		logging.String("stream", s.cfg.Stream),
		logging.String("subjects", s.cfg.SubjectPrefix+">"))
	return nil
}

// Send 发布到 <前缀><事件名>，事件 ID 作为 JetStream 去重 ID
func (s *Sink) Send(ctx context.Context, rec relay.Record) error {
	s.mu.RLock()
	js := s.js
	s.mu.RUnlock()
	if js == nil {
		return apperrors.NewError(apperrors.ErrCodeInternal, "nats sink not open")
	}
	opts := []nats.PubOpt{nats.Context(ctx)}
	if rec.ID != "" {
		opts = append(opts, nats.MsgId(rec.ID))
	}
	_, err := js.Publish(s.Subject(rec.Name), rec.Data, opts...)
	return err
}

// Close 关闭自有连接；注入的连接由调用方管理
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsConn && s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.js = nil
	s.ownsConn = false
	return nil
}

// Subject 返回事件对应的主题
func (s *Sink) Subject(eventName string) string {
	return s.cfg.SubjectPrefix + eventName
}

func (s *Sink) ensureConnection() error {
	if s.js != nil {
		return nil
	}
	if s.cfg.Conn != nil {
		s.conn = s.cfg.Conn
	} else {
		url := s.cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("projectvoice-relay"))
		if err != nil {
			return err
		}
		s.conn = conn
		s.ownsConn = true
	}
	js, err := s.conn.JetStream()
	if err != nil {
		if s.ownsConn {
			s.conn.Close()
			s.conn = nil
			s.ownsConn = false
		}
		return err
	}
	s.js = js
	return nil
}

func (s *Sink) ensureStream() error {
	_, err := s.js.StreamInfo(s.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	sc := &nats.StreamConfig{
		Name:      s.cfg.Stream,
		Subjects:  []string{s.cfg.SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
	}
	if s.cfg.MaxAge > 0 {
		sc.MaxAge = s.cfg.MaxAge
	}
	if s.cfg.MaxBytes > 0 {
		sc.MaxBytes = s.cfg.MaxBytes
	}
	if s.cfg.Replicas > 0 {
		sc.Replicas = s.cfg.Replicas
	}
	_, err = s.js.AddStream(sc)
	return err
}
