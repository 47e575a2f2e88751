// Package appinfo 获取远端应用元数据并应用主题
package appinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/logging"
	"projectvoice/retry"
)

// maxBodyBytes 元数据响应体上限
const maxBodyBytes = 1 << 20

// Metadata 远端应用元数据
type Metadata struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Theme   map[string]string `json:"theme"`
}

// IMetadataSource 元数据来源
type IMetadataSource interface {
	Fetch(ctx context.Context) (*Metadata, error)
}

// IThemeApplier 把元数据中的主题应用到界面
type IThemeApplier interface {
	Apply(ctx context.Context, meta *Metadata) error
}

// HTTPOption HTTPSource 选项
type HTTPOption func(*HTTPSource)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRequestTimeout 设置单次请求超时
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.timeout = d
	}
}

// HTTPSource 通过 HTTP GET 获取 JSON 元数据
type HTTPSource struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSource 创建 HTTP 元数据来源
func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{url: url, client: http.DefaultClient, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch 实现 IMetadataSource
//
// 4xx 响应被标记为 retry.Permanent，不再重试。
func (s *HTTPSource) Fetch(ctx context.Context) (*Metadata, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.Permanent(apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "invalid metadata url"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "metadata request failed").
			WithContext("url", s.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := apperrors.NewError(apperrors.ErrCodeInternal,
			fmt.Sprintf("metadata request returned %d", resp.StatusCode)).
			WithContext("url", s.url).
			WithContext("status", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var meta Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&meta); err != nil {
		return nil, retry.Permanent(apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "malformed metadata"))
	}
	return &meta, nil
}

// StaticSource 固定返回给定元数据，用于离线运行
type StaticSource struct {
	Meta *Metadata
}

func (s StaticSource) Fetch(ctx context.Context) (*Metadata, error) {
	if s.Meta == nil {
		return nil, apperrors.NewError(apperrors.ErrCodeInvalidInput, "no static metadata")
	}
	return s.Meta, nil
}

// BusApplier 以 app:theme-applied 事件发布主题，由界面层监听后应用
type BusApplier struct {
	bus eventbus.IEventBus
}

// NewBusApplier 创建总线主题应用器
func NewBusApplier(bus eventbus.IEventBus) *BusApplier {
	return &BusApplier{bus: bus}
}

func (a *BusApplier) Apply(ctx context.Context, meta *Metadata) error {
	if meta == nil {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "nil metadata")
	}
	vars := make(map[string]string, len(meta.Theme))
	for k, v := range meta.Theme {
		vars[k] = v
	}
	eventbus.Publish(ctx, a.bus, events.AppThemeApplied, events.ThemeApplied{
		Name:      meta.Name,
		Version:   meta.Version,
		Variables: vars,
	})
	return nil
}

// Load 带重试地获取元数据并应用
func Load(ctx context.Context, src IMetadataSource, applier IThemeApplier, cfg retry.Config, logger logging.Logger) (*Metadata, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Debug(ctx, "metadata fetch failed, retrying",
				logging.Int("attempt", attempt), logging.Duration("delay", delay), logging.Error(err))
		}
	}

	var meta *Metadata
	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		m, err := src.Fetch(ctx)
		if err != nil {
			return err
		}
		meta = m
		return nil
	}, cfg)
	if err != nil {
		return nil, err
	}
	if err := applier.Apply(ctx, meta); err != nil {
		return meta, err
	}
	return meta, nil
}
