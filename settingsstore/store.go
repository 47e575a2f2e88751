// Package settingsstore 基于 SQLite 的用户偏好存储
package settingsstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	user_id    TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, key)
)`

// Option 存储选项
type Option func(*Store)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store 偏好存储
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open 打开（必要时创建）存储
//
// 连接数固定为 1：SQLite 单写者，且 ":memory:" 库只在单连接内可见。
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, apperrors.NewError(apperrors.ErrCodeInvalidInput, "settings dsn is empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "open settings store")
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: logging.GetLogger().WithFields(logging.String("component", "settingsstore")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "ping settings store").WithContext("dsn", dsn)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "migrate settings store")
	}
	s.logger.Debug(ctx, "settings store opened", logging.String("dsn", dsn))
	return s, nil
}

// Get 读取单个偏好
func (s *Store) Get(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE user_id = ? AND key = ?`, userID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.WrapError(err, apperrors.ErrCodeInternal, "read setting").WithContext("key", key)
	}
	return value, true, nil
}

// Set 写入偏好，已存在则覆盖
func (s *Store) Set(ctx context.Context, userID, key, value string) error {
	if key == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "setting key is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, s.now().UnixMilli())
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "write setting").WithContext("key", key)
	}
	return nil
}

// Delete 删除偏好，不存在时不报错
func (s *Store) Delete(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = ? AND key = ?`, userID, key); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "delete setting").WithContext("key", key)
	}
	return nil
}

// All 读取用户的全部偏好
func (s *Store) All(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE user_id = ? ORDER BY key`, userID)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "list settings")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "scan setting")
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "list settings")
	}
	return out, nil
}

// UpdatedAt 返回偏好的最后写入时间
func (s *Store) UpdatedAt(ctx context.Context, userID, key string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM settings WHERE user_id = ? AND key = ?`, userID, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, apperrors.WrapError(err, apperrors.ErrCodeInternal, "read setting")
	}
	return time.UnixMilli(ms), true, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	return s.db.Close()
}
