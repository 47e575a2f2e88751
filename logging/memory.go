package logging

import (
	"context"
	"sync"
)

// Entry 一条被记录的日志
type Entry struct {
	Level   Level
	Message string
	Fields  []Field
}

// Field 按键查找字段值
func (e Entry) Field(key string) (any, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// MemoryLogger 在内存中记录日志条目，主要用于测试断言
type MemoryLogger struct {
	store  *memoryStore
	fields []Field
}

type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLogger 创建内存 Logger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{store: &memoryStore{}}
}

func (l *MemoryLogger) record(level Level, msg string, fields []Field) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (l *MemoryLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.record(DebugLevel, msg, fields)
}

func (l *MemoryLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.record(InfoLevel, msg, fields)
}

func (l *MemoryLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.record(WarnLevel, msg, fields)
}

func (l *MemoryLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.record(ErrorLevel, msg, fields)
}

// WithFields 派生的 Logger 共享同一份条目存储
func (l *MemoryLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &MemoryLogger{store: l.store, fields: merged}
}

// Entries 返回已记录条目的快照
func (l *MemoryLogger) Entries() []Entry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]Entry, len(l.store.entries))
	copy(out, l.store.entries)
	return out
}

// EntriesAt 返回指定级别的条目
func (l *MemoryLogger) EntriesAt(level Level) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Reset 清空记录
func (l *MemoryLogger) Reset() {
	l.store.mu.Lock()
	l.store.entries = nil
	l.store.mu.Unlock()
}
