package redisrelay

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/logging"
	"projectvoice/relay"
)

type fakeClient struct {
	pingErr error
	addErr  error
	adds    []*redis.XAddArgs
	closed  bool
}

func (f *fakeClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.addErr != nil {
		cmd.SetErr(f.addErr)
		return cmd
	}
	f.adds = append(f.adds, a)
	cmd.SetVal("1-0")
	return cmd
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.pingErr != nil {
		cmd.SetErr(f.pingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newTestSink(fc *fakeClient, cfg Config) *Sink {
	cfg.Logger = logging.NewNoopLogger()
	s := New(cfg)
	s.client = fc
	return s
}

func TestSink_SendAddsToStream(t *testing.T) {
	fc := &fakeClient{}
	s := newTestSink(fc, Config{})
	require.NoError(t, s.Open(context.Background()))

	rec := relay.Record{ID: "e1", Name: "voice:participant-joined", Data: []byte(`{"id":"e1"}`)}
	require.NoError(t, s.Send(context.Background(), rec))

	require.Len(t, fc.adds, 1)
	args := fc.adds[0]
	assert.Equal(t, "projectvoice:events:voice:participant-joined", args.Stream)
	assert.Equal(t, int64(10000), args.MaxLen)
	assert.True(t, args.Approx)
	assert.Equal(t, map[string]any{"id": "e1", "name": "voice:participant-joined", "envelope": `{"id":"e1"}`}, args.Values)
}

func TestSink_NoTrimWhenMaxLenNegative(t *testing.T) {
	fc := &fakeClient{}
	s := newTestSink(fc, Config{StreamPrefix: "pv:", MaxLen: -1})
	require.NoError(t, s.Send(context.Background(), relay.Record{Name: "x"}))
	assert.Zero(t, fc.adds[0].MaxLen)
	assert.False(t, fc.adds[0].Approx)
	assert.Equal(t, "pv:x", fc.adds[0].Stream)
}

func TestSink_OpenPingFailure(t *testing.T) {
	fc := &fakeClient{pingErr: errors.New("connection refused")}
	s := newTestSink(fc, Config{})
	err := s.Open(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, fc.closed)
	assert.Error(t, s.Send(context.Background(), relay.Record{Name: "x"}))
}

func TestSink_SendError(t *testing.T) {
	fc := &fakeClient{addErr: errors.New("OOM")}
	s := newTestSink(fc, Config{})
	assert.ErrorContains(t, s.Send(context.Background(), relay.Record{Name: "x"}), "OOM")
}

func TestSink_CloseOwnedClient(t *testing.T) {
	fc := &fakeClient{}
	s := newTestSink(fc, Config{})
	s.ownClient = true
	require.NoError(t, s.Close())
	assert.True(t, fc.closed)
	require.NoError(t, s.Close())
}
