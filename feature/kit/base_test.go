package kit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/eventbus"
	"projectvoice/logging"
	"projectvoice/registry"
)

type ping struct{ N int }

func TestBase_MetadataAndRelease(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(logging.NewNoopLogger()))
	b := NewBase(registry.Metadata{
		ID:           "channels",
		Version:      "1.0.0",
		Dependencies: []string{"servers"},
		Routes:       []registry.Route{{Path: "/channels/:id", View: "ChannelView"}},
	}, bus, logging.NewNoopLogger())

	assert.Equal(t, "channels", b.ID())
	assert.Equal(t, "channels", b.Name())
	assert.Equal(t, "1.0.0", b.Version())
	assert.Equal(t, []string{"servers"}, b.Dependencies())
	require.Len(t, b.Routes(), 1)

	var got []int
	Handle(b, "ping", func(ctx context.Context, p ping) error {
		got = append(got, p.N)
		return nil
	})
	b.Listen("raw", func(ctx context.Context, evt *eventbus.Event) error {
		got = append(got, -1)
		return nil
	})
	assert.Equal(t, 2, b.Subscriptions())

	b.Emit(context.Background(), "ping", ping{N: 1})
	b.Emit(context.Background(), "raw", nil)
	assert.Equal(t, []int{1, -1}, got)

	assert.Equal(t, 2, b.Release())
	assert.Zero(t, bus.ListenerCount("ping"))
	assert.Zero(t, bus.ListenerCount("raw"))
	assert.Zero(t, b.Release())

	b.Emit(context.Background(), "ping", ping{N: 2})
	assert.Equal(t, []int{1, -1}, got)
}

func TestBase_EmbeddedAccessors(t *testing.T) {
	type feature struct {
		*Base
	}
	f := feature{Base: NewBase(registry.Metadata{ID: "x", Name: "X"}, eventbus.New(), nil)}
	assert.Equal(t, "X", f.Name())
	f.Track(nil)
	assert.Zero(t, f.Subscriptions())
}
