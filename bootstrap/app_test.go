package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/appinfo"
	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/logging"
	"projectvoice/registry"
	"projectvoice/retry"
)

type steps struct {
	mu  sync.Mutex
	seq []string
}

func (s *steps) add(v string) {
	s.mu.Lock()
	s.seq = append(s.seq, v)
	s.mu.Unlock()
}

func (s *steps) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seq...)
}

func tracked(s *steps, id string, initErr error, deps ...string) Factory {
	return func(Env) registry.IDescriptor {
		return registry.Define(registry.Metadata{ID: id, Dependencies: deps},
			func(context.Context) error { s.add("init:" + id); return initErr },
			func(context.Context) error { s.add("destroy:" + id); return nil },
		)
	}
}

type recordingSource struct {
	s    *steps
	meta *appinfo.Metadata
	err  error
}

func (r *recordingSource) Fetch(context.Context) (*appinfo.Metadata, error) {
	r.s.add("metadata")
	return r.meta, r.err
}

func quickRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1, MaxDelay: time.Millisecond}
}

func newTestApp(logger logging.Logger, opts ...Option) *App {
	base := []Option{
		WithLogger(logger),
		WithRuntime(&Runtime{}),
		WithMetadataRetry(quickRetry()),
	}
	return New(append(base, opts...)...)
}

func TestApp_InitializeOrder(t *testing.T) {
	s := &steps{}
	src := &recordingSource{s: s, meta: &appinfo.Metadata{Name: "Project Voice", Theme: map[string]string{"accent": "#5865f2"}}}
	app := newTestApp(logging.NewNoopLogger(),
		WithModules(
			tracked(s, "channels", nil, "servers"),
			tracked(s, "auth", nil),
			tracked(s, "servers", nil, "auth"),
		),
		WithPlugins(tracked(s, "relay.test", nil)),
		WithMetadataSource(src),
	)
	app.Bus().On(events.AppReady, eventbus.ListenerFunc(func(context.Context, *eventbus.Event) error {
		s.add("ready")
		return nil
	}))

	assert.Equal(t, StatePending, app.State())
	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, []string{"init:auth", "init:servers", "init:channels", "init:relay.test", "metadata", "ready"}, s.get())
	assert.Equal(t, StateRunning, app.State())

	meta, ok := app.Metadata()
	require.True(t, ok)
	assert.Equal(t, "Project Voice", meta.Name)
}

func TestApp_ReadyPayload(t *testing.T) {
	s := &steps{}
	app := newTestApp(logging.NewNoopLogger(),
		WithModules(tracked(s, "auth", nil), tracked(s, "servers", nil, "auth")),
		WithPlugins(
			tracked(s, "relay.ok", nil),
			tracked(s, "relay.broken", errors.New("connection refused")),
		),
	)

	var got events.Ready
	eventbus.Subscribe(app.Bus(), events.AppReady, func(_ context.Context, r events.Ready) error {
		got = r
		return nil
	})
	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, []string{"auth", "servers"}, got.Modules)
	assert.Equal(t, []string{"relay.ok"}, got.Plugins)
	assert.Equal(t, []string{"relay.broken"}, got.FailedPlugins)
}

func TestApp_PluginFailureIsNotFatal(t *testing.T) {
	s := &steps{}
	logger := logging.NewMemoryLogger()
	app := newTestApp(logger,
		WithModules(tracked(s, "auth", nil)),
		WithPlugins(
			tracked(s, "relay.broken", errors.New("dial failed")),
			tracked(s, "relay.dependent", nil, "auth"),
		),
	)

	require.NoError(t, app.Initialize(context.Background()))
	assert.Equal(t, StateRunning, app.State())
	state, ok := app.Plugins().State("relay.broken")
	require.True(t, ok)
	assert.Equal(t, registry.StateInitFailed, state)
	_, registered := app.Plugins().Get("relay.dependent")
	assert.False(t, registered)
	assert.NotEmpty(t, logger.EntriesAt(logging.WarnLevel))
}

func TestApp_MetadataFailureIsNotFatal(t *testing.T) {
	s := &steps{}
	var themed int
	src := &recordingSource{s: s, err: errors.New("service unavailable")}
	app := newTestApp(logging.NewNoopLogger(),
		WithModules(tracked(s, "auth", nil)),
		WithMetadataSource(src),
	)
	app.Bus().On(events.AppThemeApplied, eventbus.ListenerFunc(func(context.Context, *eventbus.Event) error {
		themed++
		return nil
	}))

	require.NoError(t, app.Initialize(context.Background()))
	assert.Equal(t, StateRunning, app.State())
	assert.Equal(t, []string{"init:auth", "metadata", "metadata"}, s.get())
	assert.Zero(t, themed)
	_, ok := app.Metadata()
	assert.False(t, ok)
}

func TestApp_ThemeAppliedOverBus(t *testing.T) {
	s := &steps{}
	src := &recordingSource{s: s, meta: &appinfo.Metadata{Name: "pv", Version: "2.1.0", Theme: map[string]string{"bg": "#000"}}}
	app := newTestApp(logging.NewNoopLogger(), WithModules(tracked(s, "auth", nil)), WithMetadataSource(src))

	var applied events.ThemeApplied
	eventbus.Subscribe(app.Bus(), events.AppThemeApplied, func(_ context.Context, p events.ThemeApplied) error {
		applied = p
		return nil
	})
	require.NoError(t, app.Initialize(context.Background()))
	assert.Equal(t, "2.1.0", applied.Version)
	assert.Equal(t, "#000", applied.Variables["bg"])
}

func TestApp_ModuleFailureFailsStartup(t *testing.T) {
	s := &steps{}
	var ready int
	app := newTestApp(logging.NewNoopLogger(),
		WithModules(
			tracked(s, "auth", errors.New("keychain locked")),
			tracked(s, "servers", nil, "auth"),
		),
		WithPlugins(tracked(s, "relay.test", nil)),
	)
	app.Bus().On(events.AppReady, eventbus.ListenerFunc(func(context.Context, *eventbus.Event) error {
		ready++
		return nil
	}))

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeInitialization))
	assert.Equal(t, StateFailed, app.State())
	assert.Equal(t, []string{"init:auth"}, s.get())
	assert.Zero(t, ready)
}

func TestApp_MissingModuleDependency(t *testing.T) {
	s := &steps{}
	app := newTestApp(logging.NewNoopLogger(), WithModules(tracked(s, "channels", nil, "servers")))

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeMissingDependency))
	assert.Equal(t, StateFailed, app.State())
	assert.Empty(t, s.get())
}

func TestApp_DestroyOrder(t *testing.T) {
	s := &steps{}
	app := newTestApp(logging.NewNoopLogger(),
		WithModules(tracked(s, "auth", nil), tracked(s, "servers", nil, "auth")),
		WithPlugins(tracked(s, "relay.a", nil), tracked(s, "relay.b", nil)),
	)
	require.NoError(t, app.Initialize(context.Background()))
	app.Bus().On("probe", eventbus.ListenerFunc(func(context.Context, *eventbus.Event) error { return nil }))

	require.NoError(t, app.Destroy(context.Background()))
	assert.Equal(t, []string{
		"init:auth", "init:servers", "init:relay.a", "init:relay.b",
		"destroy:relay.b", "destroy:relay.a", "destroy:servers", "destroy:auth",
	}, s.get())
	assert.Equal(t, StateStopped, app.State())
	assert.Zero(t, app.Bus().ListenerCount("probe"))
	assert.Zero(t, app.Modules().Len())
	assert.Zero(t, app.Plugins().Len())
}

func TestApp_DestroyJoinsErrors(t *testing.T) {
	failing := func(id string) Factory {
		return func(Env) registry.IDescriptor {
			return registry.Define(registry.Metadata{ID: id}, nil,
				func(context.Context) error { return errors.New(id + " teardown") })
		}
	}
	app := newTestApp(logging.NewNoopLogger(), WithModules(failing("auth")), WithPlugins(failing("relay.x")))
	require.NoError(t, app.Initialize(context.Background()))

	err := app.Destroy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth")
	assert.Contains(t, err.Error(), "relay.x")
	assert.Equal(t, StateStopped, app.State())
}

func TestApp_InitializeTwiceWithoutDestroy(t *testing.T) {
	s := &steps{}
	app := newTestApp(logging.NewNoopLogger(), WithModules(tracked(s, "auth", nil)))
	require.NoError(t, app.Initialize(context.Background()))

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeDuplicateID))
	assert.Equal(t, StateFailed, app.State())
	assert.Equal(t, []string{"init:auth"}, s.get())
}

func TestApp_ReinitializeAfterDestroy(t *testing.T) {
	s := &steps{}
	app := newTestApp(logging.NewNoopLogger(), WithModules(tracked(s, "auth", nil)))
	require.NoError(t, app.Initialize(context.Background()))
	require.NoError(t, app.Destroy(context.Background()))
	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, []string{"init:auth", "destroy:auth", "init:auth"}, s.get())
	assert.Equal(t, StateRunning, app.State())
}

func TestApp_RuntimeEnabledOnce(t *testing.T) {
	rt := &Runtime{}
	var hooks int
	rt.OnEnable(func() { hooks++ })

	for i := 0; i < 2; i++ {
		app := New(WithLogger(logging.NewNoopLogger()), WithRuntime(rt), WithModules())
		require.NoError(t, app.Initialize(context.Background()))
	}
	assert.True(t, rt.Enabled())
	assert.Equal(t, 1, hooks)
	assert.False(t, rt.Enable())

	late := 0
	rt.OnEnable(func() { late++ })
	assert.Equal(t, 1, late)
}

func TestApp_LifecycleTimeout(t *testing.T) {
	slow := func(Env) registry.IDescriptor {
		return registry.Define(registry.Metadata{ID: "auth"}, func(context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}, nil)
	}
	app := newTestApp(logging.NewNoopLogger(), WithModules(slow), WithLifecycleTimeout(20*time.Millisecond))

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeTimeout))
	assert.Equal(t, StateFailed, app.State())
}

func TestApp_DefaultModules(t *testing.T) {
	app := newTestApp(logging.NewNoopLogger(), WithSettingsDSN(":memory:"))
	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, []string{
		"auth", "settings", "servers", "channels", "messaging", "voice", "invite", "admin",
	}, app.Modules().Order())

	app.Bus().Emit(context.Background(), events.AuthCommandLogin, events.Login{Session: events.Session{Username: "mira"}})
	app.Bus().Emit(context.Background(), events.ServersCommandSelect, events.SelectServer{ServerID: "srv-1"})

	require.NoError(t, app.Destroy(context.Background()))
	assert.Equal(t, StateStopped, app.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Pending", StatePending.String())
	assert.Equal(t, "Starting", StateStarting.String())
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "Failed", StateFailed.String())
	assert.Equal(t, "Stopping", StateStopping.String())
	assert.Equal(t, "Stopped", StateStopped.String())
	assert.Equal(t, "Unknown", State(99).String())
}
