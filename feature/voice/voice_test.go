package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/logging"
)

func setup(t *testing.T) (*eventbus.Bus, *Module, *[]string) {
	t.Helper()
	bus := eventbus.New(eventbus.WithLogger(logging.NewNoopLogger()))
	m := New(bus, WithLogger(logging.NewNoopLogger()))
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Destroy(context.Background()) })

	trail := &[]string{}
	bus.On(events.VoiceConnected, eventbus.ListenerFunc(func(ctx context.Context, evt *eventbus.Event) error {
		*trail = append(*trail, "connected:"+evt.Payload.(events.VoiceConnection).ChannelID)
		return nil
	}))
	bus.On(events.VoiceDisconnected, eventbus.ListenerFunc(func(ctx context.Context, evt *eventbus.Event) error {
		*trail = append(*trail, "disconnected:"+evt.Payload.(events.VoiceConnection).ChannelID)
		return nil
	}))
	return bus, m, trail
}

func TestVoice_JoinSwitchLeave(t *testing.T) {
	ctx := context.Background()
	bus, m, trail := setup(t)

	bus.Emit(ctx, events.AuthLoggedIn, events.LoggedIn{Session: events.Session{UserID: "me"}})
	bus.Emit(ctx, events.ChannelsChannelSelected, events.ChannelSelected{ChannelID: "lounge", Kind: "voice"})
	bus.Emit(ctx, events.VoiceCommandJoin, events.JoinVoice{})
	assert.Equal(t, "lounge", m.Connected())
	assert.Equal(t, []Participant{{UserID: "me"}}, m.Participants("lounge"))

	bus.Emit(ctx, events.VoiceCommandJoin, events.JoinVoice{})
	bus.Emit(ctx, events.VoiceCommandJoin, events.JoinVoice{ChannelID: "gaming", Muted: true})
	assert.Empty(t, m.Participants("lounge"))
	assert.Equal(t, []Participant{{UserID: "me", Muted: true}}, m.Participants("gaming"))

	bus.Emit(ctx, events.VoiceCommandLeave, events.LeaveVoice{})
	bus.Emit(ctx, events.VoiceCommandLeave, events.LeaveVoice{})
	assert.Empty(t, m.Connected())
	assert.Equal(t, []string{
		"connected:lounge",
		"disconnected:lounge",
		"connected:gaming",
		"disconnected:gaming",
	}, *trail)
}

func TestVoice_RemoteRoster(t *testing.T) {
	ctx := context.Background()
	bus, m, _ := setup(t)

	bus.Emit(ctx, events.VoiceParticipantJoined, events.ParticipantJoined{ChannelID: "c1", UserID: "zed"})
	bus.Emit(ctx, events.VoiceParticipantJoined, events.ParticipantJoined{ChannelID: "c1", UserID: "amy", Muted: true})
	bus.Emit(ctx, events.VoiceParticipantJoined, events.ParticipantJoined{ChannelID: "c1", UserID: "zed"})
	assert.Equal(t, []Participant{{UserID: "amy", Muted: true}, {UserID: "zed"}}, m.Participants("c1"))

	bus.Emit(ctx, events.VoiceParticipantLeft, events.ParticipantLeft{ChannelID: "c1", UserID: "amy"})
	bus.Emit(ctx, events.VoiceParticipantLeft, events.ParticipantLeft{ChannelID: "nowhere", UserID: "amy"})
	assert.Equal(t, []Participant{{UserID: "zed"}}, m.Participants("c1"))
}

func TestVoice_LogoutDisconnects(t *testing.T) {
	ctx := context.Background()
	bus, m, trail := setup(t)

	bus.Emit(ctx, events.AuthLoggedIn, events.LoggedIn{Session: events.Session{UserID: "me"}})
	bus.Emit(ctx, events.VoiceCommandJoin, events.JoinVoice{ChannelID: "c1"})
	bus.Emit(ctx, events.AuthLoggedOut, events.LoggedOut{UserID: "me"})

	assert.Empty(t, m.Connected())
	assert.Empty(t, m.Participants("c1"))
	assert.Equal(t, []string{"connected:c1", "disconnected:c1"}, *trail)
}

func TestVoice_JoinRequiresSession(t *testing.T) {
	logger := logging.NewMemoryLogger()
	bus := eventbus.New(eventbus.WithLogger(logger))
	m := New(bus)
	require.NoError(t, m.Initialize(context.Background()))
	defer m.Destroy(context.Background())

	bus.Emit(context.Background(), events.VoiceCommandJoin, events.JoinVoice{ChannelID: "c1"})
	assert.Empty(t, m.Connected())
	assert.Len(t, logger.EntriesAt(logging.ErrorLevel), 1)
}
