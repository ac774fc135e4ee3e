package client

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/quchat/quchat/internal/api"
	"github.com/quchat/quchat/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.ClientConfig{
		ServerURL:      "http://127.0.0.1:1",
		RequestTimeout: time.Second,
		DataDir:        t.TempDir(),
	}
	app := NewApp(cfg, api.NewClient(cfg)).(*App)
	app.session = authenticated{Token: "tok", Profile: api.UserProfile{ID: "u1", Name: "alice"}}
	return app
}

// fakeMessageStream behaves like an open live stream: its channel
// closes once the cancel func runs.
func fakeMessageStream() (<-chan api.Message, chan<- api.Message, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan api.Message)
	out := make(chan api.Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-in:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, in, cancel
}

func TestSwitchingRoomsReplacesStreams(t *testing.T) {
	app := newTestApp(t)
	roomA := api.Room{ID: "room-a", Name: "A"}
	roomB := api.Room{ID: "room-b", Name: "B"}

	_ = app.enterChat(roomA)
	epochA := app.epoch
	eventsA, _, cancelA := fakeMessageStream()
	app.Update(messageStreamOpenedMsg{Epoch: epochA, Cancel: cancelA, Events: eventsA})
	require.Equal(t, 1, app.tasks.active())

	// Opening another room must tear down A's stream before anything
	// for B starts.
	_ = app.enterChat(roomB)
	require.Equal(t, 0, app.tasks.active())
	require.Equal(t, roomB, app.activeRoom)

	select {
	case _, open := <-eventsA:
		require.False(t, open, "room A stream should be closed")
	case <-time.After(time.Second):
		t.Fatal("room A stream was not cancelled")
	}

	// A late delivery stamped with A's epoch is discarded.
	app.Update(messageReceivedMsg{Epoch: epochA, Message: api.Message{ID: "m-late", RoomID: roomA.ID}})
	require.Empty(t, app.messages)

	epochB := app.epoch
	eventsB, _, cancelB := fakeMessageStream()
	defer cancelB()
	app.Update(messageStreamOpenedMsg{Epoch: epochB, Cancel: cancelB, Events: eventsB})
	require.Equal(t, 1, app.tasks.active())

	app.Update(messageReceivedMsg{Epoch: epochB, Message: api.Message{ID: "m-b", RoomID: roomB.ID, Content: "hi"}})
	require.Len(t, app.messages, 1)
	require.Equal(t, "hi", app.messages[0].Content)
}

func TestStaleStreamOpenIsDiscarded(t *testing.T) {
	app := newTestApp(t)

	_ = app.enterChat(api.Room{ID: "room-a"})
	staleEpoch := app.epoch
	staleEvents, _, staleCancel := fakeMessageStream()

	// The user has already moved on by the time the stream connects.
	_ = app.enterChat(api.Room{ID: "room-b"})
	app.Update(messageStreamOpenedMsg{Epoch: staleEpoch, Cancel: staleCancel, Events: staleEvents})
	require.Equal(t, 0, app.tasks.active())

	select {
	case _, open := <-staleEvents:
		require.False(t, open, "stale stream should be cancelled on arrival")
	case <-time.After(time.Second):
		t.Fatal("stale stream was not cancelled")
	}
}

func TestUnauthorizedForcesSignOut(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, saveToken(app.cfg.DataDir, "tok"))
	app.screen = screenChat
	app.messages = []api.Message{{ID: "m1"}}
	app.rooms = []api.Room{{ID: "r1"}}

	app.Update(unauthorizedMsg{})

	require.IsType(t, signedOut{}, app.session)
	require.Equal(t, screenAuth, app.screen)
	require.Empty(t, app.messages)
	require.Empty(t, app.rooms)
	require.NotEmpty(t, app.banner)

	token, err := loadToken(app.cfg.DataDir)
	require.NoError(t, err)
	require.Empty(t, token, "stored token should be deleted")
}

func TestBannerBlocksInputUntilAcknowledged(t *testing.T) {
	app := newTestApp(t)
	app.session = signedOut{}
	app.banner = "User not found"

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Equal(t, "User not found", app.banner)
	require.Empty(t, app.username.Value(), "keystrokes must not reach the form")

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, app.banner)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Equal(t, "x", app.username.Value())
}

func TestHistoryMergesUnderLiveMessages(t *testing.T) {
	app := newTestApp(t)
	_ = app.enterChat(api.Room{ID: "r1"})

	// The live stream races the history fetch and can deliver first,
	// including a message history will also contain.
	app.appendMessage(api.Message{ID: "m2", Content: "second"})
	app.appendMessage(api.Message{ID: "m3", Content: "third"})

	app.Update(historyLoadedMsg{
		Epoch: app.epoch,
		Messages: []api.Message{
			{ID: "m2", Content: "second"},
			{ID: "m1", Content: "first"},
		},
	})

	require.Len(t, app.messages, 3)
	require.Equal(t, "first", app.messages[0].Content)
	require.Equal(t, "second", app.messages[1].Content)
	require.Equal(t, "third", app.messages[2].Content)
}

func TestAppendMessageDeduplicatesByID(t *testing.T) {
	app := newTestApp(t)
	app.appendMessage(api.Message{ID: "m1", Content: "once"})
	app.appendMessage(api.Message{ID: "m1", Content: "once"})
	require.Len(t, app.messages, 1)
}

func TestSignoutFailureSurfacesBanner(t *testing.T) {
	app := newTestApp(t)
	app.session = signedOut{}
	app.screen = screenAuth

	app.Update(signoutResultMsg{Err: &api.Error{Kind: api.KindOther, Msg: "connection refused"}})
	require.Contains(t, app.banner, "Sign-out failed")

	// An already-revoked token is the outcome sign-out wanted.
	app.banner = ""
	app.Update(signoutResultMsg{Err: &api.Error{Kind: api.KindUnauthorized}})
	require.Empty(t, app.banner)

	app.Update(signoutResultMsg{})
	require.Empty(t, app.banner)
}

func TestStaleRoomStatesIgnored(t *testing.T) {
	app := newTestApp(t)
	app.screen = screenRooms
	app.epoch = 3

	app.Update(roomStatesMsg{Epoch: 2, States: []api.RoomState{{RoomID: "r1", HasUnread: true}}})
	require.Empty(t, app.unread)

	app.Update(roomStatesMsg{Epoch: 3, States: []api.RoomState{{RoomID: "r1", HasUnread: true}}})
	require.True(t, app.unread["r1"])
}
