package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quchat/quchat/internal/api"
	"github.com/quchat/quchat/internal/config"
)

// The SDK and the handlers each encode one side of the wire contract;
// driving the full flow through api.Client keeps the two from drifting.
func TestClientSDKAgainstServer(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)
	sdk := api.NewClient(config.ClientConfig{
		ServerURL:      ts.URL,
		RequestTimeout: 5 * time.Second,
	})
	ctx := context.Background()

	_, err := sdk.Register(ctx, "alice", "pw-alice")
	req.NoError(err)

	token, err := sdk.Signin(ctx, "alice", "pw-alice")
	req.NoError(err)
	req.NotEmpty(token)

	profile, err := sdk.Whoami(ctx, token)
	req.NoError(err)
	req.Equal("alice", profile.Name)

	room, err := sdk.CreateRoom(ctx, token, "lobby")
	req.NoError(err)
	req.NotEmpty(room.ID)

	rooms, err := sdk.Rooms(ctx)
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal("lobby", rooms[0].Name)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := sdk.StreamMessages(streamCtx, token, room.ID)
	req.NoError(err)

	id, err := sdk.Send(ctx, token, room.ID, "hello over the wire")
	req.NoError(err)
	req.NotEmpty(id)

	select {
	case msg := <-events:
		req.Equal(id, msg.ID)
		req.Equal("hello over the wire", msg.Content)
		req.Equal("alice", msg.SenderName)
	case <-time.After(5 * time.Second):
		t.Fatal("live message did not arrive")
	}

	history, err := sdk.History(ctx, token, room.ID, 0)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(id, history[0].ID)

	req.NoError(sdk.MarkRoomSeen(ctx, token, room.ID))
	states, err := sdk.RoomStates(ctx, token, []string{room.ID})
	req.NoError(err)
	req.Len(states, 1)
	req.False(states[0].HasUnread)

	req.NoError(sdk.Signout(ctx, token))

	_, err = sdk.Whoami(ctx, token)
	req.True(api.IsUnauthorized(err))
	select {
	case <-sdk.Unauthorized():
	case <-time.After(time.Second):
		t.Fatal("expected an unauthorized signal after sign-out")
	}
}

func TestClientSDKSurfacesLogicalErrors(t *testing.T) {
	req := require.New(t)
	_, ts := newTestServer(t)
	sdk := api.NewClient(config.ClientConfig{
		ServerURL:      ts.URL,
		RequestTimeout: 5 * time.Second,
	})
	ctx := context.Background()

	_, err := sdk.Signin(ctx, "nobody", "pw")
	req.EqualError(err, "User not found")

	token, err := sdk.Register(ctx, "bob", "pw-bob")
	req.NoError(err)

	_, err = sdk.Send(ctx, token, "missing-room", "hi")
	req.EqualError(err, "Room not found")
}
