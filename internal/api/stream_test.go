package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func flushFrame(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data:%s\n\n", payload)
	w.(http.Flusher).Flush()
}

func TestStreamMessagesDeliversFrames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/events/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 3; i++ {
			frame, err := json.Marshal(Message{ID: fmt.Sprintf("m%d", i), Content: "hello", RoomID: "r1"})
			require.NoError(t, err)
			flushFrame(w, string(frame))
		}
	})
	c := newTestClient(t, mux)

	events, err := c.StreamMessages(context.Background(), "tok", "r1")
	require.NoError(t, err)

	var got []Message
	for msg := range events {
		got = append(got, msg)
	}
	require.Len(t, got, 3)
	require.Equal(t, "m0", got[0].ID)
	require.Equal(t, "m2", got[2].ID)
}

func TestStreamMessagesSkipsMalformedFrames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/events/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flushFrame(w, "{this is not json")
		fmt.Fprint(w, ": comment line\n\n")
		frame, err := json.Marshal(Message{ID: "m1", Content: "still here", RoomID: "r1"})
		require.NoError(t, err)
		flushFrame(w, string(frame))
	})
	c := newTestClient(t, mux)

	events, err := c.StreamMessages(context.Background(), "tok", "r1")
	require.NoError(t, err)

	var got []Message
	for msg := range events {
		got = append(got, msg)
	}
	require.Len(t, got, 1)
	require.Equal(t, "still here", got[0].Content)
}

func TestStreamMessagesEndsOnCancel(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/events/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.StreamMessages(ctx, "tok", "r1")
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-events:
		require.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestStreamRoomStatesSignalsEmptyFrames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/states/events", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "r1,r2", r.URL.Query().Get("room_ids"))
		w.Header().Set("Content-Type", "text/event-stream")
		flushFrame(w, "")
		flushFrame(w, "")
	})
	c := newTestClient(t, mux)

	triggers, err := c.StreamRoomStates(context.Background(), "tok", []string{"r1", "r2"})
	require.NoError(t, err)

	count := 0
	for range triggers {
		count++
	}
	require.Equal(t, 2, count)
}

func TestStreamUnauthorizedFiresSignal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/events/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		writeMsg(w, http.StatusUnauthorized, "Unauthorised")
	})
	c := newTestClient(t, mux)

	_, err := c.StreamMessages(context.Background(), "stale", "r1")
	require.True(t, IsUnauthorized(err))

	select {
	case <-c.Unauthorized():
	case <-time.After(time.Second):
		t.Fatal("expected an unauthorized signal")
	}
}
