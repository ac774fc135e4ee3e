package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quchat/quchat/internal/auth"
	"github.com/quchat/quchat/internal/hub"
	"github.com/quchat/quchat/internal/storage"
)

var (
	// ErrRoomNotFound reports a send against a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrSenderLookup reports a send whose sender profile cannot be resolved.
	ErrSenderLookup = errors.New("sender lookup failed")
)

type sendParams struct {
	Text   string `json:"text"`
	RoomID string `json:"room_id"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var params sendParams
	if err := decodeBody(r, &params); err != nil {
		writeLogical(w, "Invalid request body")
		return
	}

	id, err := s.sendMessage(r.Context(), identity, params.Text, params.RoomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		writeLogical(w, "Room not found")
	case errors.Is(err, ErrSenderLookup):
		writeLogical(w, "Unable to resolve sender")
	case err != nil:
		s.log.Error("send failed", "room", params.RoomID, "err", err)
		writeLogical(w, "Unable to send message")
	default:
		writeData(w, id)
	}
}

// sendMessage runs the send pipeline: verify the room, resolve the
// sender's display name, persist the message, then publish it to the
// hub. Persist always precedes publish so any live event can also be
// found via history.
func (s *Server) sendMessage(ctx context.Context, identity auth.Identity, text, roomID string) (string, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("room lookup: %w", err)
	}

	sender, err := s.store.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSenderLookup, err)
	}

	msg := storage.Message{
		ID:         uuid.NewString(),
		Content:    text,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		RoomID:     roomID,
		CreateDate: time.Now().Unix(),
	}
	if err := s.store.CreateMessage(ctx, &msg); err != nil {
		return "", fmt.Errorf("persist message: %w", err)
	}

	s.hub.Publish(hub.RoomChange{Message: hub.Message(msg)})
	return msg.ID, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	size := s.cfg.HistoryPageSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeLogical(w, "Invalid page size")
			return
		}
		size = parsed
	}

	messages, err := s.store.RecentMessages(r.Context(), roomID, size)
	if err != nil {
		writeLogical(w, "Unable to fetch messages")
		return
	}
	if messages == nil {
		messages = []storage.Message{}
	}
	writeData(w, messages)
}

// handleMessageEvents streams, as server-sent events, every message
// published for the requested room. Events for other rooms are
// discarded; lag is tolerated; hub closure ends the stream cleanly.
func (s *Server) handleMessageEvents(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")

	// Subscribe before the headers go out: a client that has seen the
	// 200 must not miss events published right after.
	sub := s.hub.Subscribe()
	defer sub.Close()

	stream, err := newSSEWriter(w)
	if err != nil {
		writeErrorStatus(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	for {
		select {
		case change, ok := <-sub.Events():
			if !ok {
				return
			}
			if change.Message.RoomID != roomID {
				continue
			}
			if err := stream.sendJSON(change.Message); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
