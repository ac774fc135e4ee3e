package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quchat/quchat/internal/storage"
)

type createRoomParams struct {
	Name string `json:"name"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(r.Context())
	if err != nil {
		writeLogical(w, "Failed to fetch rooms")
		return
	}
	writeData(w, rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLogical(w, "Failed to fetch room")
		return
	}
	writeData(w, room)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var params createRoomParams
	if err := decodeBody(r, &params); err != nil || strings.TrimSpace(params.Name) == "" {
		writeLogical(w, "Invalid request body")
		return
	}

	room := &storage.Room{
		ID:         uuid.NewString(),
		Name:       params.Name,
		CreatorID:  identity.UserID,
		CreateDate: time.Now().Unix(),
	}
	if err := s.store.CreateRoom(r.Context(), room); err != nil {
		writeLogical(w, "Failed to create room")
		return
	}
	writeData(w, room)
}

func (s *Server) handleRoomStates(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	roomIDs := splitRoomIDs(r.URL.Query().Get("room_ids"))
	states, err := s.store.RoomStates(r.Context(), identity.UserID, roomIDs)
	if err != nil {
		writeLogical(w, "Unable to get room states")
		return
	}
	if states == nil {
		states = []storage.RoomState{}
	}
	writeData(w, states)
}

func (s *Server) handleMarkRoomSeen(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	roomID := r.PathValue("room_id")
	if err := s.store.MarkRoomSeen(r.Context(), identity.UserID, roomID, time.Now()); err != nil {
		writeLogical(w, "Unable to set state")
		return
	}
	writeData(w, "Successfully set state")
}

// handleRoomStateEvents pushes an empty frame whenever a message lands
// in any of the requested rooms. Clients use it purely as a "go
// re-fetch states" trigger.
func (s *Server) handleRoomStateEvents(w http.ResponseWriter, r *http.Request) {
	watched := make(map[string]struct{})
	for _, id := range splitRoomIDs(r.URL.Query().Get("room_ids")) {
		watched[id] = struct{}{}
	}

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
			if _, ok := watched[change.Message.RoomID]; !ok {
				continue
			}
			if err := stream.sendEmpty(); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func splitRoomIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
