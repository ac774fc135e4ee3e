package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing record, regardless of backend.
var ErrNotFound = errors.New("storage: not found")

// User represents a persisted account record.
type User struct {
	ID        string
	Name      string
	Secret    string
	CreatedAt time.Time
}

// Room represents a chat room.
type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatorID  string `json:"creator_id"`
	CreateDate int64  `json:"create_date"`
}

// Message represents a persisted chat message.
type Message struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	RoomID     string `json:"room_id"`
	CreateDate int64  `json:"create_date"`
}

// RoomState is the per-caller unread flag for one room.
type RoomState struct {
	RoomID    string `json:"room_id"`
	HasUnread bool   `json:"has_unread"`
}

// Store defines persistence operations used by the server.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) error
	GetUserByName(ctx context.Context, name string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// RevokeToken inserts a permanent revocation entry for the exact
	// token string. Entries are never deleted.
	RevokeToken(ctx context.Context, token string) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)

	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)

	CreateMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns up to limit messages for the room,
	// most recent first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]Message, error)

	// MarkRoomSeen upserts the caller's last-seen timestamp for the room.
	MarkRoomSeen(ctx context.Context, userID, roomID string, seenAt time.Time) error
	// RoomStates reports, for each requested room, whether it holds a
	// message from someone other than userID newer than userID's
	// last-seen timestamp. A room the caller has never marked seen is
	// always unread.
	RoomStates(ctx context.Context, userID string, roomIDs []string) ([]RoomState, error)
}
