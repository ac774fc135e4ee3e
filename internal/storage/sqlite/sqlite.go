// Package sqlite is the GORM-backed SQLite implementation of storage.Store.
package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quchat/quchat/internal/config"
	"github.com/quchat/quchat/internal/storage"
)

// Store wraps a GORM SQLite database.
type Store struct {
	db *gorm.DB
}

type userModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Secret    string
	CreatedAt time.Time
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	CreatorID  string
	CreateDate int64 `gorm:"index"`
}

func (roomModel) TableName() string { return "rooms" }

type messageModel struct {
	ID         string `gorm:"primaryKey"`
	Content    string
	SenderID   string `gorm:"index"`
	SenderName string
	RoomID     string `gorm:"index"`
	CreateDate int64  `gorm:"index"`
}

func (messageModel) TableName() string { return "messages" }

type roomStateModel struct {
	ID       string `gorm:"primaryKey"`
	UserID   string `gorm:"index:idx_room_state_user_room,unique"`
	RoomID   string `gorm:"index:idx_room_state_user_room,unique"`
	LastSeen int64
}

func (roomStateModel) TableName() string { return "room_state" }

type revokedTokenModel struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Token string `gorm:"uniqueIndex"`
}

func (revokedTokenModel) TableName() string { return "token_blacklist" }

// NewStore opens a SQLite database at the configured path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&userModel{},
		&roomModel{},
		&messageModel{},
		&roomStateModel{},
		&revokedTokenModel{},
	)
}

// CreateUser stores a new user record.
func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	model := userModel{
		ID:        user.ID,
		Name:      user.Name,
		Secret:    user.Secret,
		CreatedAt: user.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetUserByName retrieves a user by username.
func (s *Store) GetUserByName(ctx context.Context, name string) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return userFromModel(model), nil
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return userFromModel(model), nil
}

// ListUsers returns every registered user.
func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	var models []userModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]storage.User, 0, len(models))
	for _, m := range models {
		users = append(users, *userFromModel(m))
	}
	return users, nil
}

// RevokeToken records a permanent revocation entry for the token.
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	model := revokedTokenModel{Token: token}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

// IsTokenRevoked reports whether the exact token string has been revoked.
func (s *Store) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&revokedTokenModel{}).
		Where("token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateRoom stores a new room.
func (s *Store) CreateRoom(ctx context.Context, room *storage.Room) error {
	if room == nil {
		return errors.New("nil room")
	}
	model := roomModel(*room)
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(ctx context.Context, id string) (*storage.Room, error) {
	var model roomModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	room := storage.Room(model)
	return &room, nil
}

// ListRooms returns all rooms, newest first.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	var models []roomModel
	if err := s.db.WithContext(ctx).Order("create_date DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	rooms := make([]storage.Room, 0, len(models))
	for _, m := range models {
		rooms = append(rooms, storage.Room(m))
	}
	return rooms, nil
}

// CreateMessage stores a new message.
func (s *Store) CreateMessage(ctx context.Context, msg *storage.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	model := messageModel(*msg)
	return s.db.WithContext(ctx).Create(&model).Error
}

// RecentMessages returns up to limit messages for the room, newest first.
func (s *Store) RecentMessages(ctx context.Context, roomID string, limit int) ([]storage.Message, error) {
	var models []messageModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("create_date DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	messages := make([]storage.Message, 0, len(models))
	for _, m := range models {
		messages = append(messages, storage.Message(m))
	}
	return messages, nil
}

// MarkRoomSeen upserts the caller's last-seen timestamp for the room.
func (s *Store) MarkRoomSeen(ctx context.Context, userID, roomID string, seenAt time.Time) error {
	model := roomStateModel{
		ID:       uuid.NewString(),
		UserID:   userID,
		RoomID:   roomID,
		LastSeen: seenAt.Unix(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
		}).
		Create(&model).Error
}

// RoomStates computes the unread flag for each requested room.
func (s *Store) RoomStates(ctx context.Context, userID string, roomIDs []string) ([]storage.RoomState, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}

	var seenRows []roomStateModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND room_id IN ?", userID, roomIDs).
		Find(&seenRows).Error
	if err != nil {
		return nil, err
	}
	lastSeen := make(map[string]int64, len(seenRows))
	for _, row := range seenRows {
		lastSeen[row.RoomID] = row.LastSeen
	}

	type latestRow struct {
		RoomID string
		Latest int64
	}
	var latestRows []latestRow
	err = s.db.WithContext(ctx).
		Model(&messageModel{}).
		Select("room_id, MAX(create_date) AS latest").
		Where("room_id IN ? AND sender_id <> ?", roomIDs, userID).
		Group("room_id").
		Scan(&latestRows).Error
	if err != nil {
		return nil, err
	}
	latest := make(map[string]int64, len(latestRows))
	for _, row := range latestRows {
		latest[row.RoomID] = row.Latest
	}

	states := make([]storage.RoomState, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		seen, hasSeen := lastSeen[roomID]
		hasUnread := true
		if hasSeen {
			hasUnread = latest[roomID] > seen
		}
		states = append(states, storage.RoomState{RoomID: roomID, HasUnread: hasUnread})
	}
	return states, nil
}

func userFromModel(m userModel) *storage.User {
	return &storage.User{
		ID:        m.ID,
		Name:      m.Name,
		Secret:    m.Secret,
		CreatedAt: m.CreatedAt,
	}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}
