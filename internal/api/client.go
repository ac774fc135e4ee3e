package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/quchat/quchat/internal/config"
)

// Room mirrors the server's room record.
type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatorID  string `json:"creator_id"`
	CreateDate int64  `json:"create_date"`
}

// Message mirrors the server's message record, both in history
// responses and in event stream frames.
type Message struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	RoomID     string `json:"room_id"`
	CreateDate int64  `json:"create_date"`
}

// RoomState is the per-room unread flag for the signed-in user.
type RoomState struct {
	RoomID    string `json:"room_id"`
	HasUnread bool   `json:"has_unread"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client talks to a quchat server. Regular calls share a timeout-bound
// HTTP client; event streams use a separate client with no timeout so
// long-lived connections stay open.
type Client struct {
	http    *http.Client
	stream  *http.Client
	baseURL string

	unauthorized chan struct{}
}

// NewClient builds a Client from the terminal client configuration.
func NewClient(cfg config.ClientConfig) *Client {
	return &Client{
		http:         &http.Client{Timeout: cfg.RequestTimeout},
		stream:       &http.Client{},
		baseURL:      strings.TrimRight(cfg.ServerURL, "/"),
		unauthorized: make(chan struct{}, 1),
	}
}

// Unauthorized delivers a signal whenever any call or stream is
// rejected with a 401. Consumers treat a receive as "the session is
// dead, sign out now".
func (c *Client) Unauthorized() <-chan struct{} {
	return c.unauthorized
}

func (c *Client) signalUnauthorized() {
	select {
	case c.unauthorized <- struct{}{}:
	default:
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

// Register creates an account and returns a session token.
func (c *Client) Register(ctx context.Context, name, password string) (string, error) {
	var payload tokenPayload
	err := c.call(ctx, http.MethodPost, "/auth/register", "", credentials{Username: name, Password: password}, &payload)
	return payload.Token, err
}

// Signin exchanges credentials for a session token.
func (c *Client) Signin(ctx context.Context, name, password string) (string, error) {
	var payload tokenPayload
	err := c.call(ctx, http.MethodPost, "/auth/signin", "", credentials{Username: name, Password: password}, &payload)
	return payload.Token, err
}

// Signout revokes the token server-side.
func (c *Client) Signout(ctx context.Context, token string) error {
	var msg string
	return c.call(ctx, http.MethodPost, "/auth/signout", token, nil, &msg)
}

// Whoami resolves the profile behind the token.
func (c *Client) Whoami(ctx context.Context, token string) (UserProfile, error) {
	var profile UserProfile
	err := c.call(ctx, http.MethodGet, "/users/whoami", token, nil, &profile)
	return profile, err
}

// Rooms lists all rooms, newest first.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	err := c.call(ctx, http.MethodGet, "/rooms", "", nil, &rooms)
	return rooms, err
}

// CreateRoom creates a room owned by the token's user.
func (c *Client) CreateRoom(ctx context.Context, token, name string) (Room, error) {
	var room Room
	err := c.call(ctx, http.MethodPost, "/rooms", token, struct {
		Name string `json:"name"`
	}{Name: name}, &room)
	return room, err
}

// RoomStates fetches unread flags for the given rooms.
func (c *Client) RoomStates(ctx context.Context, token string, roomIDs []string) ([]RoomState, error) {
	var states []RoomState
	path := "/rooms/states?room_ids=" + url.QueryEscape(strings.Join(roomIDs, ","))
	err := c.call(ctx, http.MethodGet, path, token, nil, &states)
	return states, err
}

// MarkRoomSeen records that the user has read the room up to now.
func (c *Client) MarkRoomSeen(ctx context.Context, token, roomID string) error {
	var msg string
	path := "/rooms/states/" + url.PathEscape(roomID)
	return c.call(ctx, http.MethodPost, path, token, nil, &msg)
}

// Send posts a message into a room and returns the new message ID.
func (c *Client) Send(ctx context.Context, token, roomID, text string) (string, error) {
	var id string
	err := c.call(ctx, http.MethodPost, "/messages/send", token, struct {
		Text   string `json:"text"`
		RoomID string `json:"room_id"`
	}{Text: text, RoomID: roomID}, &id)
	return id, err
}

// History fetches up to size recent messages for a room, most recent
// first. A size of zero asks for the server default.
func (c *Client) History(ctx context.Context, token, roomID string, size int) ([]Message, error) {
	var messages []Message
	path := "/messages/" + url.PathEscape(roomID)
	if size > 0 {
		path += fmt.Sprintf("?size=%d", size)
	}
	err := c.call(ctx, http.MethodGet, path, token, nil, &messages)
	return messages, err
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

func (c *Client) call(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindOther, Msg: err.Error()}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindOther, Msg: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.signalUnauthorized()
		return &Error{Kind: KindUnauthorized}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindOther, Msg: err.Error()}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindDecoding}
	}

	if resp.StatusCode != http.StatusOK {
		if env.Msg != "" {
			return &Error{Kind: KindLogical, Msg: env.Msg}
		}
		return &Error{Kind: KindOther, Msg: resp.Status}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindDecoding}
		}
	}
	return nil
}
