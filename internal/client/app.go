package client

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/quchat/quchat/internal/api"
	"github.com/quchat/quchat/internal/config"
)

// screen enumerates the client's top-level panels.
type screen int

const (
	screenAuth screen = iota
	screenRooms
	screenCreateRoom
	screenChat
)

// App implements the bubbletea tea.Model interface for the terminal client.
type App struct {
	cfg config.ClientConfig
	api *api.Client

	session sessionState
	screen  screen

	username    textinput.Model
	password    textinput.Model
	authFocus   int
	registering bool

	roomName textinput.Model
	message  textinput.Model

	viewport viewport.Model

	rooms    []api.Room
	unread   map[string]bool
	selected int

	activeRoom api.Room
	messages   []api.Message

	messageEvents <-chan api.Message
	stateTriggers <-chan struct{}

	banner string

	// epoch stamps every stream-borne message with the screen
	// generation it belongs to; deliveries from a previous generation
	// are discarded.
	epoch int
	tasks taskSet

	width  int
	height int
	styles styleSet
}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ClientConfig, apiClient *api.Client) tea.Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 64
	password.EchoMode = textinput.EchoPassword

	roomName := textinput.New()
	roomName.Placeholder = "room name"
	roomName.CharLimit = 64

	message := textinput.New()
	message.Placeholder = "type a message"
	message.CharLimit = 512

	return &App{
		cfg:      cfg,
		api:      apiClient,
		session:  signedOut{},
		screen:   screenAuth,
		username: username,
		password: password,
		roomName: roomName,
		message:  message,
		viewport: viewport.New(0, 0),
		unread:   make(map[string]bool),
		styles:   buildStyles(),
	}
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		loadStoredToken(a.cfg.DataDir),
		watchUnauthorized(a.api),
	)
}

// Update handles user input and internal events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case storedTokenMsg:
		return a.handleStoredToken(m)
	case whoamiResultMsg:
		return a.handleWhoamiResult(m)
	case authResultMsg:
		return a.handleAuthResult(m)
	case signoutResultMsg:
		return a.handleSignoutResult(m)
	case unauthorizedMsg:
		return a.handleUnauthorized()
	case roomsLoadedMsg:
		return a.handleRoomsLoaded(m)
	case roomStatesMsg:
		return a.handleRoomStates(m)
	case roomCreatedMsg:
		return a.handleRoomCreated(m)
	case historyLoadedMsg:
		return a.handleHistoryLoaded(m)
	case sendResultMsg:
		if m.Err != nil {
			a.banner = m.Err.Error()
		}
		return a, nil
	case markSeenDoneMsg:
		return a, nil
	case messageStreamOpenedMsg:
		return a.handleMessageStreamOpened(m)
	case messageReceivedMsg:
		return a.handleMessageReceived(m)
	case messageStreamClosedMsg:
		return a.handleMessageStreamClosed(m)
	case stateStreamOpenedMsg:
		return a.handleStateStreamOpened(m)
	case stateTriggerMsg:
		return a.handleStateTrigger(m)
	case stateStreamClosedMsg:
		return a, nil
	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		a.tasks.cancelAll()
		return a, tea.Quit
	}

	// An error banner holds the screen until acknowledged.
	if a.banner != "" {
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			a.banner = ""
		}
		return a, nil
	}

	switch a.screen {
	case screenAuth:
		return a.handleAuthKey(msg)
	case screenRooms:
		return a.handleRoomsKey(msg)
	case screenCreateRoom:
		return a.handleCreateRoomKey(msg)
	case screenChat:
		return a.handleChatKey(msg)
	}
	return a, nil
}

func (a *App) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		a.authFocus = 1 - a.authFocus
		if a.authFocus == 0 {
			a.password.Blur()
			return a, a.username.Focus()
		}
		a.username.Blur()
		return a, a.password.Focus()
	case tea.KeyCtrlR:
		a.registering = !a.registering
		return a, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(a.username.Value())
		password := a.password.Value()
		if name == "" || password == "" {
			a.banner = "Both username and password are required"
			return a, nil
		}
		if a.registering {
			return a, registerCmd(a.api, a.cfg.DataDir, name, password)
		}
		return a, signinCmd(a.api, a.cfg.DataDir, name, password)
	}

	var cmd tea.Cmd
	if a.authFocus == 0 {
		a.username, cmd = a.username.Update(msg)
	} else {
		a.password, cmd = a.password.Update(msg)
	}
	return a, cmd
}

func (a *App) handleRoomsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if a.selected > 0 {
			a.selected--
		}
		return a, nil
	case tea.KeyDown:
		if a.selected < len(a.rooms)-1 {
			a.selected++
		}
		return a, nil
	case tea.KeyEnter:
		if a.selected >= 0 && a.selected < len(a.rooms) {
			return a, a.enterChat(a.rooms[a.selected])
		}
		return a, nil
	case tea.KeyCtrlR:
		a.screen = screenCreateRoom
		a.roomName.SetValue("")
		return a, a.roomName.Focus()
	case tea.KeyEsc:
		return a.signOut()
	}

	if msg.String() == "r" {
		return a, a.enterRooms()
	}
	return a, nil
}

func (a *App) handleCreateRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.screen = screenRooms
		a.roomName.Blur()
		return a, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(a.roomName.Value())
		if name == "" {
			a.banner = "Room name is required"
			return a, nil
		}
		return a, createRoomCmd(a.api, a.token(), name)
	}

	var cmd tea.Cmd
	a.roomName, cmd = a.roomName.Update(msg)
	return a, cmd
}

func (a *App) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.message.Blur()
		a.screen = screenRooms
		return a, a.enterRooms()
	case tea.KeyEnter:
		text := strings.TrimSpace(a.message.Value())
		if text == "" {
			return a, nil
		}
		a.message.SetValue("")
		return a, sendCmd(a.api, a.token(), a.activeRoom.ID, text)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.message, cmd = a.message.Update(msg)
	return a, cmd
}

func (a *App) handleStoredToken(msg storedTokenMsg) (tea.Model, tea.Cmd) {
	if msg.Token == "" {
		return a, nil
	}
	return a, whoamiCmd(a.api, msg.Token)
}

func (a *App) handleWhoamiResult(msg whoamiResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// A rejected stored token is handled by the unauthorized
		// signal; anything else leaves the sign-in form up.
		if !api.IsUnauthorized(msg.Err) {
			a.banner = msg.Err.Error()
		}
		return a, nil
	}
	a.session = authenticated{Token: msg.Token, Profile: msg.Profile}
	a.screen = screenRooms
	return a, a.enterRooms()
}

func (a *App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	a.password.SetValue("")
	return a, whoamiCmd(a.api, msg.Token)
}

// handleUnauthorized is the forced sign-out path: any 401 anywhere
// invalidates the whole session immediately.
func (a *App) handleUnauthorized() (tea.Model, tea.Cmd) {
	a.resetToAuth()
	a.banner = "Session expired, please sign in again"
	_ = deleteToken(a.cfg.DataDir)
	return a, watchUnauthorized(a.api)
}

// handleSignoutResult reports a failed server-side revocation: the
// local session is already gone, but the token is still live on the
// server and the user should know. A 401 means the token was already
// dead, which is the outcome sign-out wanted.
func (a *App) handleSignoutResult(msg signoutResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil && !api.IsUnauthorized(msg.Err) {
		a.banner = "Sign-out failed: " + msg.Err.Error()
	}
	return a, nil
}

func (a *App) signOut() (tea.Model, tea.Cmd) {
	token := a.token()
	a.resetToAuth()
	return a, signoutCmd(a.api, a.cfg.DataDir, token)
}

func (a *App) resetToAuth() {
	a.tasks.cancelAll()
	a.epoch++
	a.session = signedOut{}
	a.screen = screenAuth
	a.rooms = nil
	a.unread = make(map[string]bool)
	a.messages = nil
	a.selected = 0
	a.registering = false
	a.authFocus = 0
	a.username.SetValue("")
	a.password.SetValue("")
	a.password.Blur()
	a.username.Focus()
}

// enterRooms tears down any chat streams, then refreshes the room list.
// The unread states and their trigger stream start once the list is in.
func (a *App) enterRooms() tea.Cmd {
	a.tasks.cancelAll()
	a.epoch++
	a.screen = screenRooms
	return loadRoomsCmd(a.api)
}

func (a *App) handleRoomsLoaded(msg roomsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	a.rooms = msg.Rooms
	if a.selected >= len(a.rooms) {
		a.selected = 0
	}
	if a.screen != screenRooms || !a.signedIn() || len(a.rooms) == 0 {
		return a, nil
	}

	ids := lo.Map(a.rooms, func(r api.Room, _ int) string { return r.ID })
	ctx, cancel := context.WithCancel(context.Background())
	return a, tea.Batch(
		loadRoomStatesCmd(a.api, a.token(), ids, a.epoch),
		openStateStream(ctx, cancel, a.api, a.token(), ids, a.epoch),
	)
}

func (a *App) handleRoomStates(msg roomStatesMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		return a, nil
	}
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	a.unread = lo.SliceToMap(msg.States, func(s api.RoomState) (string, bool) {
		return s.RoomID, s.HasUnread
	})
	return a, nil
}

func (a *App) handleRoomCreated(msg roomCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	a.roomName.Blur()
	return a, a.enterRooms()
}

// enterChat opens a room: previous streams are cancelled synchronously
// before the new history fetch and message stream begin, so no stale
// subscription can outlive the switch.
func (a *App) enterChat(room api.Room) tea.Cmd {
	a.tasks.cancelAll()
	a.epoch++
	a.screen = screenChat
	a.activeRoom = room
	a.messages = nil
	a.message.SetValue("")

	ctx, cancel := context.WithCancel(context.Background())
	return tea.Batch(
		a.message.Focus(),
		markSeenCmd(a.api, a.token(), room.ID),
		historyCmd(a.api, a.token(), room.ID, 0, a.epoch),
		openMessageStream(ctx, cancel, a.api, a.token(), room.ID, a.epoch),
	)
}

func (a *App) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		return a, nil
	}
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	// History arrives most recent first; merge it under anything the
	// live stream delivered in the meantime.
	history := msg.Messages
	lo.Reverse(history)
	live := a.messages
	a.messages = history
	for _, m := range live {
		a.appendMessage(m)
	}
	a.refreshViewport()
	return a, nil
}

func (a *App) handleMessageStreamOpened(msg messageStreamOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		discardStream(msg.Cancel, msg.Events)
		return a, nil
	}
	if msg.Err != nil {
		a.banner = msg.Err.Error()
		return a, nil
	}
	a.tasks.track(msg.Cancel, drained(msg.Events))
	a.messageEvents = msg.Events
	return a, awaitMessage(msg.Events, msg.Epoch)
}

func (a *App) handleMessageReceived(msg messageReceivedMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		return a, nil
	}
	a.appendMessage(msg.Message)
	a.refreshViewport()
	return a, awaitMessage(a.messageEvents, msg.Epoch)
}

func (a *App) handleMessageStreamClosed(msg messageStreamClosedMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		return a, nil
	}
	a.banner = "Live stream ended, press Esc to return to the room list"
	return a, nil
}

func (a *App) handleStateStreamOpened(msg stateStreamOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		discardStream(msg.Cancel, msg.Triggers)
		return a, nil
	}
	if msg.Err != nil {
		// Unread markers degrade to the last fetched snapshot.
		return a, nil
	}
	a.tasks.track(msg.Cancel, drained(msg.Triggers))
	a.stateTriggers = msg.Triggers
	return a, awaitStateTrigger(msg.Triggers, msg.Epoch)
}

func (a *App) handleStateTrigger(msg stateTriggerMsg) (tea.Model, tea.Cmd) {
	if msg.Epoch != a.epoch {
		return a, nil
	}
	ids := lo.Map(a.rooms, func(r api.Room, _ int) string { return r.ID })
	return a, tea.Batch(
		loadRoomStatesCmd(a.api, a.token(), ids, msg.Epoch),
		awaitStateTrigger(a.stateTriggers, msg.Epoch),
	)
}

func (a *App) appendMessage(m api.Message) {
	duplicate := lo.ContainsBy(a.messages, func(existing api.Message) bool {
		return existing.ID == m.ID
	})
	if !duplicate {
		a.messages = append(a.messages, m)
	}
}

// discardStream tears down a stream that arrived after its screen was
// already gone.
func discardStream[T any](cancel context.CancelFunc, ch <-chan T) {
	if cancel != nil {
		cancel()
	}
	if ch != nil {
		go func() {
			for range ch {
			}
		}()
	}
}
