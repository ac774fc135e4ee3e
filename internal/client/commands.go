package client

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quchat/quchat/internal/api"
)

type storedTokenMsg struct {
	Token string
}

type whoamiResultMsg struct {
	Token   string
	Profile api.UserProfile
	Err     error
}

type authResultMsg struct {
	Register bool
	Token    string
	Err      error
}

type signoutResultMsg struct {
	Err error
}

type roomsLoadedMsg struct {
	Rooms []api.Room
	Err   error
}

type roomStatesMsg struct {
	Epoch  int
	States []api.RoomState
	Err    error
}

type roomCreatedMsg struct {
	Room api.Room
	Err  error
}

type historyLoadedMsg struct {
	Epoch    int
	Messages []api.Message
	Err      error
}

type sendResultMsg struct {
	Err error
}

type markSeenDoneMsg struct {
	Err error
}

type messageStreamOpenedMsg struct {
	Epoch  int
	Cancel context.CancelFunc
	Events <-chan api.Message
	Err    error
}

type messageReceivedMsg struct {
	Epoch   int
	Message api.Message
}

type messageStreamClosedMsg struct {
	Epoch int
}

type stateStreamOpenedMsg struct {
	Epoch    int
	Cancel   context.CancelFunc
	Triggers <-chan struct{}
	Err      error
}

type stateTriggerMsg struct {
	Epoch int
}

type stateStreamClosedMsg struct {
	Epoch int
}

type unauthorizedMsg struct{}

func loadStoredToken(dataDir string) tea.Cmd {
	return func() tea.Msg {
		token, err := loadToken(dataDir)
		if err != nil {
			return storedTokenMsg{}
		}
		return storedTokenMsg{Token: token}
	}
}

func whoamiCmd(client *api.Client, token string) tea.Cmd {
	return func() tea.Msg {
		profile, err := client.Whoami(context.Background(), token)
		return whoamiResultMsg{Token: token, Profile: profile, Err: err}
	}
}

func signinCmd(client *api.Client, dataDir, name, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := client.Signin(context.Background(), name, password)
		if err == nil {
			err = saveToken(dataDir, token)
		}
		return authResultMsg{Token: token, Err: err}
	}
}

func registerCmd(client *api.Client, dataDir, name, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := client.Register(context.Background(), name, password)
		if err == nil {
			err = saveToken(dataDir, token)
		}
		return authResultMsg{Register: true, Token: token, Err: err}
	}
}

func signoutCmd(client *api.Client, dataDir, token string) tea.Cmd {
	return func() tea.Msg {
		err := client.Signout(context.Background(), token)
		_ = deleteToken(dataDir)
		return signoutResultMsg{Err: err}
	}
}

func loadRoomsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		rooms, err := client.Rooms(context.Background())
		return roomsLoadedMsg{Rooms: rooms, Err: err}
	}
}

func loadRoomStatesCmd(client *api.Client, token string, roomIDs []string, epoch int) tea.Cmd {
	return func() tea.Msg {
		states, err := client.RoomStates(context.Background(), token, roomIDs)
		return roomStatesMsg{Epoch: epoch, States: states, Err: err}
	}
}

func createRoomCmd(client *api.Client, token, name string) tea.Cmd {
	return func() tea.Msg {
		room, err := client.CreateRoom(context.Background(), token, name)
		return roomCreatedMsg{Room: room, Err: err}
	}
}

func historyCmd(client *api.Client, token, roomID string, size, epoch int) tea.Cmd {
	return func() tea.Msg {
		messages, err := client.History(context.Background(), token, roomID, size)
		return historyLoadedMsg{Epoch: epoch, Messages: messages, Err: err}
	}
}

func sendCmd(client *api.Client, token, roomID, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := client.Send(context.Background(), token, roomID, text)
		return sendResultMsg{Err: err}
	}
}

func markSeenCmd(client *api.Client, token, roomID string) tea.Cmd {
	return func() tea.Msg {
		return markSeenDoneMsg{Err: client.MarkRoomSeen(context.Background(), token, roomID)}
	}
}

func openMessageStream(ctx context.Context, cancel context.CancelFunc, client *api.Client, token, roomID string, epoch int) tea.Cmd {
	return func() tea.Msg {
		events, err := client.StreamMessages(ctx, token, roomID)
		if err != nil {
			cancel()
			return messageStreamOpenedMsg{Epoch: epoch, Err: err}
		}
		return messageStreamOpenedMsg{Epoch: epoch, Cancel: cancel, Events: events}
	}
}

// awaitMessage blocks for the next live message. Handlers re-arm it
// after every receipt; the epoch stamp lets stale deliveries be
// discarded after the room changes.
func awaitMessage(events <-chan api.Message, epoch int) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return messageStreamClosedMsg{Epoch: epoch}
		}
		return messageReceivedMsg{Epoch: epoch, Message: msg}
	}
}

func openStateStream(ctx context.Context, cancel context.CancelFunc, client *api.Client, token string, roomIDs []string, epoch int) tea.Cmd {
	return func() tea.Msg {
		triggers, err := client.StreamRoomStates(ctx, token, roomIDs)
		if err != nil {
			cancel()
			return stateStreamOpenedMsg{Epoch: epoch, Err: err}
		}
		return stateStreamOpenedMsg{Epoch: epoch, Cancel: cancel, Triggers: triggers}
	}
}

func awaitStateTrigger(triggers <-chan struct{}, epoch int) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-triggers
		if !ok {
			return stateStreamClosedMsg{Epoch: epoch}
		}
		return stateTriggerMsg{Epoch: epoch}
	}
}

// watchUnauthorized surfaces the client-wide unauthorized signal as a
// model message. It is re-armed after every delivery.
func watchUnauthorized(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		<-client.Unauthorized()
		return unauthorizedMsg{}
	}
}
