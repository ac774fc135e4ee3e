package client

import "github.com/quchat/quchat/internal/api"

// sessionState is the authentication state of the client. Exactly one
// of the concrete variants is held at any time, and handlers branch on
// the concrete type rather than inspecting nullable fields.
type sessionState interface {
	sessionState()
}

// signedOut is the state before sign-in and after any sign-out,
// voluntary or forced.
type signedOut struct{}

// authenticated carries the session token and the resolved profile of
// the signed-in user.
type authenticated struct {
	Token   string
	Profile api.UserProfile
}

func (signedOut) sessionState()     {}
func (authenticated) sessionState() {}

// token returns the active session token, or "" when signed out.
func (a *App) token() string {
	if s, ok := a.session.(authenticated); ok {
		return s.Token
	}
	return ""
}

func (a *App) signedIn() bool {
	_, ok := a.session.(authenticated)
	return ok
}
