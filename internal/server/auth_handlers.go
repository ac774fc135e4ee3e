package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quchat/quchat/internal/auth"
	"github.com/quchat/quchat/internal/storage"
)

type credentialsParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params credentialsParams
	if err := decodeBody(r, &params); err != nil {
		writeLogical(w, "Invalid request body")
		return
	}

	secret, err := auth.HashPassword(params.Password)
	if err != nil {
		writeLogical(w, "Unable to create user")
		return
	}

	user := &storage.User{
		ID:        uuid.NewString(),
		Name:      params.Username,
		Secret:    secret,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.log.Warn("register failed", "username", params.Username, "err", err)
		writeLogical(w, "Unable to create user")
		return
	}

	tok, err := s.codec.Issue(user.ID)
	if err != nil {
		writeLogical(w, "Unable to create token")
		return
	}
	writeData(w, tokenResponse{Token: tok})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var params credentialsParams
	if err := decodeBody(r, &params); err != nil {
		writeLogical(w, "Invalid request body")
		return
	}

	user, err := s.store.GetUserByName(r.Context(), params.Username)
	if err != nil {
		writeLogical(w, "User not found")
		return
	}
	if err := auth.ComparePassword(user.Secret, params.Password); err != nil {
		writeLogical(w, "Invalid password")
		return
	}

	tok, err := s.codec.Issue(user.ID)
	if err != nil {
		writeLogical(w, "Unable to create token")
		return
	}
	writeData(w, tokenResponse{Token: tok})
}

// handleSignout revokes the exact token the request presented. The
// revocation entry is permanent.
func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	if err := s.store.RevokeToken(r.Context(), identity.Token); err != nil {
		s.log.Error("signout failed", "user", identity.UserID, "err", err)
		writeLogical(w, "Unable to sign out")
		return
	}
	writeData(w, "Successfully signed out")
}
