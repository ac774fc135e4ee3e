package server

import (
	"net/http"
)

type userProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeLogical(w, "Failed to fetch users")
		return
	}
	profiles := make([]userProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, userProfile{ID: user.ID, Name: user.Name})
	}
	writeData(w, profiles)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLogical(w, "Failed to fetch user")
		return
	}
	writeData(w, userProfile{ID: user.ID, Name: user.Name})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	user, err := s.store.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeLogical(w, "Failed to fetch user profile")
		return
	}
	writeData(w, userProfile{ID: user.ID, Name: user.Name})
}
