// Package server exposes the chat HTTP surface: auth, users, rooms,
// messages, and the per-room live event streams.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/quchat/quchat/internal/auth"
	"github.com/quchat/quchat/internal/config"
	"github.com/quchat/quchat/internal/hub"
	"github.com/quchat/quchat/internal/storage"
	"github.com/quchat/quchat/internal/token"
)

// Server coordinates the HTTP listener, storage, and the broadcast hub.
type Server struct {
	cfg   config.ServerConfig
	store storage.Store
	hub   *hub.Hub
	codec *token.Codec
	guard *auth.Guard
	log   *slog.Logger
}

// New constructs a server instance using the provided dependencies.
// The hub is created here, once per process, and shared by every
// stream connection and the send pipeline.
func New(cfg config.ServerConfig, store storage.Store, log *slog.Logger) *Server {
	codec := token.NewCodec([]byte(cfg.Token.Secret))
	return &Server{
		cfg:   cfg,
		store: store,
		hub:   hub.New(),
		codec: codec,
		guard: auth.NewGuard(codec, store),
		log:   log,
	}
}

// Handler returns the full route table wrapped in shared middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/signin", s.handleSignin)
	mux.HandleFunc("POST /auth/signout", s.requireAuth(s.handleSignout))

	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /users/whoami", s.requireAuth(s.handleWhoami))
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)

	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("POST /rooms", s.requireAuth(s.handleCreateRoom))
	mux.HandleFunc("GET /rooms/states", s.requireAuth(s.handleRoomStates))
	mux.HandleFunc("GET /rooms/states/events", s.requireAuth(s.handleRoomStateEvents))
	mux.HandleFunc("POST /rooms/states/{room_id}", s.requireAuth(s.handleMarkRoomSeen))
	mux.HandleFunc("GET /rooms/{id}", s.handleGetRoom)

	mux.HandleFunc("POST /messages/send", s.requireAuth(s.handleSend))
	mux.HandleFunc("GET /messages/events/{room_id}", s.requireAuth(s.handleMessageEvents))
	mux.HandleFunc("GET /messages/{room_id}", s.requireAuth(s.handleHistory))

	return s.logging(mux)
}

// Run serves until the context is canceled, then shuts down gracefully.
// The hub is closed first so live streams terminate and Shutdown can
// drain their connections.
func (s *Server) Run(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Hub exposes the broadcast hub, used by tests to observe fan-out.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}
