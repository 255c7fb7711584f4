package ws

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/neves-nvs/santorini-sub000/internal/auth"
	"github.com/neves-nvs/santorini-sub000/internal/game"
	"github.com/neves-nvs/santorini-sub000/internal/logging"
)

// Server upgrades HTTP requests to websocket sessions and keeps at most one
// live session per identity.
type Server struct {
	hub  *game.Hub
	auth auth.Authenticator

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewServer wires the session manager to a room hub and an authenticator.
func NewServer(hub *game.Hub, authn auth.Authenticator) *Server {
	return &Server{
		hub:  hub,
		auth: authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[uuid.UUID]*Session),
	}
}

// HandleWS authenticates and upgrades a connection. Unauthenticated
// attempts are rejected before any socket work happens.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debugf("ws upgrade failed for %s: %v", user.ID, err)
		return
	}

	sess := newSession(s, conn, user)
	s.register(sess)
	logging.Debugf("ws session %s opened for %s (%s)", sess.id, user.Name, user.ID)

	go sess.writePump()
	sess.readPump()
}

// TokenFromRequest extracts the session token from the token query
// parameter or an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// register installs sess as the live session for its identity. An earlier
// session for the same identity is superseded: its subscriptions go away
// but its seats survive, and no auto-leave runs for it.
func (s *Server) register(sess *Session) {
	s.mu.Lock()
	old := s.sessions[sess.user.ID]
	s.sessions[sess.user.ID] = sess
	s.mu.Unlock()

	if old != nil {
		old.supersede()
	}
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	if s.sessions[sess.user.ID] == sess {
		delete(s.sessions, sess.user.ID)
	}
	s.mu.Unlock()
}
