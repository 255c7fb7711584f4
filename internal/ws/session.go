package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neves-nvs/santorini-sub000/internal/auth"
	"github.com/neves-nvs/santorini-sub000/internal/game"
	"github.com/neves-nvs/santorini-sub000/internal/logging"
	"github.com/neves-nvs/santorini-sub000/pkg/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Session binds one live connection to one authenticated identity and the
// rooms it watches. Reads and writes run on separate goroutines; room
// updates funnel through the buffered send channel.
type Session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	user   auth.User
	send   chan []byte

	mu         sync.Mutex
	subs       map[string]*game.Watcher
	closed     bool
	superseded bool
}

func newSession(s *Server, conn *websocket.Conn, user auth.User) *Session {
	return &Session{
		id:     utils.RandomHex(8),
		server: s,
		conn:   conn,
		user:   user,
		send:   make(chan []byte, 64),
		subs:   make(map[string]*game.Watcher),
	}
}

// supersede marks this session as replaced by a newer connection of the
// same identity and closes it. Cleanup then skips auto-leave so the newer
// connection keeps the seats.
func (s *Session) supersede() {
	s.mu.Lock()
	s.superseded = true
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *Session) readPump() {
	defer s.cleanup()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(data)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues an outbound message without ever blocking the caller.
func (s *Session) enqueue(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

// dispatch routes one inbound envelope. Malformed or unknown messages get
// an error reply and never terminate the connection.
func (s *Session) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logging.Debugf("session %s: malformed message: %v", s.id, err)
		s.enqueue(errorEnvelope("malformed message"))
		return
	}

	switch env.Type {
	case "ping":
		s.enqueue(envelope("pong", nil))
	case "create_game":
		s.handleCreateGame(env.Payload)
	case "join_game":
		s.handleJoinGame(env.Payload)
	case "subscribe_game":
		s.handleSubscribeGame(env.Payload)
	case "leave_game":
		s.handleLeaveGame(env.Payload)
	case "set_ready":
		s.handleSetReady(env.Payload)
	case "make_move":
		s.handleMakeMove(env.Payload)
	default:
		logging.Debugf("session %s: unknown message type %q", s.id, env.Type)
		s.enqueue(errorEnvelope("unknown message type"))
	}
}

func (s *Session) handleCreateGame(raw json.RawMessage) {
	p := CreateGamePayload{Capacity: 2}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			s.enqueue(errorEnvelope("malformed payload"))
			return
		}
	}
	room, err := s.server.hub.CreateRoom(s.user.ID, s.user.Name, p.Capacity)
	if err != nil {
		s.enqueue(errorEnvelope(err.Error()))
		return
	}
	s.subscribe(room)
	s.enqueue(envelope("game_created", map[string]any{"gameState": room.ProjectionFor(s.user.ID)}))
}

func (s *Session) handleJoinGame(raw json.RawMessage) {
	room, ok := s.roomFromRef(raw)
	if !ok {
		return
	}
	if _, _, err := room.Join(s.user.ID, s.user.Name); err != nil {
		s.enqueue(errorEnvelope(err.Error()))
		return
	}
	s.subscribe(room)
	s.enqueue(envelope("game_joined", map[string]any{"gameState": room.ProjectionFor(s.user.ID)}))
}

func (s *Session) handleSubscribeGame(raw json.RawMessage) {
	room, ok := s.roomFromRef(raw)
	if !ok {
		return
	}
	// Subscribe queues the current projection itself.
	s.subscribe(room)
}

func (s *Session) handleLeaveGame(raw json.RawMessage) {
	room, ok := s.roomFromRef(raw)
	if !ok {
		return
	}
	if _, err := room.Leave(s.user.ID); err != nil {
		s.enqueue(errorEnvelope(err.Error()))
		return
	}
	s.unsubscribe(room)
}

func (s *Session) handleSetReady(raw json.RawMessage) {
	var p SetReadyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.enqueue(errorEnvelope("malformed payload"))
		return
	}
	room, ok := s.lookupRoom(p.GameID)
	if !ok {
		return
	}
	status, err := room.SetReady(s.user.ID, p.IsReady)
	if err != nil {
		s.enqueue(errorEnvelope(err.Error()))
		return
	}
	s.enqueue(envelope("ready_status_update", status))
}

func (s *Session) handleMakeMove(raw json.RawMessage) {
	var p MakeMovePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.enqueue(errorEnvelope("malformed payload"))
		return
	}
	room, ok := s.lookupRoom(p.GameID)
	if !ok {
		return
	}
	if err := room.Submit(s.user.ID, p.Move); err != nil {
		s.enqueue(errorEnvelope(err.Error()))
	}
	// Success is announced by the room broadcast.
}

func (s *Session) roomFromRef(raw json.RawMessage) (*game.Room, bool) {
	var p GameRefPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.enqueue(errorEnvelope("malformed payload"))
		return nil, false
	}
	return s.lookupRoom(p.GameID)
}

func (s *Session) lookupRoom(id string) (*game.Room, bool) {
	room, ok := s.server.hub.Get(id)
	if !ok {
		s.enqueue(errorEnvelope(game.ErrRoomNotFound.Error()))
		return nil, false
	}
	return room, true
}

// subscribe attaches this session to a room's broadcast, once.
func (s *Session) subscribe(room *game.Room) {
	s.mu.Lock()
	if _, ok := s.subs[room.ID]; ok {
		s.mu.Unlock()
		return
	}
	w := room.Subscribe(s.user.ID)
	s.subs[room.ID] = w
	s.mu.Unlock()

	go func() {
		for msg := range w.C() {
			s.enqueue(msg)
		}
	}()
}

func (s *Session) unsubscribe(room *game.Room) {
	s.mu.Lock()
	w, ok := s.subs[room.ID]
	if ok {
		delete(s.subs, room.ID)
	}
	s.mu.Unlock()
	if ok {
		room.Unsubscribe(w)
	}
}

// cleanup runs when the read loop ends. Subscriptions are dropped; seats in
// still-waiting rooms whose owner never confirmed readiness are released.
// Ready or in-game seats survive for reconnection, and a superseded session
// releases nothing at all.
func (s *Session) cleanup() {
	s.server.unregister(s)

	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*game.Watcher)
	superseded := s.superseded
	s.mu.Unlock()

	for roomID, w := range subs {
		room, ok := s.server.hub.Get(roomID)
		if !ok {
			continue
		}
		room.Unsubscribe(w)
		if !superseded {
			room.AutoLeave(s.user.ID)
		}
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.send)
	_ = s.conn.Close()
	logging.Debugf("ws session %s closed for %s", s.id, s.user.ID)
}
