package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/auth"
	"github.com/neves-nvs/santorini-sub000/internal/game"
	"github.com/neves-nvs/santorini-sub000/internal/storage"
	"github.com/neves-nvs/santorini-sub000/internal/ws"
)

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	Hub   *game.Hub
	Store *storage.Store
	Auth  auth.Authenticator
	WS    *ws.Server
}

// NewHandler creates a new handler instance.
func NewHandler(hub *game.Hub, store *storage.Store, authn auth.Authenticator, wsServer *ws.Server) *Handler {
	return &Handler{Hub: hub, Store: store, Auth: authn, WS: wsServer}
}

// HandleIndex serves a plain info line on the root path.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Santorini game server.\nPOST /games to create a room, then connect to /ws?token=...\n"))
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createGameRequest struct {
	Capacity int `json:"capacity"`
}

// HandleNewGame creates a room for the authenticated caller and seats them
// on it.
func (h *Handler) HandleNewGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	req := createGameRequest{Capacity: 2}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
			return
		}
	}

	room, err := h.Hub.CreateRoom(user.ID, user.Name, req.Capacity)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	state := room.Snapshot()
	WriteJSON(w, http.StatusCreated, map[string]any{
		"ok":       true,
		"id":       state.GameID,
		"capacity": state.Capacity,
		"status":   state.Status,
	})
}

// HandleGame returns the generic (spectator) snapshot for a room. Finished
// rooms already swept from memory fall back to the persisted record.
func (h *Handler) HandleGame(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/games/")
	if id == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing game id"})
		return
	}

	if room, ok := h.Hub.Get(id); ok {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": room.Snapshot()})
		return
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": game.ErrRoomNotFound.Error()})
		return
	}
	persisted, err := h.Store.LoadGame(r.Context(), uid)
	if err != nil {
		WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": game.ErrRoomNotFound.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"state": map[string]any{
			"gameId":     persisted.Game.ID.String(),
			"version":    persisted.Game.Version,
			"status":     persisted.Game.Status,
			"phase":      persisted.Game.Phase,
			"capacity":   persisted.Game.Capacity,
			"turnNumber": persisted.Game.TurnNumber,
			"winnerId":   persisted.Game.WinnerID,
			"winReason":  persisted.Game.WinReason,
		},
	})
}

// HandleStats exposes aggregate game counts.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.FetchStats(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "stats unavailable"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": stats})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, err := h.Auth.Authenticate(r.Context(), ws.TokenFromRequest(r))
	if err != nil {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
		return auth.User{}, false
	}
	return user, true
}
