package ws

import (
	"encoding/json"

	"github.com/neves-nvs/santorini-sub000/internal/board"
)

// Envelope is the wire shape of every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> server payloads.

type CreateGamePayload struct {
	Capacity int `json:"capacity"`
}

// GameRefPayload covers join_game, subscribe_game and leave_game.
type GameRefPayload struct {
	GameID string `json:"gameId"`
}

type SetReadyPayload struct {
	GameID  string `json:"gameId"`
	IsReady bool   `json:"isReady"`
}

type MakeMovePayload struct {
	GameID string     `json:"gameId"`
	Move   board.Move `json:"move"`
}

// Server -> client payloads not produced by the room broadcaster.

type ErrorPayload struct {
	Message string `json:"message"`
}

func envelope(typ string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	data, _ := json.Marshal(Envelope{Type: typ, Payload: raw})
	return data
}

func errorEnvelope(msg string) []byte {
	return envelope("error", ErrorPayload{Message: msg})
}
