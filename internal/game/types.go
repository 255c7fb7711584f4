package game

import (
	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/board"
)

// Status is a room's lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
)

// Phase is the sub-state of an in-progress game.
type Phase string

const (
	PhaseNone     Phase = "none"
	PhasePlacing  Phase = "placing"
	PhaseMoving   Phase = "moving"
	PhaseBuilding Phase = "building"
)

// Win reasons recorded on completion.
const (
	WinReasonCondition = "win_condition"
	WinReasonTrapped   = "trapped"
)

// Seat binds one user identity to a slot in a room. Immutable after join
// except for readiness and elimination.
type Seat struct {
	UserID     uuid.UUID
	Name       string
	Ready      bool
	Eliminated bool
}

// ReadyStatus is the result of a SetReady call.
type ReadyStatus struct {
	Ready       bool `json:"ready"`
	AllReady    bool `json:"allReady"`
	GameStarted bool `json:"gameStarted"`
}

// PlayerInfo is the per-seat slice of a RoomState.
type PlayerInfo struct {
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Ready         bool   `json:"ready"`
	Eliminated    bool   `json:"eliminated,omitempty"`
	WorkersPlaced int    `json:"workersPlaced"`
}

// CellState is one board cell as pushed to clients. Height is the render
// height: a domed level-3 tower reports 4.
type CellState struct {
	Height   int    `json:"height"`
	Dome     bool   `json:"dome,omitempty"`
	Owner    string `json:"owner,omitempty"`
	WorkerID int    `json:"workerId,omitempty"`
}

// RoomState is the canonical authoritative snapshot broadcast to viewers.
type RoomState struct {
	GameID         string         `json:"gameId"`
	Version        uint64         `json:"version"`
	Status         Status         `json:"status"`
	Phase          Phase          `json:"phase"`
	Capacity       int            `json:"capacity"`
	TurnNumber     int            `json:"turnNumber"`
	ActivePlayerID string         `json:"activePlayerId,omitempty"`
	WinnerID       string         `json:"winnerId,omitempty"`
	WinReason      string         `json:"winReason,omitempty"`
	Players        []PlayerInfo   `json:"players"`
	Board          [][]CellState  `json:"board"`
}

// Projection is the per-viewer view of a RoomState. The active player's
// projection carries YourTurn plus the fresh legal-move set; everyone
// else's carries neither.
type Projection struct {
	RoomState
	YourTurn   bool         `json:"yourTurn"`
	LegalMoves []board.Move `json:"legalMoves,omitempty"`
}
