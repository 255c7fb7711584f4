package board

// MoveType tags the variants of the Move union.
type MoveType string

const (
	PlaceWorker MoveType = "place_worker"
	MoveWorker  MoveType = "move_worker"
	BuildBlock  MoveType = "build_block"
	BuildDome   MoveType = "build_dome"
)

// Move is the single transient action a player proposes on their turn.
// Which fields matter depends on Type: place_worker uses WorkerID and
// Position, move_worker uses WorkerID, From and To, and the build variants
// use Position only.
type Move struct {
	Type     MoveType  `json:"type"`
	WorkerID int       `json:"workerId,omitempty"`
	Position *Position `json:"position,omitempty"`
	From     *Position `json:"from,omitempty"`
	To       *Position `json:"to,omitempty"`
}

// IsBuild reports whether the move is one of the two build variants.
func (m Move) IsBuild() bool {
	return m.Type == BuildBlock || m.Type == BuildDome
}

// Build pairs a target cell with the build variant legal there.
type Build struct {
	Position Position `json:"position"`
	Type     MoveType `json:"type"`
}
