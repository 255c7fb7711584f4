package game

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/board"
)

// Watcher is one subscriber's delivery channel for a room. Sends are
// non-blocking: a slow or dead watcher drops updates instead of holding up
// the room.
type Watcher struct {
	UserID uuid.UUID
	ch     chan []byte
	lastFP uint64
}

// C is the stream of marshaled server envelopes for this watcher.
func (w *Watcher) C() <-chan []byte { return w.ch }

// Subscribe registers a watcher for userID and immediately queues the
// current projection so a new viewer never starts blind.
func (r *Room) Subscribe(userID uuid.UUID) *Watcher {
	w := &Watcher{UserID: userID, ch: make(chan []byte, 16)}
	r.Mu.Lock()
	r.watchers[w] = struct{}{}
	state := r.snapshotLocked()
	fp := fingerprint(state)
	if payload, ok := r.projectionEnvelopeLocked(state, w); ok {
		select {
		case w.ch <- payload:
			w.lastFP = fp
		default:
		}
	}
	r.Mu.Unlock()
	return w
}

// Unsubscribe removes the watcher and closes its channel. Every send to
// the channel happens under the room lock, as does the close, so no send
// can race it. Safe to call more than once.
func (r *Room) Unsubscribe(w *Watcher) {
	r.Mu.Lock()
	if _, ok := r.watchers[w]; ok {
		delete(r.watchers, w)
		close(w.ch)
	}
	r.Mu.Unlock()
}

// WatcherCount reports the number of live subscriptions.
func (r *Room) WatcherCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.watchers)
}

type serverMsg struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func marshalMsg(typ string, payload any) []byte {
	data, _ := json.Marshal(serverMsg{Type: typ, Payload: payload})
	return data
}

type stateUpdate struct {
	GameID  string     `json:"gameId"`
	Version uint64     `json:"version"`
	State   Projection `json:"state"`
}

// broadcastStateLocked pushes the per-viewer projection of the current
// state to every watcher, skipping watchers that already hold an identical
// revision. The fingerprint only advances on successful enqueue, so a
// dropped update is retried on the next mutation.
func (r *Room) broadcastStateLocked() {
	state := r.snapshotLocked()
	fp := fingerprint(state)
	for w := range r.watchers {
		if w.lastFP == fp {
			continue
		}
		payload, ok := r.projectionEnvelopeLocked(state, w)
		if !ok {
			continue
		}
		select {
		case w.ch <- payload:
			w.lastFP = fp
		default:
		}
	}
}

func (r *Room) projectionEnvelopeLocked(state RoomState, w *Watcher) ([]byte, bool) {
	proj := r.projectionLocked(state, w.UserID)
	return marshalMsg("game_state_update", stateUpdate{
		GameID:  state.GameID,
		Version: state.Version,
		State:   proj,
	}), true
}

// broadcastEventLocked delivers a one-off event (join/leave) to every
// watcher. Events are not deduplicated; only state projections are.
func (r *Room) broadcastEventLocked(typ string, payload any) {
	data := marshalMsg(typ, payload)
	for w := range r.watchers {
		select {
		case w.ch <- data:
		default:
		}
	}
}

func (r *Room) snapshotLocked() RoomState {
	players := make([]PlayerInfo, len(r.Seats))
	for i, s := range r.Seats {
		players[i] = PlayerInfo{
			UserID:        s.UserID.String(),
			Name:          s.Name,
			Ready:         s.Ready,
			Eliminated:    s.Eliminated,
			WorkersPlaced: len(r.Board.WorkerPositions(s.UserID.String())),
		}
	}

	cells := make([][]CellState, board.Size)
	for y := 0; y < board.Size; y++ {
		cells[y] = make([]CellState, board.Size)
		for x := 0; x < board.Size; x++ {
			c := r.Board.Cells[y][x]
			cs := CellState{Height: c.RenderHeight(), Dome: c.Dome}
			if c.Worker != nil {
				cs.Owner = c.Worker.Owner
				cs.WorkerID = c.Worker.ID
			}
			cells[y][x] = cs
		}
	}

	state := RoomState{
		GameID:     r.ID,
		Version:    r.Version,
		Status:     r.Status,
		Phase:      r.Phase,
		Capacity:   r.Capacity,
		TurnNumber: r.TurnNumber,
		WinnerID:   r.WinnerID,
		WinReason:  r.WinReason,
		Players:    players,
		Board:      cells,
	}
	if r.ActiveSeat >= 0 {
		state.ActivePlayerID = r.Seats[r.ActiveSeat].UserID.String()
	}
	return state
}

func (r *Room) projectionLocked(state RoomState, userID uuid.UUID) Projection {
	proj := Projection{RoomState: state}
	if r.Status == StatusInProgress && r.ActiveSeat >= 0 &&
		r.Seats[r.ActiveSeat].UserID == userID {
		proj.YourTurn = true
		proj.LegalMoves = r.legalMovesLocked()
	}
	return proj
}

// legalMovesLocked enumerates every concrete move available to the active
// player in the current phase, computed fresh from the board.
func (r *Room) legalMovesLocked() []board.Move {
	if r.ActiveSeat < 0 {
		return nil
	}
	owner := r.Seats[r.ActiveSeat].UserID.String()
	var out []board.Move

	switch r.Phase {
	case PhasePlacing:
		placements := board.LegalPlacements(r.Board)
		for id := 1; id <= board.WorkersPerPlayer; id++ {
			if _, placed := r.Board.WorkerPosition(owner, id); placed {
				continue
			}
			for i := range placements {
				p := placements[i]
				out = append(out, board.Move{Type: board.PlaceWorker, WorkerID: id, Position: &p})
			}
		}
	case PhaseMoving:
		for id := 1; id <= board.WorkersPerPlayer; id++ {
			from, placed := r.Board.WorkerPosition(owner, id)
			if !placed {
				continue
			}
			f := from
			for _, to := range board.LegalMoves(r.Board, from) {
				t := to
				out = append(out, board.Move{Type: board.MoveWorker, WorkerID: id, From: &f, To: &t})
			}
		}
	case PhaseBuilding:
		if r.movedTo == nil {
			return nil
		}
		for _, b := range board.LegalBuilds(r.Board, *r.movedTo) {
			p := b.Position
			out = append(out, board.Move{Type: b.Type, Position: &p})
		}
	}
	return out
}

// fingerprint hashes the fields that matter for UI correctness: room id,
// version, status, phase, active player, turn number, player count and
// board contents. Identical fingerprints mean a projection would be
// redundant for a watcher that already received it.
func fingerprint(s RoomState) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%d|%d|", s.GameID, s.Version, s.Status, s.Phase, s.ActivePlayerID, s.TurnNumber, len(s.Players))
	for _, row := range s.Board {
		for _, c := range row {
			fmt.Fprintf(h, "%d,%t,%s,%d;", c.Height, c.Dome, c.Owner, c.WorkerID)
		}
	}
	return h.Sum64()
}
