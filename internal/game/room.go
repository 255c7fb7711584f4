package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/board"
	"github.com/neves-nvs/santorini-sub000/internal/logging"
	"github.com/neves-nvs/santorini-sub000/internal/storage"
)

// Room owns all mutable state for one game. Every mutation happens under Mu,
// so operations on the same room are totally ordered while different rooms
// proceed in parallel. Broadcast projections are computed under the same
// lock as the write that produced them.
type Room struct {
	Mu sync.Mutex

	ID       string
	Capacity int

	Status     Status
	Phase      Phase
	Seats      []*Seat
	ActiveSeat int // index into Seats, -1 outside in_progress
	TurnNumber int
	Version    uint64
	Board      board.Board
	WinnerID   string
	WinReason  string
	LastSeen   time.Time

	// movedTo is the cell of the worker moved this turn; builds must land
	// in its 8-neighborhood. Nil outside the building phase.
	movedTo *board.Position

	watchers map[*Watcher]struct{}

	uid   uuid.UUID
	store *storage.Store
}

func newRoom(uid uuid.UUID, capacity int, store *storage.Store) *Room {
	return &Room{
		ID:         uid.String(),
		Capacity:   capacity,
		Status:     StatusWaiting,
		Phase:      PhaseNone,
		ActiveSeat: -1,
		Board:      board.New(),
		LastSeen:   time.Now(),
		watchers:   make(map[*Watcher]struct{}),
		uid:        uid,
		store:      store,
	}
}

// Touch updates the last activity timestamp.
func (r *Room) Touch() {
	r.Mu.Lock()
	r.LastSeen = time.Now()
	r.Mu.Unlock()
}

// Join seats userID in the room. The capacity check and the seat append are
// one critical section, so concurrent joins can never overfill the room.
// Joining a room the caller already occupies is idempotent.
func (r *Room) Join(userID uuid.UUID, name string) (seatIdx int, rejoined bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.LastSeen = time.Now()

	if idx := r.seatIndexLocked(userID); idx >= 0 {
		return idx, true, nil
	}
	if r.Status != StatusWaiting && r.Status != StatusReady {
		return -1, false, ErrGameStarted
	}
	if len(r.Seats) >= r.Capacity {
		return -1, false, ErrRoomFull
	}

	r.Seats = append(r.Seats, &Seat{UserID: userID, Name: name})
	idx := len(r.Seats) - 1
	r.Version++
	if len(r.Seats) == r.Capacity {
		r.Status = StatusReady
	}

	r.persistSeatLocked(userID, idx)
	r.persistStateLocked()
	r.broadcastEventLocked("player_joined", map[string]any{
		"gameId":      r.ID,
		"userId":      userID.String(),
		"playerCount": len(r.Seats),
	})
	r.broadcastStateLocked()
	return idx, false, nil
}

// Leave frees userID's seat. Only meaningful before the game starts; once
// in progress the seat is retained for reconnection and Leave is a no-op.
func (r *Room) Leave(userID uuid.UUID) (left bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.leaveLocked(userID)
}

func (r *Room) leaveLocked(userID uuid.UUID) (left bool, err error) {
	r.LastSeen = time.Now()

	idx := r.seatIndexLocked(userID)
	if idx < 0 {
		return false, ErrNotSeated
	}
	if r.Status != StatusWaiting && r.Status != StatusReady {
		return false, nil
	}

	r.Seats = append(r.Seats[:idx], r.Seats[idx+1:]...)
	r.Version++
	if r.Status == StatusReady {
		r.Status = StatusWaiting
	}
	if len(r.Seats) == 0 {
		r.Status = StatusAborted
	}

	if r.store != nil {
		store, uid := r.store, r.uid
		go func() { _ = store.ReleaseSeat(context.Background(), uid, userID) }()
	}
	r.persistStateLocked()
	r.broadcastEventLocked("player_left", map[string]any{
		"gameId":      r.ID,
		"userId":      userID.String(),
		"playerCount": len(r.Seats),
	})
	r.broadcastStateLocked()
	return true, nil
}

// AutoLeave releases userID's seat on disconnect, but only while the game
// has not started and the seat never confirmed readiness. A ready seat, or
// any seat in an active game, is retained so the same identity can resume
// it on reconnect.
func (r *Room) AutoLeave(userID uuid.UUID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx := r.seatIndexLocked(userID)
	if idx < 0 || (r.Status != StatusWaiting && r.Status != StatusReady) || r.Seats[idx].Ready {
		return false
	}
	left, err := r.leaveLocked(userID)
	return err == nil && left
}

// SetReady records userID's readiness. The instant every seat of a full
// room is ready, the game starts; at most once. Repeated SetReady(true)
// calls after start are no-ops reporting GameStarted.
func (r *Room) SetReady(userID uuid.UUID, ready bool) (ReadyStatus, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.LastSeen = time.Now()

	idx := r.seatIndexLocked(userID)
	if idx < 0 {
		return ReadyStatus{}, ErrNotSeated
	}

	if r.Status != StatusWaiting && r.Status != StatusReady {
		if !ready {
			return ReadyStatus{}, ErrGameStarted
		}
		return ReadyStatus{Ready: true, AllReady: true, GameStarted: true}, nil
	}

	seat := r.Seats[idx]
	if seat.Ready != ready {
		seat.Ready = ready
		r.Version++
	}

	all := r.allReadyLocked()
	started := false
	if all && r.Status == StatusReady {
		r.startLocked()
		started = true
	}

	r.persistStateLocked()
	r.broadcastStateLocked()
	return ReadyStatus{Ready: seat.Ready, AllReady: all, GameStarted: started}, nil
}

// Submit validates and applies one move for userID. On any error no state
// changes and Version does not advance. On success the board, phase and
// turn advance atomically with any win or trapped outcome, and the new
// state is broadcast before Submit returns.
func (r *Room) Submit(userID uuid.UUID, mv board.Move) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.LastSeen = time.Now()

	if r.Status != StatusInProgress {
		return ErrWrongPhase
	}
	idx := r.seatIndexLocked(userID)
	if idx < 0 {
		return ErrNotSeated
	}
	if idx != r.ActiveSeat {
		return ErrNotYourTurn
	}
	if err := r.checkPhaseLocked(mv); err != nil {
		return err
	}

	owner := userID.String()
	won := board.CheckWin(r.Board, mv)
	next, err := board.Apply(r.Board, owner, mv)
	if err != nil {
		return err
	}

	// Commit.
	r.Board = next
	r.Version++
	r.persistMoveLocked(userID, mv)

	switch mv.Type {
	case board.PlaceWorker:
		r.afterPlaceLocked()
	case board.MoveWorker:
		if won {
			r.completeLocked(idx, WinReasonCondition)
			break
		}
		r.Phase = PhaseBuilding
		r.movedTo = mv.To
		if !board.CanBuildAround(r.Board, *mv.To) {
			// The mover cannot finish the turn.
			r.trapLocked(idx)
		}
	case board.BuildBlock, board.BuildDome:
		r.endTurnLocked()
	}

	r.persistStateLocked()
	r.broadcastStateLocked()
	return nil
}

// Snapshot returns the canonical state for the read path.
func (r *Room) Snapshot() RoomState {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotLocked()
}

// ProjectionFor returns the state as seen by userID, including the legal
// moves when it is their turn.
func (r *Room) ProjectionFor(userID uuid.UUID) Projection {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.projectionLocked(r.snapshotLocked(), userID)
}

// Abort terminates the room early, outside any win condition.
func (r *Room) Abort() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.Status == StatusCompleted || r.Status == StatusAborted {
		return
	}
	r.Status = StatusAborted
	r.Phase = PhaseNone
	r.ActiveSeat = -1
	r.Version++
	r.persistStateLocked()
	r.broadcastStateLocked()
}

/* ---- internal, all with Mu held ---- */

func (r *Room) seatIndexLocked(userID uuid.UUID) int {
	for i, s := range r.Seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) allReadyLocked() bool {
	if len(r.Seats) != r.Capacity {
		return false
	}
	for _, s := range r.Seats {
		if !s.Ready {
			return false
		}
	}
	return true
}

func (r *Room) startLocked() {
	r.Status = StatusInProgress
	r.Phase = PhasePlacing
	r.ActiveSeat = 0
	r.TurnNumber = 1
	logging.Debugf("room %s started with %d players", r.ID, len(r.Seats))
}

func (r *Room) checkPhaseLocked(mv board.Move) error {
	switch r.Phase {
	case PhasePlacing:
		if mv.Type != board.PlaceWorker {
			return ErrWrongPhase
		}
	case PhaseMoving:
		if mv.Type != board.MoveWorker {
			return ErrWrongPhase
		}
	case PhaseBuilding:
		if !mv.IsBuild() {
			return ErrWrongPhase
		}
		if mv.Position == nil || r.movedTo == nil || !r.movedTo.AdjacentTo(*mv.Position) {
			return fmt.Errorf("%w: build must neighbor the moved worker", board.ErrIllegalPosition)
		}
	default:
		return ErrWrongPhase
	}
	return nil
}

// afterPlaceLocked advances the placement rotation, flipping to the moving
// phase once every seat has both workers down.
func (r *Room) afterPlaceLocked() {
	for _, s := range r.Seats {
		if len(r.Board.WorkerPositions(s.UserID.String())) < board.WorkersPerPlayer {
			r.ActiveSeat = (r.ActiveSeat + 1) % len(r.Seats)
			r.TurnNumber++
			return
		}
	}
	r.Phase = PhaseMoving
	r.ActiveSeat = 0
	r.TurnNumber++
	r.resolveTrappedLocked()
}

// endTurnLocked passes the turn after a completed build.
func (r *Room) endTurnLocked() {
	r.Phase = PhaseMoving
	r.movedTo = nil
	r.ActiveSeat = r.nextLiveSeatLocked(r.ActiveSeat)
	r.TurnNumber++
	r.resolveTrappedLocked()
}

func (r *Room) nextLiveSeatLocked(from int) int {
	for i := 1; i <= len(r.Seats); i++ {
		idx := (from + i) % len(r.Seats)
		if !r.Seats[idx].Eliminated {
			return idx
		}
	}
	return from
}

func (r *Room) liveSeatsLocked() []int {
	var live []int
	for i, s := range r.Seats {
		if !s.Eliminated {
			live = append(live, i)
		}
	}
	return live
}

// resolveTrappedLocked eliminates or defeats the about-to-move player while
// they have no legal move. Chained eliminations resolve within the same
// commit, so clients never see an intermediate turn for a finished game.
func (r *Room) resolveTrappedLocked() {
	for r.Status == StatusInProgress &&
		board.CheckTrapped(r.Board, r.Seats[r.ActiveSeat].UserID.String()) {
		r.trapLocked(r.ActiveSeat)
	}
}

// trapLocked handles seat idx being unable to act. In a two-player room the
// opponent wins outright; in larger rooms the seat is eliminated and play
// continues until one seat survives.
func (r *Room) trapLocked(idx int) {
	live := r.liveSeatsLocked()
	if len(live) == 2 {
		winner := live[0]
		if winner == idx {
			winner = live[1]
		}
		r.completeLocked(winner, WinReasonTrapped)
		return
	}

	seat := r.Seats[idx]
	seat.Eliminated = true
	r.Board = r.Board.RemoveWorkers(seat.UserID.String())
	logging.Debugf("room %s: player %s eliminated (trapped)", r.ID, seat.UserID)

	live = r.liveSeatsLocked()
	if len(live) == 1 {
		r.completeLocked(live[0], WinReasonTrapped)
		return
	}
	r.Phase = PhaseMoving
	r.movedTo = nil
	r.ActiveSeat = r.nextLiveSeatLocked(idx)
	r.TurnNumber++
}

func (r *Room) completeLocked(winnerIdx int, reason string) {
	r.Status = StatusCompleted
	r.Phase = PhaseNone
	r.movedTo = nil
	r.ActiveSeat = -1
	r.WinnerID = r.Seats[winnerIdx].UserID.String()
	r.WinReason = reason
	logging.Debugf("room %s completed: winner=%s reason=%s", r.ID, r.WinnerID, reason)

	if r.store != nil {
		store, uid := r.store, r.uid
		winner := r.Seats[winnerIdx].UserID
		go func() {
			_ = store.CompleteGame(context.Background(), uid, &winner, reason, time.Now())
		}()
	}
}

/* ---- persistence (write-behind; the in-memory commit is authoritative) ---- */

func (r *Room) persistSeatLocked(userID uuid.UUID, idx int) {
	if r.store == nil {
		return
	}
	store, uid := r.store, r.uid
	go func() { _ = store.EnsureSeat(context.Background(), uid, userID, idx) }()
}

func (r *Room) persistStateLocked() {
	if r.store == nil {
		return
	}
	boardJSON, _ := json.Marshal(r.Board)
	upd := storage.GameStateUpdate{
		Status:     string(r.Status),
		Phase:      string(r.Phase),
		Version:    r.Version,
		TurnNumber: r.TurnNumber,
		Board:      string(boardJSON),
		LastSeen:   r.LastSeen,
	}
	if r.ActiveSeat >= 0 {
		id := r.Seats[r.ActiveSeat].UserID
		upd.ActiveUserID = &id
	}
	store, uid := r.store, r.uid
	go func() { _ = store.SaveGameState(context.Background(), uid, upd) }()
}

func (r *Room) persistMoveLocked(userID uuid.UUID, mv board.Move) {
	if r.store == nil {
		return
	}
	data, _ := json.Marshal(mv)
	store, uid := r.store, r.uid
	number := r.TurnNumber
	go func() {
		_ = store.RecordMove(context.Background(), uid, userID, number, string(mv.Type), string(data))
	}()
}
