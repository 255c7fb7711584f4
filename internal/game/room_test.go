package game

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/board"
)

// helper building a room with n seated players, not yet ready
func newTestRoom(t *testing.T, capacity int) (*Room, []uuid.UUID) {
	t.Helper()
	r := newRoom(uuid.New(), capacity, nil)
	users := make([]uuid.UUID, capacity)
	for i := range users {
		users[i] = uuid.New()
		if _, _, err := r.Join(users[i], "player"); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	return r, users
}

// helper driving a full room into the placing phase
func startTestRoom(t *testing.T, capacity int) (*Room, []uuid.UUID) {
	t.Helper()
	r, users := newTestRoom(t, capacity)
	for _, u := range users {
		if _, err := r.SetReady(u, true); err != nil {
			t.Fatalf("ready: %v", err)
		}
	}
	if r.Status != StatusInProgress || r.Phase != PhasePlacing {
		t.Fatalf("room did not start: status=%s phase=%s", r.Status, r.Phase)
	}
	return r, users
}

func placeAt(x, y int) *board.Position { return &board.Position{X: x, Y: y} }

func TestJoinIdempotent(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)
	u := uuid.New()
	idx1, rejoined, err := r.Join(u, "p")
	if err != nil || rejoined {
		t.Fatalf("first join: idx=%d rejoined=%v err=%v", idx1, rejoined, err)
	}
	idx2, rejoined, err := r.Join(u, "p")
	if err != nil || !rejoined || idx2 != idx1 {
		t.Fatalf("rejoin should return the same seat: idx=%d rejoined=%v err=%v", idx2, rejoined, err)
	}
	if len(r.Seats) != 1 {
		t.Fatalf("rejoin consumed a seat: %d", len(r.Seats))
	}
}

func TestJoinFullRoomRejected(t *testing.T) {
	r, _ := newTestRoom(t, 2)
	before := r.Snapshot().Version
	if _, _, err := r.Join(uuid.New(), "late"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if len(r.Seats) != 2 {
		t.Fatalf("seat count changed: %d", len(r.Seats))
	}
	if r.Snapshot().Version != before {
		t.Fatalf("version advanced on rejected join")
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	r, users := newTestRoom(t, 3)
	// free one seat so capacity is not the reason for rejection
	if _, err := r.Leave(users[2]); err != nil {
		t.Fatalf("leave: %v", err)
	}
	r.Mu.Lock()
	r.Status = StatusInProgress
	r.Mu.Unlock()
	if _, _, err := r.Join(uuid.New(), "late"); !errors.Is(err, ErrGameStarted) {
		t.Fatalf("expected ErrGameStarted, got %v", err)
	}
}

func TestSetReadyIdempotentAndStartsOnce(t *testing.T) {
	r, users := newTestRoom(t, 2)

	st, err := r.SetReady(users[0], true)
	if err != nil || st.Ready != true || st.AllReady || st.GameStarted {
		t.Fatalf("first ready: %+v err=%v", st, err)
	}
	again, err := r.SetReady(users[0], true)
	if err != nil || again != st {
		t.Fatalf("repeated ready diverged: %+v vs %+v err=%v", again, st, err)
	}

	st, err = r.SetReady(users[1], true)
	if err != nil || !st.AllReady || !st.GameStarted {
		t.Fatalf("last ready should start the game: %+v err=%v", st, err)
	}
	if r.Status != StatusInProgress || r.Phase != PhasePlacing || r.TurnNumber != 1 {
		t.Fatalf("bad start state: %s/%s turn=%d", r.Status, r.Phase, r.TurnNumber)
	}

	// After start, SetReady(true) is a no-op reporting gameStarted.
	st, err = r.SetReady(users[0], true)
	if err != nil || !st.GameStarted {
		t.Fatalf("post-start ready: %+v err=%v", st, err)
	}
	if _, err := r.SetReady(users[0], false); !errors.Is(err, ErrGameStarted) {
		t.Fatalf("unready after start should fail, got %v", err)
	}
}

func TestPlacementRotationEntersMoving(t *testing.T) {
	r, users := startTestRoom(t, 2)

	steps := []struct {
		user uuid.UUID
		id   int
		x, y int
	}{
		{users[0], 1, 2, 2},
		{users[1], 1, 4, 4},
		{users[0], 2, 2, 3},
		{users[1], 2, 4, 3},
	}
	for i, s := range steps {
		err := r.Submit(s.user, board.Move{Type: board.PlaceWorker, WorkerID: s.id, Position: placeAt(s.x, s.y)})
		if err != nil {
			t.Fatalf("placement %d: %v", i, err)
		}
	}

	if r.Phase != PhaseMoving {
		t.Fatalf("expected moving phase, got %s", r.Phase)
	}
	if got := r.Snapshot().ActivePlayerID; got != users[0].String() {
		t.Fatalf("expected P1 active, got %s", got)
	}
}

func TestSubmitOutOfTurn(t *testing.T) {
	r, users := startTestRoom(t, 2)
	before := r.Snapshot().Version

	err := r.Submit(users[1], board.Move{Type: board.PlaceWorker, WorkerID: 1, Position: placeAt(0, 0)})
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if r.Snapshot().Version != before {
		t.Fatalf("version advanced on rejected move")
	}
}

func TestSubmitWrongPhase(t *testing.T) {
	r, users := startTestRoom(t, 2)
	from, to := board.Position{X: 2, Y: 2}, board.Position{X: 2, Y: 3}
	err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to})
	if !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase during placing, got %v", err)
	}
}

func TestMoveThenBuildPassesTurn(t *testing.T) {
	r, users := startTestRoom(t, 2)
	r.Mu.Lock()
	r.Phase = PhaseMoving
	r.Board = place4(r.Board, users)
	r.Mu.Unlock()

	from, to := board.Position{X: 0, Y: 0}, board.Position{X: 1, Y: 1}
	if err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if r.Phase != PhaseBuilding {
		t.Fatalf("expected building phase, got %s", r.Phase)
	}
	// Same player must build; the opponent may not act.
	if err := r.Submit(users[1], board.Move{Type: board.BuildBlock, Position: placeAt(0, 0)}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("opponent build should be ErrNotYourTurn, got %v", err)
	}
	// Building on the vacated cell is legal.
	if err := r.Submit(users[0], board.Move{Type: board.BuildBlock, Position: placeAt(0, 0)}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Phase != PhaseMoving {
		t.Fatalf("expected moving phase after build, got %s", r.Phase)
	}
	if got := r.Snapshot().ActivePlayerID; got != users[1].String() {
		t.Fatalf("turn did not pass: active=%s", got)
	}
}

func TestBuildMustNeighborMovedWorker(t *testing.T) {
	r, users := startTestRoom(t, 2)
	r.Mu.Lock()
	r.Phase = PhaseMoving
	r.Board = place4(r.Board, users)
	r.Mu.Unlock()

	from, to := board.Position{X: 0, Y: 0}, board.Position{X: 1, Y: 1}
	if err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); err != nil {
		t.Fatalf("move: %v", err)
	}
	afterMove := r.Snapshot().Version
	err := r.Submit(users[0], board.Move{Type: board.BuildBlock, Position: placeAt(4, 4)})
	if !errors.Is(err, board.ErrIllegalPosition) {
		t.Fatalf("distant build should be illegal, got %v", err)
	}
	if r.Snapshot().Version != afterMove {
		t.Fatalf("version advanced on rejected build")
	}
}

func TestWinOnHeightThreeCompletesAtomically(t *testing.T) {
	r, users := startTestRoom(t, 2)
	r.Mu.Lock()
	r.Phase = PhaseMoving
	b := place4(r.Board, users)
	// P1 worker1 stands at (0,0) on level 2; (0,1) is a bare level-3 tower.
	b.Cells[0][0].Height = 2
	b.Cells[1][0].Height = 3
	r.Board = b
	r.Mu.Unlock()

	from, to := board.Position{X: 0, Y: 0}, board.Position{X: 0, Y: 1}
	if err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); err != nil {
		t.Fatalf("winning move rejected: %v", err)
	}
	snap := r.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", snap.Status)
	}
	if snap.WinnerID != users[0].String() || snap.WinReason != WinReasonCondition {
		t.Fatalf("bad winner: %s/%s", snap.WinnerID, snap.WinReason)
	}
	if snap.ActivePlayerID != "" || snap.Phase != PhaseNone {
		t.Fatalf("completed game still advertises a turn: active=%q phase=%s", snap.ActivePlayerID, snap.Phase)
	}
	// No further moves accepted.
	if err := r.Submit(users[1], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("move after completion should fail, got %v", err)
	}
}

func TestTrappedOpponentLosesTwoPlayer(t *testing.T) {
	r, users := startTestRoom(t, 2)
	r.Mu.Lock()
	r.Phase = PhaseMoving
	b := board.New()
	// P1 free in the middle.
	b.Cells[2][2].Worker = &board.Worker{Owner: users[0].String(), ID: 1}
	b.Cells[2][3].Worker = &board.Worker{Owner: users[0].String(), ID: 2}
	// P2 walled into the corner; both workers trapped once the turn passes.
	b.Cells[0][0].Worker = &board.Worker{Owner: users[1].String(), ID: 1}
	b.Cells[1][0].Worker = &board.Worker{Owner: users[1].String(), ID: 2}
	for _, p := range []board.Position{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}} {
		b.Cells[p.Y][p.X].Height = 3
		b.Cells[p.Y][p.X].Dome = true
	}
	r.Board = b
	r.Mu.Unlock()

	from, to := board.Position{X: 2, Y: 2}, board.Position{X: 3, Y: 3}
	if err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := r.Submit(users[0], board.Move{Type: board.BuildBlock, Position: placeAt(2, 2)}); err != nil {
		t.Fatalf("build: %v", err)
	}

	snap := r.Snapshot()
	if snap.Status != StatusCompleted || snap.WinReason != WinReasonTrapped {
		t.Fatalf("expected trapped completion, got %s/%s", snap.Status, snap.WinReason)
	}
	if snap.WinnerID != users[0].String() {
		t.Fatalf("wrong winner: %s", snap.WinnerID)
	}
}

func TestTrappedPlayerEliminatedInThreePlayerRoom(t *testing.T) {
	r, users := startTestRoom(t, 3)
	r.Mu.Lock()
	r.Phase = PhaseMoving
	b := board.New()
	b.Cells[2][2].Worker = &board.Worker{Owner: users[0].String(), ID: 1}
	b.Cells[3][2].Worker = &board.Worker{Owner: users[0].String(), ID: 2}
	// P2 walled in.
	b.Cells[0][0].Worker = &board.Worker{Owner: users[1].String(), ID: 1}
	b.Cells[1][0].Worker = &board.Worker{Owner: users[1].String(), ID: 2}
	for _, p := range []board.Position{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}} {
		b.Cells[p.Y][p.X].Height = 3
		b.Cells[p.Y][p.X].Dome = true
	}
	// P3 free.
	b.Cells[4][4].Worker = &board.Worker{Owner: users[2].String(), ID: 1}
	b.Cells[4][3].Worker = &board.Worker{Owner: users[2].String(), ID: 2}
	r.Board = b
	r.Mu.Unlock()

	from, to := board.Position{X: 2, Y: 2}, board.Position{X: 3, Y: 3}
	if err := r.Submit(users[0], board.Move{Type: board.MoveWorker, WorkerID: 1, From: &from, To: &to}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := r.Submit(users[0], board.Move{Type: board.BuildBlock, Position: placeAt(2, 2)}); err != nil {
		t.Fatalf("build: %v", err)
	}

	snap := r.Snapshot()
	if snap.Status != StatusInProgress {
		t.Fatalf("three-player game should continue, got %s", snap.Status)
	}
	if !snap.Players[1].Eliminated {
		t.Fatalf("P2 should be eliminated")
	}
	if snap.ActivePlayerID != users[2].String() {
		t.Fatalf("turn should skip to P3, got %s", snap.ActivePlayerID)
	}
	if got := len(r.Board.WorkerPositions(users[1].String())); got != 0 {
		t.Fatalf("eliminated player's workers still on board: %d", got)
	}
}

func TestAutoLeaveReleasesOnlyUnreadySeats(t *testing.T) {
	r, users := newTestRoom(t, 3)
	if _, err := r.SetReady(users[0], true); err != nil {
		t.Fatalf("ready: %v", err)
	}

	if r.AutoLeave(users[0]) {
		t.Fatalf("ready seat must survive disconnect")
	}
	if !r.AutoLeave(users[1]) {
		t.Fatalf("unready seat should be released on disconnect")
	}
	if len(r.Seats) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(r.Seats))
	}
}

// place4 drops both workers for two players into fixed corners.
func place4(b board.Board, users []uuid.UUID) board.Board {
	b.Cells[0][0].Worker = &board.Worker{Owner: users[0].String(), ID: 1}
	b.Cells[0][2].Worker = &board.Worker{Owner: users[0].String(), ID: 2}
	b.Cells[4][4].Worker = &board.Worker{Owner: users[1].String(), ID: 1}
	b.Cells[4][2].Worker = &board.Worker{Owner: users[1].String(), ID: 2}
	return b
}
