package board

import "fmt"

// LegalPlacements returns every cell a new worker may be placed on: empty
// and not domed.
func LegalPlacements(b Board) []Position {
	out := make([]Position, 0, Size*Size)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			c := b.Cells[y][x]
			if !c.Occupied() && !c.Dome {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// LegalMoves returns the cells the worker standing at from may move to: the
// 8-neighborhood minus occupied cells, domed cells, and cells more than one
// level above from. Descending any distance is allowed. An empty result for
// an unoccupied from is fine; an unplaced worker simply has no moves.
func LegalMoves(b Board, from Position) []Position {
	if !from.Valid() || !b.At(from).Occupied() {
		return nil
	}
	fromHeight := b.At(from).Height
	var out []Position
	for _, p := range from.Neighbors() {
		c := b.At(p)
		if c.Occupied() || c.Dome {
			continue
		}
		if c.Height > fromHeight+1 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LegalBuilds returns the builds available around a worker at around:
// empty, non-domed neighbor cells, with build_block below level 3 and
// build_dome exactly at level 3. The worker's own vacated cell from earlier
// in the turn is a neighbor like any other.
func LegalBuilds(b Board, around Position) []Build {
	if !around.Valid() {
		return nil
	}
	var out []Build
	for _, p := range around.Neighbors() {
		c := b.At(p)
		if c.Occupied() || c.Dome {
			continue
		}
		if c.Height < MaxHeight {
			out = append(out, Build{Position: p, Type: BuildBlock})
		} else {
			out = append(out, Build{Position: p, Type: BuildDome})
		}
	}
	return out
}

// Apply validates m for owner against b and returns the resulting board.
// The input board is never mutated. Adjacency of builds to the worker that
// moved this turn is the caller's concern; Apply enforces cell-local rules
// only.
func Apply(b Board, owner string, m Move) (Board, error) {
	switch m.Type {
	case PlaceWorker:
		return applyPlace(b, owner, m)
	case MoveWorker:
		return applyMove(b, owner, m)
	case BuildBlock, BuildDome:
		return applyBuild(b, m)
	default:
		return b, fmt.Errorf("%w: unknown move type %q", ErrIllegalPosition, m.Type)
	}
}

func applyPlace(b Board, owner string, m Move) (Board, error) {
	if m.Position == nil || !m.Position.Valid() {
		return b, fmt.Errorf("%w: placement off board", ErrIllegalPosition)
	}
	if m.WorkerID < 1 || m.WorkerID > WorkersPerPlayer {
		return b, fmt.Errorf("%w: worker id %d", ErrIllegalPosition, m.WorkerID)
	}
	if _, placed := b.WorkerPosition(owner, m.WorkerID); placed {
		return b, fmt.Errorf("%w: worker %d already placed", ErrIllegalPosition, m.WorkerID)
	}
	c := b.At(*m.Position)
	if c.Occupied() || c.Dome {
		return b, fmt.Errorf("%w: cell %d,%d not free", ErrIllegalPosition, m.Position.X, m.Position.Y)
	}
	b.Cells[m.Position.Y][m.Position.X].Worker = &Worker{Owner: owner, ID: m.WorkerID}
	return b, nil
}

func applyMove(b Board, owner string, m Move) (Board, error) {
	if m.From == nil || m.To == nil {
		return b, fmt.Errorf("%w: move needs from and to", ErrIllegalPosition)
	}
	from, to := *m.From, *m.To
	if !from.Valid() || !to.Valid() {
		return b, fmt.Errorf("%w: move off board", ErrIllegalPosition)
	}
	w := b.At(from).Worker
	if w == nil || w.Owner != owner || w.ID != m.WorkerID {
		return b, fmt.Errorf("%w: no worker %d at %d,%d", ErrIllegalPosition, m.WorkerID, from.X, from.Y)
	}
	legal := false
	for _, p := range LegalMoves(b, from) {
		if p == to {
			legal = true
			break
		}
	}
	if !legal {
		return b, fmt.Errorf("%w: cannot move to %d,%d", ErrIllegalPosition, to.X, to.Y)
	}
	b.Cells[from.Y][from.X].Worker = nil
	b.Cells[to.Y][to.X].Worker = w
	return b, nil
}

func applyBuild(b Board, m Move) (Board, error) {
	if m.Position == nil || !m.Position.Valid() {
		return b, fmt.Errorf("%w: build off board", ErrIllegalPosition)
	}
	p := *m.Position
	c := b.At(p)
	if c.Occupied() || c.Dome {
		return b, fmt.Errorf("%w: cell %d,%d not buildable", ErrIllegalPosition, p.X, p.Y)
	}
	switch m.Type {
	case BuildBlock:
		if c.Height >= MaxHeight {
			return b, fmt.Errorf("%w: level %d needs a dome", ErrIllegalPosition, c.Height)
		}
		b.Cells[p.Y][p.X].Height = c.Height + 1
	case BuildDome:
		if c.Height != MaxHeight {
			return b, fmt.Errorf("%w: dome only on level %d", ErrIllegalPosition, MaxHeight)
		}
		b.Cells[p.Y][p.X].Dome = true
	}
	return b, nil
}

// CheckWin reports whether m, validated against the pre-move board b, wins
// the game: a move_worker stepping from below level 3 onto a bare level-3
// tower.
func CheckWin(b Board, m Move) bool {
	if m.Type != MoveWorker || m.From == nil || m.To == nil {
		return false
	}
	if !m.From.Valid() || !m.To.Valid() {
		return false
	}
	from := b.At(*m.From)
	to := b.At(*m.To)
	return from.Height < MaxHeight && to.Height == MaxHeight && !to.Dome
}

// CheckTrapped reports whether owner cannot move any placed worker. A player
// with no placed workers is not trapped; placement always has room on a
// board this size.
func CheckTrapped(b Board, owner string) bool {
	positions := b.WorkerPositions(owner)
	if len(positions) == 0 {
		return false
	}
	for _, p := range positions {
		if len(LegalMoves(b, p)) > 0 {
			return false
		}
	}
	return true
}

// CanBuildAround reports whether any build exists in the 8-neighborhood of
// p. Used after a move commits: a mover who cannot build cannot finish the
// turn.
func CanBuildAround(b Board, p Position) bool {
	return len(LegalBuilds(b, p)) > 0
}
