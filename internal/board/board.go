package board

import "errors"

// Size is the fixed board dimension.
const Size = 5

// MaxHeight is the tallest buildable tower level before a dome caps it.
const MaxHeight = 3

// WorkersPerPlayer is how many workers each player places.
const WorkersPerPlayer = 2

// ErrIllegalPosition is returned when a move targets a cell the rules forbid.
var ErrIllegalPosition = errors.New("illegal position")

// Position is a cell coordinate, 0..4 on both axes.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Valid reports whether the position lies on the board.
func (p Position) Valid() bool {
	return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size
}

// AdjacentTo reports whether q is in p's 8-neighborhood. A cell is not
// adjacent to itself.
func (p Position) AdjacentTo(q Position) bool {
	if p == q {
		return false
	}
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1
}

// Neighbors returns the valid positions in p's 8-neighborhood.
func (p Position) Neighbors() []Position {
	out := make([]Position, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			q := Position{X: p.X + dx, Y: p.Y + dy}
			if q.Valid() {
				out = append(out, q)
			}
		}
	}
	return out
}

// Worker identifies one of a player's two workers. Values are never mutated
// once on the board; moving a worker assigns a fresh reference.
type Worker struct {
	Owner string `json:"owner"`
	ID    int    `json:"id"` // 1 or 2 within its owner
}

// Cell is one square of the board.
type Cell struct {
	Height int     `json:"height"` // 0..3 built levels
	Dome   bool    `json:"dome"`
	Worker *Worker `json:"worker,omitempty"`
}

// Occupied reports whether a worker stands on the cell.
func (c Cell) Occupied() bool { return c.Worker != nil }

// RenderHeight reports the height a renderer should draw: a domed level-3
// tower counts as 4.
func (c Cell) RenderHeight() int {
	if c.Dome && c.Height == MaxHeight {
		return c.Height + 1
	}
	return c.Height
}

// Board is the full 5x5 grid. It is a value type: assignment copies the
// grid, which is what gives Apply its copy-on-write contract.
type Board struct {
	Cells [Size][Size]Cell `json:"cells"`
}

// New returns an empty board.
func New() Board { return Board{} }

// At returns the cell at p. Callers must pass a valid position.
func (b Board) At(p Position) Cell {
	return b.Cells[p.Y][p.X]
}

// WorkerPosition finds the placed worker with the given owner and id.
func (b Board) WorkerPosition(owner string, id int) (Position, bool) {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			w := b.Cells[y][x].Worker
			if w != nil && w.Owner == owner && w.ID == id {
				return Position{X: x, Y: y}, true
			}
		}
	}
	return Position{}, false
}

// WorkerPositions returns the positions of every placed worker of owner.
func (b Board) WorkerPositions(owner string) []Position {
	out := make([]Position, 0, WorkersPerPlayer)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			w := b.Cells[y][x].Worker
			if w != nil && w.Owner == owner {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// RemoveWorkers clears every worker belonging to owner and returns the new
// board. Used when a player is eliminated from a multi-seat game.
func (b Board) RemoveWorkers(owner string) Board {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			w := b.Cells[y][x].Worker
			if w != nil && w.Owner == owner {
				b.Cells[y][x].Worker = nil
			}
		}
	}
	return b
}
