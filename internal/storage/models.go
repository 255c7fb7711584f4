package storage

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated identity. Credential verification happens
// upstream; this table only maps opaque session tokens to stable ids.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string
	Token     string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Game is the durable record of a room.
type Game struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatorID    uuid.UUID `gorm:"type:uuid;index"`
	Capacity     int
	Status       string
	Phase        string
	Version      uint64
	TurnNumber   int
	ActiveUserID *uuid.UUID `gorm:"type:uuid"`
	WinnerID     *uuid.UUID `gorm:"type:uuid"`
	WinReason    string
	Board        string // JSON snapshot of the grid
	LastSeen     time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Seats        []Seat
	Moves        []MoveRecord
}

// Seat links a user to a slot in a game.
type Seat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID    uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_game_user"`
	Game      Game      `gorm:"constraint:OnDelete:CASCADE;"`
	UserID    uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_game_user"`
	Idx       int
	Released  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MoveRecord stores a single committed move in a game.
type MoveRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID    uuid.UUID `gorm:"type:uuid;index"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	Number    int
	Kind      string
	Data      string // JSON of the move
	CreatedAt time.Time
}
