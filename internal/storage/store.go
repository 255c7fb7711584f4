package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps a gorm DB instance and provides helper methods for persisting
// rooms, seats and moves. A nil *Store is valid and turns every method into
// a no-op, so running without a database is always safe.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// DB exposes the underlying gorm DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// ErrNotFound is returned when a record is not found.
var ErrNotFound = gorm.ErrRecordNotFound

// GameStateUpdate carries the fields written after each committed mutation.
type GameStateUpdate struct {
	Status       string
	Phase        string
	Version      uint64
	TurnNumber   int
	ActiveUserID *uuid.UUID
	Board        string
	LastSeen     time.Time
}

// CreateGame inserts a new game row.
func (s *Store) CreateGame(ctx context.Context, id, creatorID uuid.UUID, capacity int) error {
	if s == nil {
		return nil
	}
	game := Game{
		ID:        id,
		CreatorID: creatorID,
		Capacity:  capacity,
		Status:    "waiting",
		Phase:     "none",
		LastSeen:  time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&game).Error
}

// SaveGameState overwrites the mutable fields of a game row.
func (s *Store) SaveGameState(ctx context.Context, id uuid.UUID, upd GameStateUpdate) error {
	if s == nil {
		return nil
	}
	updates := map[string]any{
		"status":         upd.Status,
		"phase":          upd.Phase,
		"version":        upd.Version,
		"turn_number":    upd.TurnNumber,
		"active_user_id": upd.ActiveUserID,
		"board":          upd.Board,
		"last_seen":      upd.LastSeen,
	}
	return s.db.WithContext(ctx).Model(&Game{}).Where("id = ?", id).Updates(updates).Error
}

// EnsureSeat upserts the seat row binding userID to a slot in the game.
func (s *Store) EnsureSeat(ctx context.Context, gameID, userID uuid.UUID, idx int) error {
	if s == nil {
		return nil
	}
	seat := Seat{GameID: gameID, UserID: userID, Idx: idx}
	return s.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Assign(map[string]any{"idx": idx, "released": false}).
		FirstOrCreate(&seat).Error
}

// ReleaseSeat marks the seat as freed (pre-start leave or auto-leave).
func (s *Store) ReleaseSeat(ctx context.Context, gameID, userID uuid.UUID) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&Seat{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Updates(map[string]any{"released": true}).Error
}

// RecordMove inserts a committed move row.
func (s *Store) RecordMove(ctx context.Context, gameID, userID uuid.UUID, number int, kind, data string) error {
	if s == nil {
		return nil
	}
	move := MoveRecord{
		GameID: gameID,
		UserID: userID,
		Number: number,
		Kind:   kind,
		Data:   data,
	}
	return s.db.WithContext(ctx).Create(&move).Error
}

// CompleteGame marks a game as finished.
func (s *Store) CompleteGame(ctx context.Context, id uuid.UUID, winnerID *uuid.UUID, reason string, completedAt time.Time) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Game{}).Where("id = ?", id).Updates(map[string]any{
		"status":       "completed",
		"phase":        "none",
		"winner_id":    winnerID,
		"win_reason":   reason,
		"completed_at": completedAt,
	}).Error
}

// PersistedGame is a game row with its unreleased seats.
type PersistedGame struct {
	Game  Game
	Seats []Seat
}

// LoadGame fetches a persisted game for the read path.
func (s *Store) LoadGame(ctx context.Context, id uuid.UUID) (*PersistedGame, error) {
	if s == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var game Game
	if err := s.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var seats []Seat
	if err := s.db.WithContext(ctx).
		Where("game_id = ? AND released = ?", id, false).
		Order("idx").
		Find(&seats).Error; err != nil {
		return nil, err
	}
	return &PersistedGame{Game: game, Seats: seats}, nil
}

// LookupUserByToken resolves a session token to a user.
func (s *Store) LookupUserByToken(ctx context.Context, token string) (*User, error) {
	if s == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var user User
	if err := s.db.WithContext(ctx).First(&user, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Stats represents aggregate counts for games.
type Stats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Active    int64 `json:"active"`
}

// FetchStats aggregates game counts.
func (s *Store) FetchStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Count(&stats.Started).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Where("status = ?", "in_progress").Count(&stats.Active).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Where("completed_at IS NOT NULL").Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
