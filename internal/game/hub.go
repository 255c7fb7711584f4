package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/storage"
)

// Hub is the registry of all live rooms. Its lock covers only creation,
// lookup and the sweep; per-room mutation is decentralized behind each
// room's own lock.
type Hub struct {
	Mu    sync.Mutex
	Rooms map[string]*Room

	store *storage.Store
}

// NewHub creates a hub and starts the garbage-collection goroutine that
// drops finished rooms nobody is watching and rooms idle for over a day.
func NewHub(store *storage.Store) *Hub {
	h := &Hub{Rooms: make(map[string]*Room), store: store}
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			h.sweep()
		}
	}()
	return h
}

func (h *Hub) sweep() {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	for id, r := range h.Rooms {
		r.Mu.Lock()
		done := r.Status == StatusCompleted || r.Status == StatusAborted
		stale := done && len(r.watchers) == 0
		idle := time.Since(r.LastSeen) > 24*time.Hour
		r.Mu.Unlock()
		if stale || idle {
			delete(h.Rooms, id)
		}
	}
}

// CreateRoom makes a new room with the given capacity and seats the
// creator on it.
func (h *Hub) CreateRoom(creatorID uuid.UUID, creatorName string, capacity int) (*Room, error) {
	if capacity < 2 || capacity > 4 {
		return nil, ErrInvalidCapacity
	}

	uid := uuid.New()
	r := newRoom(uid, capacity, h.store)
	r.Seats = append(r.Seats, &Seat{UserID: creatorID, Name: creatorName})
	r.Version++

	h.Mu.Lock()
	h.Rooms[r.ID] = r
	h.Mu.Unlock()

	if h.store != nil {
		store := h.store
		go func() {
			_ = store.CreateGame(context.Background(), uid, creatorID, capacity)
			_ = store.EnsureSeat(context.Background(), uid, creatorID, 0)
		}()
	}
	return r, nil
}

// Get looks up a room by id.
func (h *Hub) Get(id string) (*Room, bool) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r, ok := h.Rooms[id]
	return r, ok
}
