package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateRoomSeatsCreator(t *testing.T) {
	h := &Hub{Rooms: make(map[string]*Room)}
	r, err := h.CreateRoom(uuid.New(), "alice", 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, ok := h.Get(r.ID); !ok || got != r {
		t.Fatalf("created room not retrievable")
	}
	if len(r.Seats) != 1 || r.Seats[0].Name != "alice" {
		t.Fatalf("creator not seated: %+v", r.Seats)
	}
	if _, ok := h.Get("nope"); ok {
		t.Fatalf("lookup of unknown id succeeded")
	}
}

func TestCreateRoomCapacityBounds(t *testing.T) {
	h := &Hub{Rooms: make(map[string]*Room)}
	for _, c := range []int{0, 1, 5, -2} {
		if _, err := h.CreateRoom(uuid.New(), "x", c); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", c, err)
		}
	}
	for _, c := range []int{2, 3, 4} {
		if _, err := h.CreateRoom(uuid.New(), "x", c); err != nil {
			t.Fatalf("capacity %d: %v", c, err)
		}
	}
}

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	seated, full := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.Join(uuid.New(), "racer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				seated++
			case errors.Is(err, ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}()
	}
	wg.Wait()

	if seated != 2 || full != n-2 {
		t.Fatalf("seated=%d full=%d", seated, full)
	}
	if len(r.Seats) != 2 {
		t.Fatalf("room overfilled: %d seats", len(r.Seats))
	}
	if r.Status != StatusReady {
		t.Fatalf("full room should be ready, got %s", r.Status)
	}
}

func TestSweepDropsFinishedAndIdleRooms(t *testing.T) {
	h := &Hub{Rooms: make(map[string]*Room)}

	done, _ := h.CreateRoom(uuid.New(), "a", 2)
	done.Abort()

	watched, _ := h.CreateRoom(uuid.New(), "b", 2)
	watched.Abort()
	w := watched.Subscribe(uuid.New())
	defer watched.Unsubscribe(w)

	idle, _ := h.CreateRoom(uuid.New(), "c", 2)
	idle.Mu.Lock()
	idle.LastSeen = time.Now().Add(-25 * time.Hour)
	idle.Mu.Unlock()

	live, _ := h.CreateRoom(uuid.New(), "d", 2)

	h.sweep()

	if _, ok := h.Get(done.ID); ok {
		t.Fatalf("finished unwatched room survived sweep")
	}
	if _, ok := h.Get(watched.ID); !ok {
		t.Fatalf("watched room was swept")
	}
	if _, ok := h.Get(idle.ID); ok {
		t.Fatalf("idle room survived sweep")
	}
	if _, ok := h.Get(live.ID); !ok {
		t.Fatalf("live room was swept")
	}
}
