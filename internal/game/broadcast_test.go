package game

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type recvEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// drain returns every envelope currently queued on the watcher.
func drain(t *testing.T, w *Watcher) []recvEnvelope {
	t.Helper()
	var out []recvEnvelope
	for {
		select {
		case raw, ok := <-w.C():
			if !ok {
				t.Fatalf("watcher channel closed")
			}
			var env recvEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("bad envelope: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestSubscribeQueuesInitialState(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)
	u := uuid.New()
	if _, _, err := r.Join(u, "p"); err != nil {
		t.Fatalf("join: %v", err)
	}

	w := r.Subscribe(u)
	defer r.Unsubscribe(w)

	msgs := drain(t, w)
	if len(msgs) != 1 || msgs[0].Type != "game_state_update" {
		t.Fatalf("expected one initial game_state_update, got %+v", msgs)
	}
	var upd struct {
		GameID  string `json:"gameId"`
		Version uint64 `json:"version"`
	}
	if err := json.Unmarshal(msgs[0].Payload, &upd); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if upd.GameID != r.ID || upd.Version != r.Snapshot().Version {
		t.Fatalf("initial state mismatch: %+v", upd)
	}
}

func TestBroadcastSkipsUnchangedState(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)
	u := uuid.New()
	if _, _, err := r.Join(u, "p"); err != nil {
		t.Fatalf("join: %v", err)
	}
	w := r.Subscribe(u)
	defer r.Unsubscribe(w)
	drain(t, w)

	// Re-broadcasting an identical revision must not emit anything.
	r.Mu.Lock()
	r.broadcastStateLocked()
	r.Mu.Unlock()
	if msgs := drain(t, w); len(msgs) != 0 {
		t.Fatalf("duplicate state was resent: %+v", msgs)
	}

	// A real mutation goes through again.
	if _, err := r.SetReady(u, true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	msgs := drain(t, w)
	if len(msgs) != 1 || msgs[0].Type != "game_state_update" {
		t.Fatalf("mutation update missing: %+v", msgs)
	}
}

func TestJoinEventsReachWatchers(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)
	u := uuid.New()
	if _, _, err := r.Join(u, "p"); err != nil {
		t.Fatalf("join: %v", err)
	}
	w := r.Subscribe(u)
	defer r.Unsubscribe(w)
	drain(t, w)

	other := uuid.New()
	if _, _, err := r.Join(other, "q"); err != nil {
		t.Fatalf("second join: %v", err)
	}
	msgs := drain(t, w)
	var types []string
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	if len(types) != 2 || types[0] != "player_joined" || types[1] != "game_state_update" {
		t.Fatalf("expected player_joined then game_state_update, got %v", types)
	}
}

func TestProjectionLegalMovesOnlyForActivePlayer(t *testing.T) {
	r, users := startTestRoom(t, 2)

	active := r.ProjectionFor(users[0])
	if !active.YourTurn || len(active.LegalMoves) == 0 {
		t.Fatalf("active player missing legal moves: yourTurn=%v n=%d", active.YourTurn, len(active.LegalMoves))
	}
	waiting := r.ProjectionFor(users[1])
	if waiting.YourTurn || waiting.LegalMoves != nil {
		t.Fatalf("waiting player should see no legal moves: %+v", waiting)
	}
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	r := newRoom(uuid.New(), 2, nil)
	u := uuid.New()
	if _, _, err := r.Join(u, "p"); err != nil {
		t.Fatalf("join: %v", err)
	}
	w := r.Subscribe(u)
	if got := r.WatcherCount(); got != 1 {
		t.Fatalf("watcher count %d", got)
	}

	r.Unsubscribe(w)
	r.Unsubscribe(w) // second call is a no-op, not a panic

	if got := r.WatcherCount(); got != 0 {
		t.Fatalf("watcher count %d after unsubscribe", got)
	}
	drain2 := func() bool {
		for {
			select {
			case _, ok := <-w.C():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}
	if !drain2() {
		t.Fatalf("channel not closed after unsubscribe")
	}
}
