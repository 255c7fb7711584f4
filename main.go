package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/auth"
	"github.com/neves-nvs/santorini-sub000/internal/game"
	"github.com/neves-nvs/santorini-sub000/internal/handlers"
	"github.com/neves-nvs/santorini-sub000/internal/logging"
	"github.com/neves-nvs/santorini-sub000/internal/storage"
	"github.com/neves-nvs/santorini-sub000/internal/ws"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()
	logging.Debug = *debug

	addr := ":8080"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	// Persistence is optional; every write path tolerates a nil store.
	var store *storage.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := storage.New(dsn)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = storage.NewStore(db)
		log.Printf("persistence enabled")
	}

	var authn auth.Authenticator
	if store != nil {
		authn = auth.NewStoreAuthenticator(store)
	} else {
		authn = auth.NewStatic(devTokens())
	}

	hub := game.NewHub(store)
	wsServer := ws.NewServer(hub, authn)
	h := handlers.NewHandler(hub, store, authn, wsServer)

	http.HandleFunc("/games", h.HandleNewGame)
	http.HandleFunc("/games/", h.HandleGame)
	http.HandleFunc("/stats", h.HandleStats)
	http.HandleFunc("/healthz", h.HandleHealth)
	http.HandleFunc("/ws", wsServer.HandleWS)
	http.HandleFunc("/", h.HandleIndex)

	log.Printf("Santorini server (%s) listening on %s …", commit, addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

// devTokens parses DEV_TOKENS ("token=name,token=name") into a static
// authenticator map. Only relevant when no database is configured.
func devTokens() map[string]auth.User {
	out := make(map[string]auth.User)
	for _, pair := range strings.Split(os.Getenv("DEV_TOKENS"), ",") {
		token, name, ok := strings.Cut(pair, "=")
		if !ok || token == "" {
			continue
		}
		out[token] = auth.User{ID: uuid.New(), Name: name}
	}
	if len(out) == 0 {
		logging.Errorf("no DEV_TOKENS configured; websocket upgrades will be rejected")
	}
	return out
}
