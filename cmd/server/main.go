// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/wordrelay/relay/internal/auth"
	"github.com/wordrelay/relay/internal/cache"
	"github.com/wordrelay/relay/internal/database"
	"github.com/wordrelay/relay/internal/handlers"
	"github.com/wordrelay/relay/internal/middleware"
	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/session"
	"github.com/wordrelay/relay/internal/store"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis backs both the replicated session store and the round-record
	// queue. Without it, sessions live in process memory only.
	var st store.Store
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, falling back to in-memory store: %v", err)
		st = store.NewMemoryStore()
	} else {
		st = store.NewRedisStore(cache.Rdb)
	}

	mgr := session.NewManager(st, logger)
	srv := handlers.NewServer(logger, mgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlers.PingHandler)

	mux.Handle("/session/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateSessionHandler(srv),
	)))
	mux.Handle("/session/join", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.JoinSessionHandler(srv),
	)))

	// session ws
	mux.Handle("/session/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionWSHandler(logger, srv),
	)))

	// The results archive is optional; skip it entirely when Postgres is
	// not configured.
	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
		mgr.OnEnded = func(sess models.Session) {
			if err := database.ArchiveSession(context.Background(), sess); err != nil {
				logger.Errorf("archive session %s: %v", sess.Code, err)
			}
		}
		mux.Handle("/session/standings", middleware.LogMiddleware(logger)(http.HandlerFunc(
			handlers.StandingsHandler(srv, func(r *http.Request, code string) (any, error) {
				return database.GetFinalStandings(r.Context(), code)
			}),
		)))
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
