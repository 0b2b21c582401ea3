// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quizbowl/qbscore/internal/cache"
	"github.com/quizbowl/qbscore/internal/database"
	"github.com/quizbowl/qbscore/internal/handlers"
	"github.com/quizbowl/qbscore/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Postgres and Redis are both optional: without them the server still
	// tracks live games, it just cannot archive or journal.
	if err := database.ConnectDB(); err != nil {
		logger.Warnf("archive database unavailable: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("action journal unavailable: %v", err)
	}

	srv := handlers.NewServer()

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// game endpoints
	mux.Handle("/game/create", logged(handlers.CreateGameHandler(srv)))
	mux.Handle("/game/state", logged(handlers.GameStateHandler(srv)))
	mux.Handle("/game/score", logged(handlers.GameScoreHandler(srv)))
	mux.Handle("/game/action", logged(handlers.GameActionHandler(srv)))

	// interchange endpoints
	mux.Handle("/game/export", logged(handlers.ExportGameHandler(srv)))
	mux.Handle("/game/import", logged(handlers.ImportGameHandler(srv)))

	// archive endpoints
	mux.Handle("/game/archive", logged(handlers.ArchiveGameHandler(srv)))
	mux.Handle("/games/archived", logged(handlers.ListArchivedGamesHandler()))

	// live score feed
	mux.Handle("/game/ws/", logged(http.HandlerFunc(
		handlers.ScoreFeedHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
