package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotshot/internal/cache"
	"hotshot/internal/config"
	"hotshot/internal/repository"
	"hotshot/internal/service"
	"hotshot/internal/transport/rest"
	"hotshot/internal/transport/ws"
)

// @title HotShot Live Polling API
// @version 1.0
// @description Host-driven live audience polling: rooms, questions, votes, realtime tallies
// @BasePath /v1
func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded .env")
	}

	cfg := config.Load()
	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Msg("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()

	// Repositories
	roomRepo := repository.NewRoomRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	optionRepo := repository.NewOptionRepo(db)
	playerRepo := repository.NewPlayerRepo(db)
	voteRepo := repository.NewVoteRepo(db)

	// Caches
	roomCache := cache.NewRoomCache(rdb)
	tallyCache := cache.NewTallyCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg)
	roomSvc := service.NewRoomService(roomRepo, questionRepo, optionRepo, playerRepo, voteRepo, roomCache, tallyCache)
	playerSvc := service.NewPlayerService(playerRepo, roomRepo, roomCache, authSvc)
	voteSvc := service.NewVoteService(questionRepo, optionRepo, playerRepo, voteRepo, roomCache, tallyCache)
	exportSvc := service.NewExportService(questionRepo, optionRepo, playerRepo, voteRepo)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	roomSvc.SetBroadcaster(wsHub)
	playerSvc.SetBroadcaster(wsHub)
	voteSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		Config:        cfg,
		AuthService:   authSvc,
		RoomService:   roomSvc,
		PlayerService: playerSvc,
		VoteService:   voteSvc,
		ExportService: exportSvc,
		WSHub:         wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
