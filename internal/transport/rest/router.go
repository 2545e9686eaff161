package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"hotshot/internal/config"
	"hotshot/internal/service"
	"hotshot/internal/transport/rest/handler"
	"hotshot/internal/transport/rest/middleware"
	"hotshot/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Config        *config.Config
	AuthService   *service.AuthService
	RoomService   *service.RoomService
	PlayerService *service.PlayerService
	VoteService   *service.VoteService
	ExportService *service.ExportService
	WSHub         *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.PlayerService)
	questionHandler := handler.NewQuestionHandler(c.RoomService, c.VoteService)
	voteHandler := handler.NewVoteHandler(c.VoteService)
	exportHandler := handler.NewExportHandler(c.ExportService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.Config))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/questions/{questionId}/tally", questionHandler.Tally).Methods("GET", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/rooms/{code}/host", wsHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/rooms/{code}/player", wsHandler.PlayerWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/publish", roomHandler.Publish).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/end", roomHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/questions", questionHandler.Add).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/questions/{questionId}/open", questionHandler.Open).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/questions/{questionId}/close", questionHandler.Close).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/questions/{questionId}/export", exportHandler.ExportCSV).Methods("GET", "OPTIONS")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/rooms/{code}/question/current", questionHandler.Current).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/votes", voteHandler.Vote).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/options", voteHandler.Propose).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
