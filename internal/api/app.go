package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/mburgess/go-dms/internal/config"
	"github.com/mburgess/go-dms/internal/database"
	"github.com/mburgess/go-dms/internal/events"
	"github.com/mburgess/go-dms/internal/messaging"
	"github.com/mburgess/go-dms/internal/stats"
)

type DmApp struct {
	log            *log.Logger
	db             database.DmRepository
	svc            *messaging.Service
	hub            *events.Hub
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewDmApp(mux *http.ServeMux, logger *log.Logger, svc *messaging.Service, hub *events.Hub,
	db database.DmRepository, statsProvider stats.StatsProvider, cfg *config.Config) *DmApp {
	app := &DmApp{
		log:            logger,
		db:             db,
		svc:            svc,
		hub:            hub,
		stats:          statsProvider,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /{$}", app.listAllUsers)
	mux.HandleFunc("POST /user", app.createAccount)
	mux.HandleFunc("POST /login", app.login)
	mux.HandleFunc("GET /healthz", app.healthCheck)
	mux.Handle("GET /users", app.authMiddleware(app.listUsers))
	mux.Handle("GET /rooms", app.authMiddleware(app.listRooms))
	mux.Handle("GET /room/{room_id}", app.authMiddleware(app.getRoomMessages))
	mux.Handle("POST /message/{receiver_id}", app.authMiddleware(app.sendMessage))
	mux.Handle("GET /ws", app.authMiddleware(app.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = app.requestId(h)
	h = app.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	app.mux = srv
	return app
}

func (app *DmApp) Start() error {
	app.log.Printf("starting server on %s\n", app.mux.Addr)
	return app.mux.ListenAndServe()
}

func (app *DmApp) Shutdown(ctx context.Context) error {
	app.log.Println("shutting down HTTP server...")
	if err := app.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
