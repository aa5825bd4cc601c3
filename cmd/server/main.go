package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/mburgess/go-dms/internal/api"
	"github.com/mburgess/go-dms/internal/config"
	"github.com/mburgess/go-dms/internal/database"
	"github.com/mburgess/go-dms/internal/events"
	"github.com/mburgess/go-dms/internal/messaging"
	"github.com/mburgess/go-dms/internal/stats"
)

const defaultPort = 2000

var port int

func main() {
	flag.IntVar(&port, "port", defaultPort, "listen port")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-dms] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		logger.Println("no .env file found, using process environment")
	}

	cfg, err := config.FromEnv(port)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	db, err := database.NewPgDmRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Fatal("db close: ", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("migrate: ", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := events.NewHub(logger, statsUpdater)
	svc := messaging.NewService(logger, db, hub, statsUpdater)
	app := api.NewDmApp(mux, logger, svc, hub, db, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down event hub...")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("event hub shutdown:", err)
	}

	logger.Println("shutdown complete")
}
