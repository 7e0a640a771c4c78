// main.go - Entry point and dependency injection
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"github.com/ridetrackapp/ridetrack-go/internal/config"
	"github.com/ridetrackapp/ridetrack-go/internal/database"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
	"github.com/ridetrackapp/ridetrack-go/internal/remote"
	syncengine "github.com/ridetrackapp/ridetrack-go/internal/sync"
	"github.com/ridetrackapp/ridetrack-go/internal/tracking"
	"github.com/ridetrackapp/ridetrack-go/internal/web"
)

type App struct {
	cfg      *config.Config
	db       *database.SQLiteDB
	cron     *cron.Cron
	server   *http.Server
	syncer   *syncengine.Engine
	recorder *tracking.Recorder
	shutdown chan os.Signal
}

func main() {
	app := &App{
		cfg:      config.Load(),
		shutdown: make(chan os.Signal, 1),
	}

	if err := app.init(); err != nil {
		log.Fatal("Failed to initialize app: ", err)
	}

	app.start()

	signal.Notify(app.shutdown, os.Interrupt, syscall.SIGTERM)
	<-app.shutdown

	app.stop()
}

func (app *App) init() error {
	if err := os.MkdirAll(app.cfg.DataDir, 0755); err != nil {
		return err
	}

	db, err := database.NewSQLiteDB(app.cfg.DBPath)
	if err != nil {
		return err
	}
	app.db = db

	client := remote.NewClient(app.cfg.RemoteBaseURL, app.cfg.RemoteAuthToken)
	app.syncer = syncengine.NewEngine(app.db, client)

	app.cron = cron.New()

	rider := models.Rider{
		WeightKg: app.cfg.RiderWeightKg,
		Gender:   app.cfg.RiderGender,
	}

	app.recorder = tracking.NewRecorder(app.db, app.cfg.Validator, rider)
	if activity, err := app.recorder.Resume(); err == nil {
		log.Printf("Resumed interrupted recording %d (%s)", activity.ID, activity.Name)
	} else if !errors.Is(err, database.ErrNotFound) {
		log.Printf("Could not resume interrupted recording: %v", err)
	}

	router := gin.Default()
	web.NewHandler(app.db, app.syncer, app.recorder, rider).RegisterRoutes(router)

	app.server = &http.Server{
		Addr:    app.cfg.ListenAddr,
		Handler: router,
	}

	return nil
}

func (app *App) start() {
	app.cron.AddFunc(app.cfg.SyncSchedule, func() {
		log.Println("Starting scheduled sync...")
		if err := app.syncer.Sync(context.Background()); err != nil {
			log.Printf("Sync failed: %v", err)
		}
	})
	app.cron.Start()

	go func() {
		log.Printf("Server starting on %s", app.cfg.ListenAddr)
		if err := app.server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()
}

func (app *App) stop() {
	log.Println("Shutting down...")

	app.cron.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Leave an in-progress recording unfinished; it resumes on next start.
	app.recorder.Shutdown()

	if app.db != nil {
		app.db.Close()
	}

	log.Println("Shutdown complete")
}
