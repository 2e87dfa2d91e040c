// Airport Tracker service
// Ingests aircraft position reports, classifies them against configured
// airport geofences, and serves the tracked flight state over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airspacelab/airport-tracker/internal/db"
	"github.com/airspacelab/airport-tracker/internal/server"
	"github.com/airspacelab/airport-tracker/pkg/config"
	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

func main() {
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Airport Tracker Service")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded from: %s", *configPath)

	airports, err := config.LoadAirports(cfg.Tracker.AirportsPath)
	if err != nil {
		log.Fatalf("Failed to load airport registry: %v", err)
	}

	store := tracker.NewStore()
	alerts := tracker.NewAlertLog()
	classifier := tracker.NewClassifier(airports, store, alerts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Postgres archive, wired as a classifier sink
	if cfg.Database.Enabled {
		database, err := db.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("✓ Archive database connected")

		archive := db.NewArchiveRepository(database)
		classifier.AddSink(archive.Enqueue)
		go archive.Run(ctx, time.Duration(cfg.Database.RetentionHours)*time.Hour)
	}

	srv := server.New(classifier, store, alerts)

	// Staleness sweep keeps the store from growing without bound
	if cfg.Tracker.StaleAfterSeconds > 0 {
		go runSweep(ctx, store, cfg.Tracker)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Airport Tracker listening on %s", httpServer.Addr)
		log.Printf("📍 Tracking %d airports", len(airports))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Shutdown error: %v", err)
	}
	log.Println("✅ Server stopped")
}

// runSweep evicts tracked flights not seen within the staleness window.
func runSweep(ctx context.Context, store *tracker.Store, cfg config.TrackerConfig) {
	interval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxAge := time.Duration(cfg.StaleAfterSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := store.SweepStale(maxAge); evicted > 0 {
				log.Printf("🧹 Evicted %d stale flights (not seen for %s)", evicted, maxAge)
			}
		}
	}
}
