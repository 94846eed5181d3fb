package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/art-solutions/nanobana-gen/modules/batch"
	"github.com/art-solutions/nanobana-gen/modules/common/config"
	"github.com/art-solutions/nanobana-gen/modules/common/database"
	redisclient "github.com/art-solutions/nanobana-gen/modules/common/redis"
	"github.com/art-solutions/nanobana-gen/modules/common/storage"
	"github.com/art-solutions/nanobana-gen/modules/job"
	"github.com/art-solutions/nanobana-gen/modules/localize"
	"github.com/art-solutions/nanobana-gen/modules/notify"
	"github.com/art-solutions/nanobana-gen/modules/preset"
	"github.com/art-solutions/nanobana-gen/modules/transform"
	"github.com/art-solutions/nanobana-gen/modules/worker"
)

// CORS headers for the browser UI.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "nanobana-gen",
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Stores. Without Supabase credentials everything runs in memory, which
	// is enough for local development but survives nothing.
	var presetStore preset.Store
	var jobStore job.Store
	var artifactStore storage.Store

	dbClient := database.NewClient(cfg)
	if dbClient != nil {
		presetStore = preset.NewSupabaseStore(dbClient)
		jobStore = job.NewSupabaseStore(dbClient)
		artifactStore = storage.NewSupabaseStore(cfg)
		log.Println("✅ Supabase stores initialized")
	} else {
		presetStore = preset.NewMemoryStore()
		jobStore = job.NewMemoryStore()
		artifactStore = storage.NewMemoryStore()
		log.Println("⚠️  No database connection, using in-memory stores")
	}

	transformClient, err := transform.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize transform client: %v", err)
	}

	// Push hub and services.
	hub := notify.NewHub()
	hub.StartCleanupRoutine()

	presetService := preset.NewService(presetStore)
	jobService := job.NewService(jobStore, presetStore)
	localizer := localize.NewService(jobStore, artifactStore, transformClient, hub)
	batchService := batch.NewService(jobStore, jobService, localizer, cfg.BatchConcurrency)

	// Redis queue worker (background).
	go worker.StartWorker(localizer)

	// Router.
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	preset.NewPresetHandler(presetService).RegisterRoutes(r)
	job.NewJobHandler(jobService).RegisterRoutes(r)
	batch.NewBatchHandler(batchService).RegisterRoutes(r)
	notify.NewWatchHandler(hub).RegisterRoutes(r)

	if rdb := redisclient.Connect(cfg); rdb != nil {
		if enqueueHandler := worker.NewEnqueueHandler(rdb, jobService); enqueueHandler != nil {
			enqueueHandler.RegisterRoutes(r)
		}
	} else {
		log.Println("⚠️  Redis unavailable, enqueue endpoint disabled")
	}

	log.Printf("🚀 Nanobana localization server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
